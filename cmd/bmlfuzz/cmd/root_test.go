package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssargent/bmlfuzz/pkg/di"
)

func TestGetContainer(t *testing.T) {
	c := di.NewContainer()
	SetContainer(c)
	assert.Same(t, c, getContainer())

	SetContainer(nil)
	lazy := getContainer()
	assert.NotNil(t, lazy)
	assert.Same(t, lazy, getContainer())
}
