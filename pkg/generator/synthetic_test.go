package generator

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/container"
	"github.com/ssargent/bmlfuzz/pkg/loader"
)

func TestSynthesize_Deterministic(t *testing.T) {
	a := Synthesize(rand.New(rand.NewPCG(7, 7)), SynthOptions{})
	b := Synthesize(rand.New(rand.NewPCG(7, 7)), SynthOptions{})
	if diff := cmp.Diff(codec.EncodeStream(a), codec.EncodeStream(b)); diff != "" {
		t.Errorf("same seed produced different documents (-a +b):\n%s", diff)
	}

	c := Synthesize(rand.New(rand.NewPCG(8, 8)), SynthOptions{})
	assert.NotEqual(t, codec.EncodeStream(a), codec.EncodeStream(c))
}

func TestSynthesize_Shape(t *testing.T) {
	records := Synthesize(rand.New(rand.NewPCG(3, 3)), SynthOptions{Elements: 10, Depth: 3})

	require.NotEmpty(t, records)
	assert.Equal(t, codec.TypeDocumentStart, records[0].Type)
	assert.Equal(t, codec.TypeDocumentEnd, records[len(records)-1].Type)

	elements := 0
	seen := make(map[int32]bool)
	for _, r := range records {
		assert.True(t, r.ConsistentSize(), "record %s", r)
		if r.Type == codec.TypeElementStart {
			elements++
		}
		if id, ok := r.ConnectionID(); ok {
			assert.False(t, seen[id], "connection id %d repeated", id)
			seen[id] = true
		}
	}
	assert.Positive(t, elements)
}

func TestSyntheticGenerator_CreateBaseline(t *testing.T) {
	dir := t.TempDir()
	g := NewSyntheticGenerator(42, SynthOptions{Elements: 12})

	first, err := g.CreateBaseline(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "baseline.baml"), first)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.NoError(t, loader.NewStreamLoader().Load(context.Background(), data))

	_, err = g.CreateBaseline(context.Background(), dir)
	require.NoError(t, err)
	second, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.NotEqual(t, data, second, "each call draws a new document")

	replay := NewSyntheticGenerator(42, SynthOptions{Elements: 12})
	_, err = replay.CreateBaseline(context.Background(), dir)
	require.NoError(t, err)
	again, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, data, again, "same seed replays the same first baseline")
}

func TestSyntheticGenerator_Container(t *testing.T) {
	g := NewSyntheticGenerator(1, SynthOptions{})
	g.Name = "page"
	g.Container = true

	path, err := g.CreateBaseline(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ".zip", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	c, err := container.Open(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest.txt", "ui/page.baml"}, c.Names())
	assert.NoError(t, loader.NewContainerLoader("").Load(context.Background(), data))
}

func TestSyntheticGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSyntheticGenerator(1, SynthOptions{}).CreateBaseline(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
