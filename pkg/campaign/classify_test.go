package campaign

import (
	"errors"
	"fmt"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/container"
	"github.com/ssargent/bmlfuzz/pkg/generator"
	"github.com/ssargent/bmlfuzz/pkg/loader"
)

func mustAllow(t *testing.T, names ...string) AllowList {
	t.Helper()
	allow, err := NewAllowList(names)
	require.NoError(t, err)
	return allow
}

func TestClassify(t *testing.T) {
	defaults := mustAllow(t)

	truncated := &loader.LoadError{Index: 3, Err: &codec.DecodeError{Index: 3, Err: codec.ErrTruncatedStream}}
	unbalanced := &loader.LoadError{Err: fmt.Errorf("ElementEnd closes DocumentStart: %w", loader.ErrUnbalancedStructure)}

	tests := []struct {
		name      string
		err       error
		allow     AllowList
		class     Class
		signature string
	}{
		{"truncated stream", truncated, defaults, ClassExpected, SigTruncatedStream},
		{"invalid size", fmt.Errorf("decode: %w", codec.ErrInvalidRecordSize), defaults, ClassExpected, SigInvalidRecordSize},
		{"unknown record", &loader.LoadError{Err: loader.ErrUnknownRecordType}, defaults, ClassExpected, SigUnknownRecordType},
		{"structural rejection is a finding by default", unbalanced, defaults, ClassUnexpected, ""},
		{"structural rejection when allowed", unbalanced, mustAllow(t, SigUnbalancedStructure), ClassExpected, SigUnbalancedStructure},
		{"duplicate id", &loader.LoadError{Err: loader.ErrDuplicateConnectionID}, mustAllow(t, SigDuplicateConnectionID), ClassExpected, SigDuplicateConnectionID},
		{
			name:  "allowed wrapper around foreign cause",
			err:   &container.Error{Op: "open", Kind: container.ErrMalformedContainer, Err: errors.New("disk on fire")},
			allow: defaults,
			class: ClassUnexpected,
		},
		{
			name:  "corrupt data wrapper around foreign cause",
			err:   &container.Error{Op: "read", Kind: container.ErrCorruptCompressedData, Err: fmt.Errorf("inflate: %w", errors.New("x"))},
			allow: defaults,
			class: ClassUnexpected,
		},
		{
			name:      "corrupt data wrapper around checksum failure",
			err:       &container.Error{Op: "read", Kind: container.ErrCorruptCompressedData, Err: zip.ErrChecksum},
			allow:     defaults,
			class:     ClassExpected,
			signature: SigCorruptCompressedData,
		},
		{
			name:      "storage call without cause",
			err:       fmt.Errorf("part x: %w", &container.Error{Op: "get", Part: "x", Kind: container.ErrInvalidStorageCall}),
			allow:     defaults,
			class:     ClassExpected,
			signature: SigInvalidStorageCall,
		},
		{"foreign error", errors.New("nil pointer dereference"), defaults, ClassUnexpected, ""},
		{"panic", &PanicError{Value: "boom"}, defaults, ClassUnexpected, ""},
		{"setup", &generator.SetupError{Generator: "command", Err: errors.New("compiler missing")}, defaults, ClassSetup, ""},
		{
			name:      "message signature",
			err:       &loader.ProcessError{Command: "load", ExitCode: 2, Output: "XamlParseException: bad header"},
			allow:     mustAllow(t, "message:bad header"),
			class:     ClassExpected,
			signature: "message:bad header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err, tt.allow)
			require.NotNil(t, ce)
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, tt.signature, ce.Signature)
			assert.Same(t, tt.err, ce.Causes[0])
			assert.ErrorIs(t, ce, tt.err)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil, mustAllow(t)))
}

func TestClassify_CauseChain(t *testing.T) {
	inner := &codec.DecodeError{Err: codec.ErrTruncatedStream}
	outer := &loader.LoadError{Err: inner}

	ce := Classify(outer, mustAllow(t))
	require.Len(t, ce.Causes, 3)
	assert.Same(t, outer, ce.Causes[0])
	assert.Same(t, inner, ce.Causes[1])
	assert.Equal(t, codec.ErrTruncatedStream, ce.Innermost())

	detail := ce.Detail()
	assert.Contains(t, detail, "classification: expected (truncated-stream)")
	assert.Contains(t, detail, "*loader.LoadError")
	assert.Contains(t, detail, "    *errors.errorString: truncated stream")
}

func TestClassify_AlreadyClassified(t *testing.T) {
	ce := &ClassifiedError{Class: ClassSetup, Causes: []error{errors.New("x")}}
	assert.Same(t, ce, Classify(fmt.Errorf("wrapped: %w", ce), mustAllow(t)))
}

func TestNewAllowList(t *testing.T) {
	allow := mustAllow(t)
	names := make([]string, len(allow))
	for i, s := range allow {
		names[i] = s.Name
	}
	assert.Equal(t, DefaultExpected, names)

	_, err := NewAllowList([]string{"stack-overflow"})
	assert.ErrorContains(t, err, "unknown failure signature")

	_, err = NewAllowList([]string{"message:"})
	assert.Error(t, err)

	assert.Len(t, SignatureNames(), 9)
}
