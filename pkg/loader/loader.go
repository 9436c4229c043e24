// Package loader consumes binary markup streams the way a format loader
// does, reporting every rejection as a typed error.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// Loader consumes a serialized document and reports whether it was accepted.
type Loader interface {
	Load(ctx context.Context, data []byte) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, data []byte) error

func (f LoaderFunc) Load(ctx context.Context, data []byte) error {
	return f(ctx, data)
}

var (
	// ErrUnknownRecordType means a tag outside the known record kinds.
	ErrUnknownRecordType = errors.New("unknown record type")
	// ErrUnbalancedStructure means start/end records do not pair up.
	ErrUnbalancedStructure = errors.New("unbalanced structure")
	// ErrUnresolvedReference means a record refers to an undeclared id.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrDuplicateConnectionID means two ConnectionId records share a value.
	ErrDuplicateConnectionID = errors.New("duplicate connection id")
)

// LoadError locates a rejection within the stream.
type LoadError struct {
	Offset int64
	Index  int
	Type   codec.RecordType
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed at record %d (%s), offset %d: %v", e.Index, e.Type, e.Offset, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
