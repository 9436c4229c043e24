package mutate

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

func newSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type recordingTracer struct {
	lines []string
}

func (r *recordingTracer) Tracef(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func variable(t *testing.T, typ codec.RecordType, payload string) *codec.Record {
	t.Helper()
	r, err := codec.NewRecord(typ, []byte(payload))
	require.NoError(t, err)
	return r
}

// mixedDocument returns a stream with all three size classes.
func mixedDocument(t *testing.T) []*codec.Record {
	t.Helper()
	return []*codec.Record{
		codec.MustRecord(codec.TypeDocumentStart, make([]byte, 8)),
		variable(t, codec.TypeAssemblyInfo, "PresentationFramework"),
		variable(t, codec.TypeTypeInfo, "\x01\x00Button"),
		codec.MustRecord(codec.TypeElementStart, []byte{0x01, 0x00}),
		codec.NewConnectionID(1),
		variable(t, codec.TypeProperty, "\x02\x00Click me"),
		codec.MustRecord(codec.TypeElementStart, []byte{0x02, 0x00}),
		codec.NewConnectionID(2),
		variable(t, codec.TypeText, "nested text content"),
		codec.MustRecord(codec.TypeElementEnd, nil),
		codec.MustRecord(codec.TypeElementEnd, nil),
		codec.MustRecord(codec.TypeDocumentEnd, nil),
	}
}

func types(records []*codec.Record) []codec.RecordType {
	out := make([]codec.RecordType, len(records))
	for i, r := range records {
		out[i] = r.Type
	}
	return out
}

func connectionIDs(records []*codec.Record) []int32 {
	var out []int32
	for _, r := range records {
		if id, ok := r.ConnectionID(); ok {
			out = append(out, id)
		}
	}
	return out
}
