package loader

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/generator"
)

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func rec(t codec.RecordType, payload ...byte) *codec.Record {
	return codec.MustRecord(t, payload)
}

func element(typeID uint16) *codec.Record {
	return codec.MustRecord(codec.TypeElementStart, u16(typeID))
}

func property(attr uint16, value string) *codec.Record {
	return codec.MustRecord(codec.TypeProperty, append(u16(attr), value...))
}

// document frames body with a document header and minimal tables:
// assembly 0, type 0, attribute 0 and string 0.
func document(body ...*codec.Record) []byte {
	records := []*codec.Record{
		codec.MustRecord(codec.TypeDocumentStart, make([]byte, 8)),
		codec.MustRecord(codec.TypeAssemblyInfo, append(u16(0), "PresentationFramework"...)),
		codec.MustRecord(codec.TypeTypeInfo, append(append(u16(0), u16(0)...), "Grid"...)),
		codec.MustRecord(codec.TypeAttributeInfo, append(append(u16(0), u16(0)...), "Width"...)),
		codec.MustRecord(codec.TypeStringInfo, append(u16(0), "Auto"...)),
	}
	records = append(records, body...)
	records = append(records, rec(codec.TypeDocumentEnd))
	return codec.EncodeStream(records)
}

func validBody() []*codec.Record {
	return []*codec.Record{
		element(0),
		codec.NewConnectionID(10),
		property(0, "100"),
		codec.MustRecord(codec.TypePropertyStringReference, append(u16(0), u16(0)...)),
		element(0),
		codec.NewConnectionID(20),
		rec(codec.TypeElementEnd),
		rec(codec.TypeElementEnd),
	}
}

func TestStreamLoader_AcceptsWellFormedDocument(t *testing.T) {
	doc, err := NewStreamLoader().Parse(context.Background(), document(validBody()...))
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Elements)
	assert.Equal(t, 3, doc.MaxDepth)
	assert.Equal(t, []int32{10, 20}, doc.ConnectionIDs)
	assert.Equal(t, "Grid", doc.Types[0])
	assert.Equal(t, "Width", doc.Attributes[0])
	assert.Equal(t, "Auto", doc.Strings[0])
	assert.Equal(t, 14, doc.Records)
}

func TestStreamLoader_Rejections(t *testing.T) {
	valid := document(validBody()...)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "empty input",
			data: nil,
			want: codec.ErrTruncatedStream,
		},
		{
			name: "cut inside last record",
			data: valid[:len(valid)-1],
			want: codec.ErrTruncatedStream,
		},
		{
			name: "cut between records",
			data: valid[:len(valid)-2],
			want: codec.ErrTruncatedStream,
		},
		{
			name: "size field below minimum",
			data: []byte{0x05, 0x00, 0x02, 0x00, 0x00, 0x00},
			want: codec.ErrInvalidRecordSize,
		},
		{
			name: "unknown record type",
			data: document(element(0), codec.MustRecord(codec.RecordType(0x7777), []byte("x")), rec(codec.TypeElementEnd)),
			want: ErrUnknownRecordType,
		},
		{
			name: "missing document start",
			data: codec.EncodeStream([]*codec.Record{element(0), rec(codec.TypeElementEnd)}),
			want: ErrUnbalancedStructure,
		},
		{
			name: "unclosed element",
			data: document(element(0)),
			want: ErrUnbalancedStructure,
		},
		{
			name: "stray end",
			data: document(rec(codec.TypePropertyComplexEnd)),
			want: ErrUnbalancedStructure,
		},
		{
			name: "record after document end",
			data: append(document(), rec(codec.TypeElementEnd).Encode()...),
			want: ErrUnbalancedStructure,
		},
		{
			name: "undeclared element type",
			data: document(element(5), rec(codec.TypeElementEnd)),
			want: ErrUnresolvedReference,
		},
		{
			name: "undeclared attribute",
			data: document(element(0), property(7, "x"), rec(codec.TypeElementEnd)),
			want: ErrUnresolvedReference,
		},
		{
			name: "undeclared string",
			data: document(element(0), codec.MustRecord(codec.TypePropertyStringReference, append(u16(0), u16(9)...)), rec(codec.TypeElementEnd)),
			want: ErrUnresolvedReference,
		},
		{
			name: "connection id outside element",
			data: document(codec.NewConnectionID(3)),
			want: ErrUnresolvedReference,
		},
		{
			name: "duplicate connection id",
			data: document(
				element(0), codec.NewConnectionID(10), rec(codec.TypeElementEnd),
				element(0), codec.NewConnectionID(10), rec(codec.TypeElementEnd),
			),
			want: ErrDuplicateConnectionID,
		},
		{
			name: "deferred content past end",
			data: document(element(0), codec.MustRecord(codec.TypeDeferableContentStart, u32(1000)), rec(codec.TypeElementEnd)),
			want: codec.ErrTruncatedStream,
		},
		{
			name: "table record shorter than header",
			data: document(codec.MustRecord(codec.TypeTypeInfo, []byte{1})),
			want: codec.ErrInvalidRecordSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStreamLoader().Load(context.Background(), tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var le *LoadError
			assert.True(t, errors.As(err, &le), "expected *LoadError, got %T", err)
		})
	}
}

func TestStreamLoader_LoadErrorLocatesRecord(t *testing.T) {
	err := NewStreamLoader().Load(context.Background(), document(element(5), rec(codec.TypeElementEnd)))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 5, le.Index)
	assert.Equal(t, codec.TypeElementStart, le.Type)
	assert.Contains(t, le.Error(), "ElementStart")
}

func TestStreamLoader_MaxDepth(t *testing.T) {
	l := &StreamLoader{MaxDepth: 2}
	err := l.Load(context.Background(), document(element(0), element(0), rec(codec.TypeElementEnd), rec(codec.TypeElementEnd)))
	assert.ErrorIs(t, err, ErrUnbalancedStructure)
}

func TestStreamLoader_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewStreamLoader().Load(ctx, document(validBody()...))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamLoader_AcceptsSynthesizedDocuments(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed))
		records := generator.Synthesize(rng, generator.SynthOptions{Elements: 30, Depth: 5})

		doc, err := NewStreamLoader().Parse(context.Background(), codec.EncodeStream(records))
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, len(records), doc.Records)
		assert.Positive(t, doc.Elements)
	}
}
