package mutate

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

func TestShuffle_ZeroSwapsIsNoop(t *testing.T) {
	records := mixedDocument(t)
	before := codec.EncodeStream(records)

	s, err := NewShuffleStrategy(0)
	require.NoError(t, err)
	s.Apply(records, newSource(1), NopTracer{})

	assert.Equal(t, before, codec.EncodeStream(records))
}

func TestShuffle_ShortSequenceIsNoop(t *testing.T) {
	s, err := NewShuffleStrategy(50)
	require.NoError(t, err)

	for _, records := range [][]*codec.Record{
		nil,
		{codec.MustRecord(codec.TypeElementEnd, nil)},
	} {
		before := codec.EncodeStream(records)
		tr := &recordingTracer{}
		s.Apply(records, newSource(7), tr)
		assert.Equal(t, before, codec.EncodeStream(records))
		assert.Empty(t, tr.lines)
	}
}

func TestShuffle_PreservesRecordBytes(t *testing.T) {
	records := mixedDocument(t)
	want := map[string]int{}
	for _, r := range records {
		want[string(r.Encode())]++
	}

	s, _ := NewShuffleStrategy(25)
	s.Apply(records, newSource(3), NopTracer{})

	got := map[string]int{}
	for _, r := range records {
		got[string(r.Encode())]++
	}
	assert.Equal(t, want, got)
}

func TestShuffle_SwapsDistinctPositions(t *testing.T) {
	records := []*codec.Record{
		codec.MustRecord(codec.TypeElementStart, []byte{1, 0}),
		codec.MustRecord(codec.TypeElementEnd, nil),
	}
	s, _ := NewShuffleStrategy(1)
	s.Apply(records, newSource(11), NopTracer{})

	// With two records the only distinct pair is (0,1).
	assert.Equal(t, []codec.RecordType{codec.TypeElementEnd, codec.TypeElementStart}, types(records))
}

// Three fixed records {ElementStart, ElementEnd, DocumentEnd} with one swap
// must produce the same permutation for the same seed.
func TestShuffle_DeterministicForSeed(t *testing.T) {
	build := func() []*codec.Record {
		return []*codec.Record{
			codec.MustRecord(codec.TypeElementStart, []byte{1, 0}),
			codec.MustRecord(codec.TypeElementEnd, nil),
			codec.MustRecord(codec.TypeDocumentEnd, nil),
		}
	}
	s, _ := NewShuffleStrategy(1)

	first := build()
	s.Apply(first, newSource(42), NopTracer{})
	for run := 0; run < 5; run++ {
		again := build()
		s.Apply(again, newSource(42), NopTracer{})
		if diff := cmp.Diff(types(first), types(again)); diff != "" {
			t.Fatalf("run %d permutation differs (-first +again):\n%s", run, diff)
		}
	}

	assert.NotEqual(t, types(build()), types(first), "one swap of distinct positions must change the order")
	assert.False(t, bytes.Equal(codec.EncodeStream(build()), codec.EncodeStream(first)))
}

func TestNewShuffleStrategy_RejectsNegative(t *testing.T) {
	_, err := NewShuffleStrategy(-1)
	assert.Error(t, err)
}
