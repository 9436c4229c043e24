package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

func intPtr(v int) *int { return &v }

func TestBuild(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
		want   string
	}{
		{name: "shuffle", want: NameShuffle},
		{name: "ShuffleStrategy", want: NameShuffle},
		{name: "random_byte", want: NameRandomByte},
		{name: "RandomByteStrategy", want: NameRandomByte},
		{name: "Insertion", params: Params{MaxBytesToInsert: intPtr(4)}, want: NameInsertion},
		{name: "connection-id", params: Params{AllowDuplicateIDs: true}, want: NameConnectionID},
		{name: "ConnectionIdStrategy", want: NameConnectionID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Build(tc.name, tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Name())
		})
	}
}

func TestBuild_AppliesParams(t *testing.T) {
	s, err := Build("random-byte", Params{Frequency: intPtr(10), Variance: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, &RandomByteStrategy{Frequency: 10, Variance: 2}, s)

	s, err = Build("shuffle", Params{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSwapCount, s.(*ShuffleStrategy).SwapCount)

	s, err = Build("connection-id", Params{AllowDuplicateIDs: true})
	require.NoError(t, err)
	assert.True(t, s.(*ConnectionIDStrategy).AllowDuplicateIDs)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build("bitflip", Params{})
	assert.ErrorContains(t, err, "unknown strategy")

	_, err = Build("random-byte", Params{Frequency: intPtr(2), Variance: intPtr(5)})
	assert.ErrorContains(t, err, "variance")

	_, err = Build("shuffle", Params{SwapCount: intPtr(-3)})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{NameConnectionID, NameInsertion, NameRandomByte, NameShuffle}, Names())
}

func TestChain(t *testing.T) {
	shuffle, _ := NewShuffleStrategy(3)
	bytes, _ := NewRandomByteStrategy(8, 2)
	chain := Chain{shuffle, bytes, NewConnectionIDStrategy(false)}
	assert.Equal(t, []string{NameShuffle, NameRandomByte, NameConnectionID}, chain.Names())

	run := func() ([]byte, []string) {
		records := mixedDocument(t)
		var order []string
		chain.Apply(records, newSource(21), NopTracer{}, func(s Strategy) { order = append(order, s.Name()) })
		return codec.EncodeStream(records), order
	}
	first, order := run()
	second, _ := run()
	assert.Equal(t, first, second, "a chain sharing one seeded source must be reproducible")
	assert.Equal(t, chain.Names(), order)
}
