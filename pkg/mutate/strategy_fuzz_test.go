//go:build fuzz
// +build fuzz

package mutate

import (
	"math/rand/v2"
	"testing"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// FuzzStrategies_NeverPanic runs every registered strategy over arbitrary
// decodable input and checks that the result still encodes.
func FuzzStrategies_NeverPanic(f *testing.F) {
	f.Add([]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00}, uint64(1))
	f.Add([]byte{0x10, 0x00, 0x09, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o'}, uint64(7))
	f.Add([]byte{0x2d, 0x00, 0x0a, 0x00, 0x00, 0x00}, uint64(42))

	f.Fuzz(func(t *testing.T, data []byte, seed uint64) {
		records, _ := codec.DecodeStream(data)
		if len(records) == 0 {
			return
		}
		src := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for _, name := range Names() {
			s, err := Build(name, Params{})
			if err != nil {
				t.Fatalf("build %s: %v", name, err)
			}
			s.Apply(records, src, NopTracer{})
		}
		_ = codec.EncodeStream(records)
	})
}
