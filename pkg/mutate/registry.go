package mutate

import (
	"fmt"
	"sort"
	"strings"
)

// Strategy names accepted by Build.
const (
	NameShuffle      = "shuffle"
	NameRandomByte   = "random-byte"
	NameInsertion    = "insertion"
	NameConnectionID = "connection-id"
)

// Defaults applied when a parameter is left unset.
const (
	DefaultSwapCount        = 1
	DefaultFrequency        = 64
	DefaultVariance         = 16
	DefaultInsertFrequency  = 1
	DefaultInsertVariance   = 0
	DefaultMaxBytesToInsert = 0
)

// Params holds the named strategy parameters. Nil pointers select defaults.
type Params struct {
	Frequency         *int
	Variance          *int
	SwapCount         *int
	MaxBytesToInsert  *int
	AllowDuplicateIDs bool
}

type constructor func(p Params) (Strategy, error)

var registry = map[string]constructor{
	NameShuffle: func(p Params) (Strategy, error) {
		return NewShuffleStrategy(intOr(p.SwapCount, DefaultSwapCount))
	},
	NameRandomByte: func(p Params) (Strategy, error) {
		return NewRandomByteStrategy(intOr(p.Frequency, DefaultFrequency), intOr(p.Variance, DefaultVariance))
	},
	NameInsertion: func(p Params) (Strategy, error) {
		return NewInsertionStrategy(
			intOr(p.Frequency, DefaultInsertFrequency),
			intOr(p.Variance, DefaultInsertVariance),
			intOr(p.MaxBytesToInsert, DefaultMaxBytesToInsert),
		)
	},
	NameConnectionID: func(p Params) (Strategy, error) {
		return NewConnectionIDStrategy(p.AllowDuplicateIDs), nil
	},
}

var aliases = map[string]string{
	"shuffle":      NameShuffle,
	"randombyte":   NameRandomByte,
	"insertion":    NameInsertion,
	"connectionid": NameConnectionID,
}

// Build constructs the strategy registered under name. Names are matched
// case-insensitively, ignoring '-' and '_' and a trailing "Strategy".
func Build(name string, p Params) (Strategy, error) {
	canonical, ok := Canonical(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	s, err := registry[canonical](p)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", canonical, err)
	}
	return s, nil
}

// Canonical resolves a strategy name or alias.
func Canonical(name string) (string, bool) {
	key := strings.ToLower(name)
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	key = strings.TrimSuffix(key, "strategy")
	canonical, ok := aliases[key]
	return canonical, ok
}

// Names lists the registered strategy names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
