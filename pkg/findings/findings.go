// Package findings indexes the unexpected failures of every campaign in a
// pebble database, keyed by time-ordered ksuids.
package findings

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned for an unknown finding id.
var ErrNotFound = errors.New("finding not found")

var prefix = []byte("finding/")

// Finding is one persisted unexpected failure.
type Finding struct {
	ID         ksuid.KSUID `msgpack:"-"`
	Campaign   string      `msgpack:"campaign"`
	Seed       uint64      `msgpack:"seed"`
	Iteration  int         `msgpack:"iteration"`
	Strategies []string    `msgpack:"strategies"`
	Error      string      `msgpack:"error"`
	Detail     string      `msgpack:"detail"`
	FailureDir string      `msgpack:"failure_dir"`
	Time       time.Time   `msgpack:"time"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Campaign string
	Since    time.Time
	Limit    int
}

func (f Filter) match(x *Finding) bool {
	if f.Campaign != "" && x.Campaign != f.Campaign {
		return false
	}
	return f.Since.IsZero() || !x.Time.Before(f.Since)
}

// Store is a findings database
type Store struct {
	db *pebble.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open findings db: %w", err)
	}
	return &Store{db: db}, nil
}

func key(id ksuid.KSUID) []byte {
	return append(append([]byte(nil), prefix...), id.Bytes()...)
}

// Create stores f under a new id, which is also set on f. A zero Time is
// set to now and the id is minted from it.
func (s *Store) Create(f *Finding) (ksuid.KSUID, error) {
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	id, err := ksuid.NewRandomWithTime(f.Time)
	if err != nil {
		return ksuid.Nil, err
	}
	data, err := msgpack.Marshal(f)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("failed to marshal finding: %w", err)
	}
	if err := s.db.Set(key(id), data, pebble.Sync); err != nil {
		return ksuid.Nil, err
	}
	f.ID = id
	return id, nil
}

// Get reads one finding
func (s *Store) Get(id ksuid.KSUID) (*Finding, error) {
	data, closer, err := s.db.Get(key(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	defer closer.Close()
	return decode(id, data)
}

// Delete removes one finding
func (s *Store) Delete(id ksuid.KSUID) error {
	return s.db.Delete(key(id), pebble.Sync)
}

// List returns matching findings oldest first.
func (s *Store) List(filter Filter) ([]*Finding, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*Finding
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(prefix):])
		if err != nil {
			return nil, fmt.Errorf("bad finding key: %w", err)
		}
		f, err := decode(id, iter.Value())
		if err != nil {
			return nil, err
		}
		if !filter.match(f) {
			continue
		}
		out = append(out, f)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, iter.Error()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func decode(id ksuid.KSUID, data []byte) (*Finding, error) {
	var f Finding
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode finding %s: %w", id, err)
	}
	f.ID = id
	return &f, nil
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
