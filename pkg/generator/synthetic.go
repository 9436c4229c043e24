package generator

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/container"
)

// Defaults for SyntheticGenerator.
const (
	DefaultElements = 24
	DefaultDepth    = 4
	DefaultName     = "baseline"
)

var (
	assemblyNames  = []string{"PresentationFramework", "PresentationCore", "WindowsBase"}
	typeNames      = []string{"Window", "Grid", "StackPanel", "Button", "TextBlock", "Border", "Canvas", "ListBox"}
	attributeNames = []string{"Name", "Width", "Height", "Content", "Text", "Margin", "Background", "Orientation"}
	stringValues   = []string{"Auto", "Center", "Stretch", "Horizontal", "Vertical", "Transparent"}
	propertyValues = []string{"100", "Auto", "4,4,4,4", "#FF202020", "OK", "Hello, world", "0"}
)

// SynthOptions shapes a synthesized document.
type SynthOptions struct {
	// Elements caps the number of elements in the tree.
	Elements int
	// Depth caps element nesting below the root.
	Depth int
}

// Synthesize builds a well-formed document from rng: the type tables
// followed by an element tree carrying properties, text, connection ids
// and a deferred content block.
func Synthesize(rng *rand.Rand, opts SynthOptions) []*codec.Record {
	if opts.Elements <= 0 {
		opts.Elements = DefaultElements
	}
	if opts.Depth <= 0 {
		opts.Depth = DefaultDepth
	}

	s := &synth{rng: rng, budget: opts.Elements, nextID: 1 + rng.Int32N(1000)}
	s.emit(codec.TypeDocumentStart, []byte{6, 0, 0, 0, 0, 0, 0, 0})
	for i, name := range assemblyNames {
		s.emit(codec.TypeAssemblyInfo, table(uint16(i), name))
	}
	for i, name := range typeNames {
		s.emit(codec.TypeTypeInfo, table(uint16(i), name, 0))
	}
	for i, name := range attributeNames {
		s.emit(codec.TypeAttributeInfo, table(uint16(i), name, 0))
	}
	for i, value := range stringValues {
		s.emit(codec.TypeStringInfo, table(uint16(i), value))
	}
	s.element(0, opts.Depth)
	s.emit(codec.TypeDocumentEnd, nil)
	return s.records
}

type synth struct {
	rng     *rand.Rand
	budget  int
	nextID  int32
	records []*codec.Record
}

func (s *synth) emit(t codec.RecordType, payload []byte) {
	s.records = append(s.records, codec.MustRecord(t, payload))
}

func (s *synth) element(typeID uint16, depth int) {
	s.budget--
	s.emit(codec.TypeElementStart, u16(typeID))
	if s.rng.IntN(3) > 0 {
		s.records = append(s.records, codec.NewConnectionID(s.nextID))
		s.nextID += 1 + s.rng.Int32N(5)
	}
	if s.rng.IntN(4) == 0 {
		pos := make([]byte, 8)
		binary.LittleEndian.PutUint32(pos, uint32(1+s.rng.IntN(200)))
		binary.LittleEndian.PutUint32(pos[4:], uint32(1+s.rng.IntN(80)))
		s.emit(codec.TypeLineNumberAndPosition, pos)
	}

	for n := s.rng.IntN(4); n > 0; n-- {
		attr := uint16(s.rng.IntN(len(attributeNames)))
		value := propertyValues[s.rng.IntN(len(propertyValues))]
		s.emit(codec.TypeProperty, append(u16(attr), value...))
	}
	if s.rng.IntN(3) == 0 {
		attr := uint16(s.rng.IntN(len(attributeNames)))
		ref := uint16(s.rng.IntN(len(stringValues)))
		s.emit(codec.TypePropertyStringReference, append(u16(attr), u16(ref)...))
	}
	if s.rng.IntN(4) == 0 {
		s.emit(codec.TypeText, []byte(propertyValues[s.rng.IntN(len(propertyValues))]))
	}
	if s.rng.IntN(5) == 0 {
		s.deferred()
	}

	for depth > 0 && s.budget > 0 && s.rng.IntN(4) != 0 {
		s.element(uint16(1+s.rng.IntN(len(typeNames)-1)), depth-1)
	}
	s.emit(codec.TypeElementEnd, nil)
}

// deferred emits a DeferableContentStart whose payload is the byte size
// of the block that follows it.
func (s *synth) deferred() {
	attr := uint16(s.rng.IntN(len(attributeNames)))
	block := []*codec.Record{
		codec.MustRecord(codec.TypeElementStart, u16(uint16(s.rng.IntN(len(typeNames))))),
		codec.MustRecord(codec.TypeProperty, append(u16(attr), propertyValues[s.rng.IntN(len(propertyValues))]...)),
		codec.MustRecord(codec.TypeElementEnd, nil),
	}
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, uint32(codec.StreamSize(block)))
	s.emit(codec.TypeDeferableContentStart, size)
	s.records = append(s.records, block...)
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func table(id uint16, name string, refs ...uint16) []byte {
	b := u16(id)
	for _, r := range refs {
		b = append(b, u16(r)...)
	}
	return append(b, name...)
}

// SyntheticGenerator produces seeded synthetic documents. Each call draws
// a new document from the generator's own random stream, so a campaign
// with a fixed seed replays the same baselines in the same order.
type SyntheticGenerator struct {
	Name    string
	Options SynthOptions
	// Container wraps the stream in a compound file with a manifest part.
	Container bool

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticGenerator creates a synthetic generator seeded with seed.
func NewSyntheticGenerator(seed uint64, opts SynthOptions) *SyntheticGenerator {
	return &SyntheticGenerator{
		Name:    DefaultName,
		Options: opts,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// CreateBaseline implements Generator.
func (g *SyntheticGenerator) CreateBaseline(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	records := Synthesize(g.rng, g.Options)
	g.mu.Unlock()

	name := g.Name
	if name == "" {
		name = DefaultName
	}
	data := codec.EncodeStream(records)
	path := filepath.Join(dir, name+".baml")

	if g.Container {
		c := container.New(
			container.Part{Name: "manifest.txt", Data: []byte(name + "\n")},
			container.Part{Name: "ui/" + name + ".baml", Data: data},
		)
		var err error
		if data, err = c.Bytes(); err != nil {
			return "", &SetupError{Generator: "synthetic", Err: err}
		}
		path = filepath.Join(dir, name+".zip")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &SetupError{Generator: "synthetic", Err: err}
	}
	if err := atomic.WriteFile(path, bytesReader(data)); err != nil {
		return "", setupErr("synthetic", "failed to write %s: %w", path, err)
	}
	return path, nil
}

func (g *SyntheticGenerator) String() string {
	return fmt.Sprintf("synthetic(elements=%d, depth=%d)", g.Options.Elements, g.Options.Depth)
}
