package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// DefaultMaxDepth bounds scope nesting in the stream loader.
const DefaultMaxDepth = 256

// Document summarizes a stream accepted by the StreamLoader.
type Document struct {
	Records       int
	Elements      int
	MaxDepth      int
	ConnectionIDs []int32
	Assemblies    map[uint16]string
	Types         map[uint16]string
	Attributes    map[uint16]string
	Strings       map[uint16]string
}

// StreamLoader validates a binary markup stream: framing, scope nesting,
// table references and connection id uniqueness.
type StreamLoader struct {
	MaxDepth int
}

// NewStreamLoader creates a stream loader with default limits.
func NewStreamLoader() *StreamLoader {
	return &StreamLoader{MaxDepth: DefaultMaxDepth}
}

// Load implements Loader.
func (l *StreamLoader) Load(ctx context.Context, data []byte) error {
	_, err := l.Parse(ctx, data)
	return err
}

// Parse loads data and returns its summary.
func (l *StreamLoader) Parse(ctx context.Context, data []byte) (*Document, error) {
	p := &parser{
		maxDepth: l.MaxDepth,
		total:    int64(len(data)),
		ids:      make(map[int32]bool),
		doc: &Document{
			Assemblies: make(map[uint16]string),
			Types:      make(map[uint16]string),
			Attributes: make(map[uint16]string),
			Strings:    make(map[uint16]string),
		},
	}
	if p.maxDepth <= 0 {
		p.maxDepth = DefaultMaxDepth
	}

	d := codec.NewDecoder(bytes.NewReader(data))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := d.Offset()
		r, err := d.ReadNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			le := &LoadError{Offset: start, Index: p.doc.Records, Err: err}
			if r != nil {
				le.Type = r.Type
			}
			return nil, le
		}
		if err := p.record(r, d.Offset()); err != nil {
			return nil, &LoadError{Offset: start, Index: p.doc.Records, Type: r.Type, Err: err}
		}
		p.doc.Records++
	}

	if err := p.finish(); err != nil {
		return nil, &LoadError{Offset: p.total, Index: p.doc.Records, Err: err}
	}
	return p.doc, nil
}

type parser struct {
	maxDepth int
	total    int64
	stack    []codec.RecordType
	ended    bool
	ids      map[int32]bool
	doc      *Document
}

func (p *parser) record(r *codec.Record, end int64) error {
	if !r.Type.Known() {
		return ErrUnknownRecordType
	}
	if p.ended {
		return fmt.Errorf("record after document end: %w", ErrUnbalancedStructure)
	}
	if p.doc.Records == 0 && r.Type != codec.TypeDocumentStart {
		return fmt.Errorf("document must open with DocumentStart: %w", ErrUnbalancedStructure)
	}

	switch {
	case codec.IsStart(r.Type):
		if r.Type == codec.TypeDocumentStart && p.doc.Records != 0 {
			return fmt.Errorf("nested DocumentStart: %w", ErrUnbalancedStructure)
		}
		if len(p.stack) >= p.maxDepth {
			return fmt.Errorf("nesting deeper than %d: %w", p.maxDepth, ErrUnbalancedStructure)
		}
		if err := p.startScope(r); err != nil {
			return err
		}
		p.stack = append(p.stack, r.Type)
		if len(p.stack) > p.doc.MaxDepth {
			p.doc.MaxDepth = len(p.stack)
		}
		return nil

	case codec.IsEnd(r.Type):
		if len(p.stack) == 0 {
			return fmt.Errorf("%s without open scope: %w", r.Type, ErrUnbalancedStructure)
		}
		top := p.stack[len(p.stack)-1]
		want, _ := codec.EndOf(top)
		if want != r.Type {
			return fmt.Errorf("%s closes %s: %w", r.Type, top, ErrUnbalancedStructure)
		}
		p.stack = p.stack[:len(p.stack)-1]
		if r.Type == codec.TypeDocumentEnd {
			p.ended = true
		}
		return nil
	}

	if len(p.stack) == 0 {
		return fmt.Errorf("%s outside document: %w", r.Type, ErrUnbalancedStructure)
	}
	return p.content(r, end)
}

func (p *parser) startScope(r *codec.Record) error {
	switch r.Type {
	case codec.TypeElementStart, codec.TypeNamedElementStart:
		id := binary.LittleEndian.Uint16(r.Data)
		if _, ok := p.doc.Types[id]; !ok {
			return fmt.Errorf("element type %d: %w", id, ErrUnresolvedReference)
		}
		p.doc.Elements++
	case codec.TypePropertyComplexStart, codec.TypePropertyArrayStart,
		codec.TypePropertyIListStart, codec.TypePropertyIDictionaryStart:
		id := binary.LittleEndian.Uint16(r.Data)
		if _, ok := p.doc.Attributes[id]; !ok {
			return fmt.Errorf("property attribute %d: %w", id, ErrUnresolvedReference)
		}
	}
	return nil
}

func (p *parser) content(r *codec.Record, end int64) error {
	switch r.Type {
	case codec.TypeAssemblyInfo:
		id, name, err := idAndName(r, 2)
		if err != nil {
			return err
		}
		p.doc.Assemblies[id] = name

	case codec.TypeTypeInfo:
		id, name, err := idAndName(r, 4)
		if err != nil {
			return err
		}
		asm := binary.LittleEndian.Uint16(r.Data[2:])
		if _, ok := p.doc.Assemblies[asm]; !ok {
			return fmt.Errorf("type %q assembly %d: %w", name, asm, ErrUnresolvedReference)
		}
		p.doc.Types[id] = name

	case codec.TypeAttributeInfo:
		id, name, err := idAndName(r, 4)
		if err != nil {
			return err
		}
		owner := binary.LittleEndian.Uint16(r.Data[2:])
		if _, ok := p.doc.Types[owner]; !ok {
			return fmt.Errorf("attribute %q owner type %d: %w", name, owner, ErrUnresolvedReference)
		}
		p.doc.Attributes[id] = name

	case codec.TypeStringInfo:
		id, value, err := idAndName(r, 2)
		if err != nil {
			return err
		}
		p.doc.Strings[id] = value

	case codec.TypeProperty, codec.TypePropertyCustom, codec.TypePropertyWithConverter,
		codec.TypePropertyWithExtension:
		if len(r.Data) < 2 {
			return fmt.Errorf("%s payload shorter than attribute id: %w", r.Type, codec.ErrInvalidRecordSize)
		}
		return p.attribute(binary.LittleEndian.Uint16(r.Data))

	case codec.TypePropertyStringReference:
		if err := p.attribute(binary.LittleEndian.Uint16(r.Data)); err != nil {
			return err
		}
		sid := binary.LittleEndian.Uint16(r.Data[2:])
		if _, ok := p.doc.Strings[sid]; !ok {
			return fmt.Errorf("string %d: %w", sid, ErrUnresolvedReference)
		}

	case codec.TypeConnectionID:
		id, _ := r.ConnectionID()
		top := p.stack[len(p.stack)-1]
		if top != codec.TypeElementStart && top != codec.TypeNamedElementStart {
			return fmt.Errorf("connection id %d outside an element: %w", id, ErrUnresolvedReference)
		}
		if p.ids[id] {
			return fmt.Errorf("connection id %d: %w", id, ErrDuplicateConnectionID)
		}
		p.ids[id] = true
		p.doc.ConnectionIDs = append(p.doc.ConnectionIDs, id)

	case codec.TypeDeferableContentStart:
		size := int64(int32(binary.LittleEndian.Uint32(r.Data)))
		if size < 0 {
			return fmt.Errorf("deferred content size %d: %w", size, codec.ErrInvalidRecordSize)
		}
		if end+size > p.total {
			return fmt.Errorf("deferred content of %d bytes past end of stream: %w", size, codec.ErrTruncatedStream)
		}
	}
	return nil
}

func (p *parser) attribute(id uint16) error {
	if _, ok := p.doc.Attributes[id]; !ok {
		return fmt.Errorf("attribute %d: %w", id, ErrUnresolvedReference)
	}
	return nil
}

func (p *parser) finish() error {
	if p.doc.Records == 0 {
		return fmt.Errorf("empty document: %w", codec.ErrTruncatedStream)
	}
	if !p.ended {
		return fmt.Errorf("%d scopes still open at end of stream: %w", len(p.stack), codec.ErrTruncatedStream)
	}
	return nil
}

// idAndName splits a table record into a leading 16-bit id and the text
// after a header of n bytes.
func idAndName(r *codec.Record, n int) (uint16, string, error) {
	if len(r.Data) < n {
		return 0, "", fmt.Errorf("%s payload of %d bytes shorter than %d byte header: %w",
			r.Type, len(r.Data), n, codec.ErrInvalidRecordSize)
	}
	return binary.LittleEndian.Uint16(r.Data), string(r.Data[n:]), nil
}
