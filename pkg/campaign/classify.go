package campaign

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/ssargent/bmlfuzz/pkg/codec"
	"github.com/ssargent/bmlfuzz/pkg/container"
	"github.com/ssargent/bmlfuzz/pkg/generator"
	"github.com/ssargent/bmlfuzz/pkg/loader"
)

// Class is the triage bucket of a failed iteration.
type Class int

const (
	// ClassExpected is a benign format rejection.
	ClassExpected Class = iota
	// ClassUnexpected is a finding worth persisting.
	ClassUnexpected
	// ClassSetup is a harness failure before anything was loaded.
	ClassSetup
)

func (c Class) String() string {
	switch c {
	case ClassExpected:
		return "expected"
	case ClassUnexpected:
		return "unexpected"
	case ClassSetup:
		return "setup"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ClassifiedError is a failure together with its triage decision. Causes
// holds the unwrap chain, outermost first.
type ClassifiedError struct {
	Class     Class
	Signature string
	Causes    []error
}

func (e *ClassifiedError) Error() string {
	if len(e.Causes) == 0 {
		return e.Class.String() + " failure"
	}
	return fmt.Sprintf("%s failure: %v", e.Class, e.Causes[0])
}

func (e *ClassifiedError) Unwrap() error {
	if len(e.Causes) == 0 {
		return nil
	}
	return e.Causes[0]
}

// Innermost returns the deepest cause.
func (e *ClassifiedError) Innermost() error {
	if len(e.Causes) == 0 {
		return nil
	}
	return e.Causes[len(e.Causes)-1]
}

// Detail renders every cause on its own line, outermost first.
func (e *ClassifiedError) Detail() string {
	var b strings.Builder
	fmt.Fprintf(&b, "classification: %s", e.Class)
	if e.Signature != "" {
		fmt.Fprintf(&b, " (%s)", e.Signature)
	}
	b.WriteByte('\n')
	for i, c := range e.Causes {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", i), c, c)
		if p, ok := c.(*PanicError); ok {
			b.Write(p.Stack)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Signature recognizes one family of benign rejections.
type Signature struct {
	Name  string
	Match func(err error) bool
}

// Built-in signature names.
const (
	SigTruncatedStream       = "truncated-stream"
	SigInvalidRecordSize     = "invalid-record-size"
	SigUnknownRecordType     = "unknown-record-type"
	SigMalformedContainer    = "malformed-container"
	SigCorruptCompressedData = "corrupt-compressed-data"
	SigInvalidStorageCall    = "invalid-storage-call"
	SigUnbalancedStructure   = "unbalanced-structure"
	SigUnresolvedReference   = "unresolved-reference"
	SigDuplicateConnectionID = "duplicate-connection-id"
)

// MessagePrefix introduces a signature matching on error text.
const MessagePrefix = "message:"

func is(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

var signatures = map[string]Signature{
	SigTruncatedStream:    {SigTruncatedStream, is(codec.ErrTruncatedStream, io.ErrUnexpectedEOF)},
	SigInvalidRecordSize:  {SigInvalidRecordSize, is(codec.ErrInvalidRecordSize)},
	SigUnknownRecordType:  {SigUnknownRecordType, is(loader.ErrUnknownRecordType)},
	SigMalformedContainer: {SigMalformedContainer, is(container.ErrMalformedContainer, zip.ErrFormat, zip.ErrAlgorithm)},
	SigCorruptCompressedData: {SigCorruptCompressedData, func(err error) bool {
		var corrupt flate.CorruptInputError
		return errors.As(err, &corrupt) || is(container.ErrCorruptCompressedData, zip.ErrChecksum)(err)
	}},
	SigInvalidStorageCall:    {SigInvalidStorageCall, is(container.ErrInvalidStorageCall)},
	SigUnbalancedStructure:   {SigUnbalancedStructure, is(loader.ErrUnbalancedStructure)},
	SigUnresolvedReference:   {SigUnresolvedReference, is(loader.ErrUnresolvedReference)},
	SigDuplicateConnectionID: {SigDuplicateConnectionID, is(loader.ErrDuplicateConnectionID)},
}

// DefaultExpected names the signatures allowed when a campaign lists none:
// rejections of damaged bytes, not of damaged meaning.
var DefaultExpected = []string{
	SigTruncatedStream,
	SigInvalidRecordSize,
	SigUnknownRecordType,
	SigMalformedContainer,
	SigCorruptCompressedData,
	SigInvalidStorageCall,
}

// SignatureNames lists the built-in signatures.
func SignatureNames() []string {
	names := make([]string, 0, len(signatures))
	for name := range signatures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowList is the set of signatures whose failures are benign.
type AllowList []Signature

// NewAllowList resolves signature names. Entries starting with "message:"
// match any error whose text contains the rest of the entry. An empty list
// selects DefaultExpected.
func NewAllowList(names []string) (AllowList, error) {
	if len(names) == 0 {
		names = DefaultExpected
	}
	list := make(AllowList, 0, len(names))
	for _, name := range names {
		if text, ok := strings.CutPrefix(name, MessagePrefix); ok {
			if text == "" {
				return nil, fmt.Errorf("empty message signature")
			}
			list = append(list, Signature{Name: name, Match: func(err error) bool {
				return strings.Contains(err.Error(), text)
			}})
			continue
		}
		sig, ok := signatures[name]
		if !ok {
			return nil, fmt.Errorf("unknown failure signature %q (known: %s)", name, strings.Join(SignatureNames(), ", "))
		}
		list = append(list, sig)
	}
	return list, nil
}

// Match returns the first signature matching err.
func (l AllowList) Match(err error) (string, bool) {
	for _, s := range l {
		if s.Match(err) {
			return s.Name, true
		}
	}
	return "", false
}

// Classify triages a failure. A failure is expected only when both the
// outermost error and its innermost cause match the allow list; setup
// errors are never findings. Classify returns nil for a nil error.
func Classify(err error, allow AllowList) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	causes := chain(err)
	result := &ClassifiedError{Class: ClassUnexpected, Causes: causes}

	var setup *generator.SetupError
	if errors.As(err, &setup) {
		result.Class = ClassSetup
		return result
	}

	if _, ok := allow.Match(causes[0]); !ok {
		return result
	}
	if name, ok := allow.Match(causes[len(causes)-1]); ok {
		result.Class = ClassExpected
		result.Signature = name
	}
	return result
}

// chain unwraps err into its cause list, outermost first. Joined errors
// contribute their first branch.
func chain(err error) []error {
	var causes []error
	for err != nil {
		causes = append(causes, err)
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			err = nil
			if len(errs) > 0 {
				err = errs[0]
			}
		default:
			err = nil
		}
	}
	return causes
}

// PanicError is a loader panic recovered during the Load step.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("loader panicked: %v", e.Value)
}
