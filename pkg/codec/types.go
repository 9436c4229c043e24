package codec

import "fmt"

// RecordType is the 16-bit tag identifying a record's semantic kind.
type RecordType uint16

// Record kinds of the binary markup format.
const (
	TypeUnknown RecordType = iota
	TypeDocumentStart
	TypeDocumentEnd
	TypeElementStart
	TypeElementEnd
	TypeProperty
	TypePropertyCustom
	TypePropertyComplexStart
	TypePropertyComplexEnd
	TypePropertyArrayStart
	TypePropertyArrayEnd
	TypePropertyIListStart
	TypePropertyIListEnd
	TypePropertyIDictionaryStart
	TypePropertyIDictionaryEnd
	TypeLiteralContent
	TypeText
	TypeTextWithConverter
	TypeRoutedEvent
	TypeClrEvent
	TypeXmlnsProperty
	TypeXmlAttribute
	TypeProcessingInstruction
	TypeComment
	TypeDefTag
	TypeDefAttribute
	TypeEndAttributes
	TypePIMapping
	TypeAssemblyInfo
	TypeTypeInfo
	TypeTypeSerializerInfo
	TypeAttributeInfo
	TypeStringInfo
	TypePropertyStringReference
	TypePropertyTypeReference
	TypePropertyWithExtension
	TypePropertyWithConverter
	TypeDeferableContentStart
	TypeDefAttributeKeyString
	TypeDefAttributeKeyType
	TypeKeyElementStart
	TypeKeyElementEnd
	TypeConstructorParametersStart
	TypeConstructorParametersEnd
	TypeConstructorParameterType
	TypeConnectionID
	TypeContentProperty
	TypeNamedElementStart
	TypeStaticResourceStart
	TypeStaticResourceEnd
	TypeStaticResourceID
	TypeTextWithID
	TypePresentationOptionsAttribute
	TypeLineNumberAndPosition
	TypeLinePosition
	TypeOptimizedStaticResource
	TypePropertyWithStaticResourceID

	// typeCount is one past the last known record type.
	typeCount
)

var typeNames = [...]string{
	"Unknown", "DocumentStart", "DocumentEnd", "ElementStart", "ElementEnd",
	"Property", "PropertyCustom", "PropertyComplexStart", "PropertyComplexEnd",
	"PropertyArrayStart", "PropertyArrayEnd", "PropertyIListStart",
	"PropertyIListEnd", "PropertyIDictionaryStart", "PropertyIDictionaryEnd",
	"LiteralContent", "Text", "TextWithConverter", "RoutedEvent", "ClrEvent",
	"XmlnsProperty", "XmlAttribute", "ProcessingInstruction", "Comment",
	"DefTag", "DefAttribute", "EndAttributes", "PIMapping", "AssemblyInfo",
	"TypeInfo", "TypeSerializerInfo", "AttributeInfo", "StringInfo",
	"PropertyStringReference", "PropertyTypeReference",
	"PropertyWithExtension", "PropertyWithConverter", "DeferableContentStart",
	"DefAttributeKeyString", "DefAttributeKeyType", "KeyElementStart",
	"KeyElementEnd", "ConstructorParametersStart", "ConstructorParametersEnd",
	"ConstructorParameterType", "ConnectionId", "ContentProperty",
	"NamedElementStart", "StaticResourceStart", "StaticResourceEnd",
	"StaticResourceId", "TextWithId", "PresentationOptionsAttribute",
	"LineNumberAndPosition", "LinePosition", "OptimizedStaticResource",
	"PropertyWithStaticResourceId",
}

func (t RecordType) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("RecordType(%d)", uint16(t))
}

// Known reports whether t is one of the enumerated record kinds.
func (t RecordType) Known() bool {
	return t > TypeUnknown && t < typeCount
}

// Kind is the payload-length-determination variant of a record.
type Kind uint8

const (
	// KindVariable records carry a 4-byte size field before the payload.
	KindVariable Kind = iota
	// KindFixed records have a payload length implied by their type.
	KindFixed
	// KindConnectionID is a 4-byte fixed record holding a signed 32-bit id.
	KindConnectionID
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFixed:
		return "fixed"
	case KindConnectionID:
		return "connection-id"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// fixedSizes maps every FixedSize record type to its payload length.
var fixedSizes = map[RecordType]int{
	TypeDocumentEnd:                0,
	TypeElementEnd:                 0,
	TypePropertyComplexEnd:         0,
	TypePropertyArrayEnd:           0,
	TypePropertyIListEnd:           0,
	TypePropertyIDictionaryEnd:     0,
	TypeEndAttributes:              0,
	TypeKeyElementEnd:              0,
	TypeConstructorParametersStart: 0,
	TypeConstructorParametersEnd:   0,
	TypeStaticResourceEnd:          0,

	TypeElementStart:             2,
	TypePropertyComplexStart:     2,
	TypePropertyArrayStart:       2,
	TypePropertyIListStart:       2,
	TypePropertyIDictionaryStart: 2,
	TypeConstructorParameterType: 2,
	TypeContentProperty:          2,
	TypeNamedElementStart:        2,
	TypeStaticResourceStart:      2,
	TypeStaticResourceID:         2,
	TypeTextWithID:               2,

	TypeConnectionID:                 4,
	TypeDeferableContentStart:        4,
	TypePropertyStringReference:      4,
	TypePropertyTypeReference:        4,
	TypeLinePosition:                 4,
	TypePropertyWithStaticResourceID: 4,

	TypeDocumentStart:         8,
	TypeLineNumberAndPosition: 8,
}

// ClassOf returns the size class of a record type and, for fixed classes,
// the payload length. Unknown tags are VariableSize.
func ClassOf(t RecordType) (Kind, int) {
	n, ok := fixedSizes[t]
	if !ok {
		return KindVariable, 0
	}
	if t == TypeConnectionID {
		return KindConnectionID, n
	}
	return KindFixed, n
}

// IsStart reports whether t opens a scope closed by EndOf(t).
func IsStart(t RecordType) bool {
	_, ok := scopePairs[t]
	return ok
}

// EndOf returns the record type closing the scope opened by t.
func EndOf(t RecordType) (RecordType, bool) {
	end, ok := scopePairs[t]
	return end, ok
}

// IsEnd reports whether t closes a scope.
func IsEnd(t RecordType) bool {
	_, ok := scopeEnds[t]
	return ok
}

var scopePairs = map[RecordType]RecordType{
	TypeDocumentStart:              TypeDocumentEnd,
	TypeElementStart:               TypeElementEnd,
	TypeNamedElementStart:          TypeElementEnd,
	TypePropertyComplexStart:       TypePropertyComplexEnd,
	TypePropertyArrayStart:         TypePropertyArrayEnd,
	TypePropertyIListStart:         TypePropertyIListEnd,
	TypePropertyIDictionaryStart:   TypePropertyIDictionaryEnd,
	TypeKeyElementStart:            TypeKeyElementEnd,
	TypeConstructorParametersStart: TypeConstructorParametersEnd,
	TypeStaticResourceStart:        TypeStaticResourceEnd,
}

var scopeEnds = func() map[RecordType]struct{} {
	m := make(map[RecordType]struct{}, len(scopePairs))
	for _, end := range scopePairs {
		m[end] = struct{}{}
	}
	return m
}()
