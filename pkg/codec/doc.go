// Package codec provides record serialization and deserialization for the
// binary markup stream.
//
// A binary markup document is a flat sequence of tagged records. Nesting
// (element start/end, property start/end, ...) is expressed by record order
// only, so a decoder never needs to understand structure to split a stream
// into records.
//
// # Record Format
//
// Every record starts with a 2-byte type tag. What follows depends on the
// record's size class, which is a static function of the tag:
//
//	FixedSize:    [Type(2)][Payload(0|2|4|8)]
//	VariableSize: [Type(2)][Size(4)][Payload(Size-4)]
//
// Fields:
//   - Type: 16-bit record kind (little-endian), see RecordType
//   - Size: 32-bit unsigned total of the size field plus the payload
//     (little-endian). Present only for VariableSize records.
//   - Payload: raw record data
//
// ConnectionId records are FixedSize records with a 4-byte payload holding a
// little-endian signed 32-bit identifier.
//
// Tags missing from the size table are treated as VariableSize.
//
// # Declared vs. raw size
//
// Record.DeclaredSize is the size field exactly as it was read or will be
// written. It is allowed to disagree with the payload length: the encoder
// always writes DeclaredSize and Data as they are, which is what lets the
// mutation strategies produce malformed size fields. For well-formed input,
// decoding and re-encoding reproduces the original bytes.
//
// A record's size class is fixed when it is decoded or constructed.
// Corrupting its Type afterwards does not change how it is encoded.
//
// # Usage
//
//	records, err := codec.DecodeStream(data)
//	if err != nil {
//	    return err // records holds everything decoded before the failure
//	}
//
//	out := codec.EncodeStream(records)
//
// # Error Handling
//
// Running out of input inside a record yields an error wrapping
// ErrTruncatedStream. A VariableSize record whose size field is smaller
// than the size field itself yields ErrInvalidRecordSize. Both are reported
// through *DecodeError, which carries the stream offset and record type.
//
// # Thread Safety
//
// The stream functions keep no state and are safe for concurrent use.
// Records are mutable and must not be shared between goroutines while being
// mutated.
package codec
