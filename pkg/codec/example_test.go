package codec_test

import (
	"fmt"
	"log"

	"github.com/ssargent/bmlfuzz/pkg/codec"
)

// ExampleDecodeStream demonstrates decoding and re-encoding a stream
func ExampleDecodeStream() {
	text, err := codec.NewRecord(codec.TypeText, []byte("hello"))
	if err != nil {
		log.Fatal(err)
	}

	data := codec.EncodeStream([]*codec.Record{
		codec.MustRecord(codec.TypeElementStart, []byte{0x01, 0x00}),
		text,
		codec.MustRecord(codec.TypeElementEnd, nil),
	})
	fmt.Printf("Encoded %d bytes\n", len(data))

	records, err := codec.DecodeStream(data)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range records {
		fmt.Println(r)
	}

	// Output:
	// Encoded 17 bytes
	// ElementStart(len=2)
	// Text(size=9, len=5)
	// ElementEnd(len=0)
}

// ExampleRecord_SetConnectionID demonstrates rewriting a cross-reference id
func ExampleRecord_SetConnectionID() {
	r := codec.NewConnectionID(10)
	r.SetConnectionID(20)

	id, _ := r.ConnectionID()
	fmt.Printf("%s encodes to %x\n", r, r.Encode())
	fmt.Println(id)

	// Output:
	// ConnectionId(id=20) encodes to 2d0014000000
	// 20
}
