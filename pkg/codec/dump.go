package codec

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Dump writes a human readable listing of records to w, indenting nested
// scopes. Unbalanced end records never indent below column zero.
func Dump(w io.Writer, records []*Record) error {
	depth := 0
	var offset int64
	for i, r := range records {
		if IsEnd(r.Type) && depth > 0 {
			depth--
		}
		line := fmt.Sprintf("%6d %08x %s%s", i, offset, strings.Repeat("  ", depth), r)
		if len(r.Data) > 0 && r.Kind != KindConnectionID {
			line += " " + preview(r.Data)
		}
		if !r.ConsistentSize() {
			line += " !size"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if IsStart(r.Type) {
			depth++
		}
		offset += int64(r.Size())
	}
	return nil
}

func preview(data []byte) string {
	const limit = 16
	if len(data) > limit {
		return hex.EncodeToString(data[:limit]) + "..."
	}
	return hex.EncodeToString(data)
}
