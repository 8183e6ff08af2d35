package core

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts exported file bytes to a UTF-8 string.
//
// A UTF-8 or UTF-16 byte order mark selects that encoding and is stripped.
// Input without a BOM that is not valid UTF-8 is treated as Windows-1252,
// which is what instrument desktop software typically writes.
func DecodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if hasBOM(data) || utf8.Valid(data) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return "", fmt.Errorf("encoding error: %w", err)
		}
		return string(out), nil
	}

	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("encoding error: %w", err)
	}
	return string(out), nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, bomUTF8) ||
		bytes.HasPrefix(data, bomUTF16LE) ||
		bytes.HasPrefix(data, bomUTF16BE)
}
