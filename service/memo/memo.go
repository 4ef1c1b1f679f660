// Package memo converts between ledger memo payloads and text.
//
// Memo data travels on the ledger as a hex string. Content written by the
// feed clients is UTF-8; older clients padded memos with NUL bytes, so
// decoding stops at the first zero byte.
package memo

import (
	"encoding/hex"
	"strings"
)

// Decode converts a hex memo payload to text.
// It reads the input two characters at a time and stops at the first "00"
// pair, at the end of the input, or at the first pair that is not valid hex.
// Decode never fails; malformed input yields whatever was decoded before it.
func Decode(data string) string {
	var b strings.Builder
	b.Grow(len(data) / 2)

	for i := 0; i+2 <= len(data); i += 2 {
		pair := data[i : i+2]
		if pair == "00" {
			break
		}
		decoded, err := hex.DecodeString(pair)
		if err != nil {
			break
		}
		b.WriteByte(decoded[0])
	}

	return b.String()
}

// Encode converts text to a lowercase hex memo payload.
func Encode(text string) string {
	return hex.EncodeToString([]byte(text))
}
