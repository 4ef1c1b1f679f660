package memo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "ascii", in: "68656c6c6f", want: "hello"},
		{name: "uppercase hex", in: "48454C4C4F", want: "HELLO"},
		{name: "stops at nul pair", in: "686900776f726c64", want: "hi"},
		{name: "leading nul", in: "0068656c6c6f", want: ""},
		{name: "malformed pair stops decoding", in: "6869zz6869", want: "hi"},
		{name: "malformed first pair", in: "zz6869", want: ""},
		{name: "trailing odd nibble ignored", in: "68696", want: "hi"},
		{name: "nul must be pair aligned", in: "6000", want: "`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "68656c6c6f", Encode("hello"))
	assert.Equal(t, "", Encode(""))
	// lowercase output
	assert.Equal(t, strings.ToLower(Encode("ÿ")), Encode("ÿ"))
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"a post with | pipes and 123 numbers",
		"héllo wörld",
		"日本語のポスト",
		"emoji 🚀🔥",
		strings.Repeat("x", 1000),
		strings.Repeat("a", 64) + "|comment body",
	}

	for _, s := range inputs {
		assert.Equal(t, s, Decode(Encode(s)), "round trip of %q", s)
	}
}
