// Package tiktoken provides an exact token counter backed by the
// tiktoken BPE vocabularies, with a character-based approximation when
// the encoding cannot be loaded.
package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/logger"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// DefaultEncoding is the BPE encoding used when none is specified.
const DefaultEncoding = "cl100k_base"

// charsPerToken is the approximation used when the encoding is
// unavailable. Four characters per token is a reasonable average for
// English prose.
const charsPerToken = 4

// Counter counts tokens using a tiktoken encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the given encoding. On failure it returns a counter
// that falls back to the character approximation rather than an error:
// chunk sizing degrades gracefully, it does not stop a pass.
func NewCounter(encoding string) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("tiktoken encoding %q unavailable, using character approximation: %v", encoding, err)
		return &Counter{}
	}

	return &Counter{enc: enc}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		n := len([]rune(text)) / charsPerToken
		if n == 0 {
			n = 1
		}
		return n
	}
	return len(c.enc.Encode(text, nil, nil))
}
