// Package chunker provides a token-bounded text chunking processor
// with boundary-aware splitting and trailing overlap.
package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 256

// DefaultOverlapTokens is the default number of overlapping tokens
// seeded from the previous chunk.
const DefaultOverlapTokens = 32

// charsPerToken is the character approximation used when no exact
// token counter is available.
const charsPerToken = 4

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit  = regexp.MustCompile(`(?U)[^.!?\n]+(?:[.!?]+|\n|$)`)
)

// Processor splits note text into token-bounded chunks. The token
// counter is an explicit dependency owned by the caller; with a nil
// counter the processor falls back to a character approximation.
type Processor struct {
	maxTokens int
	overlap   int
	counter   driven.TokenCounter
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the token budget per chunk.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.overlap = n
		}
	}
}

// New creates a new chunker processor. counter may be nil, in which
// case sizing uses the character approximation.
func New(counter driven.TokenCounter, opts ...Option) *Processor {
	p := &Processor{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlapTokens,
		counter:   counter,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed the budget
	if p.overlap >= p.maxTokens {
		p.overlap = p.maxTokens / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits text into chunks of at most the configured token
// budget. Empty or whitespace-only text yields a single empty chunk so
// callers never fail on empty notes. Text under budget is returned
// unchanged, preserving its original formatting.
func (p *Processor) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{""}
	}

	if p.count(text) <= p.maxTokens {
		return []string{text}
	}

	segments := p.segment(text)

	var chunks []string
	var current strings.Builder
	currentTokens := 0
	seedOnly := false

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()

		// Seed the next chunk with the trailing overlap of the one just
		// emitted, so context spanning the boundary is kept.
		if p.overlap > 0 {
			tail := p.tail(chunks[len(chunks)-1], p.overlap)
			if tail != "" {
				current.WriteString(tail)
			}
		}
		currentTokens = p.count(current.String())
		seedOnly = current.Len() > 0
	}

	for _, seg := range segments {
		segTokens := p.count(seg)
		if currentTokens > 0 && currentTokens+segTokens > p.maxTokens {
			if seedOnly {
				// The overlap seed alone would push this segment over
				// budget; drop the seed rather than emit oversized.
				current.Reset()
				currentTokens = 0
			} else {
				flush()
				if currentTokens+segTokens > p.maxTokens {
					current.Reset()
					currentTokens = 0
				}
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(seg)
		currentTokens = p.count(current.String())
		seedOnly = false
	}

	// A trailing seed with no new content is a duplicate, not a chunk.
	if !seedOnly && strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// segment breaks text into pieces that each fit the token budget,
// trying paragraph boundaries first, then sentences, then fixed
// windows over the raw text.
func (p *Processor) segment(text string) []string {
	var segments []string //nolint:prealloc // final count unknown

	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if p.count(para) <= p.maxTokens {
			segments = append(segments, para)
			continue
		}

		for _, sent := range splitSentences(para) {
			if p.count(sent) <= p.maxTokens {
				segments = append(segments, sent)
				continue
			}
			// A single sentence over budget is never emitted oversized.
			segments = append(segments, p.window(sent)...)
		}
	}

	if len(segments) == 0 {
		// No natural boundary at all; window the raw text.
		segments = p.window(text)
	}

	return segments
}

// window splits text into fixed-size pieces under the token budget.
// The cursor always advances by at least one rune, so the split
// terminates regardless of how the counter behaves.
func (p *Processor) window(text string) []string {
	runes := []rune(text)
	size := p.maxTokens * charsPerToken
	step := size / 8
	if step == 0 {
		step = 1
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		// Shrink until the piece fits the exact token count.
		for end > start+1 && p.count(string(runes[start:end])) > p.maxTokens {
			end -= step
			if end <= start+1 {
				end = start + 1
			}
		}

		pieces = append(pieces, string(runes[start:end]))
		start = end
	}

	return pieces
}

// tail returns the trailing words of text worth roughly n tokens.
func (p *Processor) tail(text string, n int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	start := len(words)
	for start > 0 {
		candidate := strings.Join(words[start-1:], " ")
		if p.count(candidate) > n {
			break
		}
		start--
	}
	if start == len(words) {
		return ""
	}

	return strings.Join(words[start:], " ")
}

// count returns the token count of text, using the character
// approximation when no counter is configured.
func (p *Processor) count(text string) int {
	if p.counter != nil {
		return p.counter.Count(text)
	}
	n := len([]rune(text)) / charsPerToken
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// splitSentences breaks a paragraph into sentences, keeping the
// terminating punctuation with each sentence.
func splitSentences(text string) []string {
	matches := sentenceSplit.FindAllString(text, -1)
	var sentences []string //nolint:prealloc // final count unknown
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	if len(sentences) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return sentences
}
