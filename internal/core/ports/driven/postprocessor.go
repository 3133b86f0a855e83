package driven

// Chunker segments note text into token-bounded pieces with overlap.
// Implementations must guarantee progress: each produced chunk starts
// strictly before the one after it in the source text.
type Chunker interface {
	// Chunk splits text. Empty or whitespace-only text yields a single
	// empty chunk; text under the token budget is returned unchanged.
	Chunk(text string) []string
}
