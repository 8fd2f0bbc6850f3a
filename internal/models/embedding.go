package models

// Chunk is a bounded slice of the source document, positioned by ordinal
// and by its starting rune offset.
type Chunk struct {
	Ordinal int    `json:"ordinal"`
	Start   int    `json:"start"`
	Text    string `json:"text"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return len([]rune(c.Text))
}

// SearchResult is a retrieved chunk with its cosine distance to the query
type SearchResult struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float32 `json:"distance"`
}

// Chunks strips the distances from a result set, keeping retrieval order.
func Chunks(results []SearchResult) []Chunk {
	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, r.Chunk)
	}
	return chunks
}
