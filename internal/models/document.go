package models

// Document is one fetched manual page. Immutable once created; the
// ingestion pipeline caches the full list to avoid re-fetching.
type Document struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

// Chunk is a retrieval-sized slice of a Document. Every chunk carries
// the URL of the document it was split from.
type Chunk struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url"`
	Text      string `json:"text"`
}

// SearchResult is a chunk returned by a vector search, together with
// its similarity score and the stored embedding. The embedding is kept
// so the retriever can re-rank candidates without another store trip.
type SearchResult struct {
	Chunk
	Score  float32
	Vector []float32
}
