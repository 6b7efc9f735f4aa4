package domain

// PointType distinguishes the two kinds of vector points kept per document.
type PointType string

const (
	PointTypeFilename PointType = "filename"
	PointTypeContent  PointType = "content"
)

// Payload keys shared between the indexer and the search service. Every
// point written to the collection carries at least the first four.
const (
	PayloadDocumentID = "pdf_file_id"
	PayloadUserID     = "user_id"
	PayloadType       = "type"
	PayloadText       = "text"
	PayloadFilename   = "original_filename"
	PayloadChunkIndex = "chunk_index"
)

// VectorPoint is one embedding plus its payload, ready for upsert.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a raw hit returned by the vector store before the search
// service applies score filtering and per-document deduplication.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// PointFilter matches points whose payload contains every listed key/value.
type PointFilter map[string]any

// SearchResult is one ranked hit from the vector index, already deduplicated
// to the best point per document.
type SearchResult struct {
	DocumentID int64
	Filename   string
	Text       string
	Type       PointType
	Score      float32
	ChunkIndex *int // nil for filename points
}
