package vectorindex

// Dimension is the embedding vector size the file_chunks schema stores.
// gemini-embedding-001 emits 3072 dimensions by default but supports
// truncation to 768 via output dimensionality; the pgvector column is
// declared vector(768) accordingly.
const Dimension = 768

// Chunk is one unit of indexed document text. Key must be stable across
// re-ingestion of the same document (e.g. "<file-id>/page-3") so repeated
// ingestion upserts instead of duplicating.
type Chunk struct {
	Key     string
	Page    int
	Content string
}

// Result is a single similarity search hit.
type Result struct {
	Key        string
	Page       int
	Content    string
	Similarity float32 // cosine similarity, higher is closer
}

// SearchOption configures similarity search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK int32
}

// WithTopK sets the maximum number of results. Default is 4.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = int32(k)
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 4}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
