package ingest

import "errors"

// Sentinel errors for ingestion failures. Each one is terminal for the
// document: the file is marked FAILED and re-ingestion requires a new
// upload. Wrapped causes are preserved for errors.Is/As.
var (
	// ErrFetch indicates the source bytes could not be retrieved.
	ErrFetch = errors.New("fetching source document")

	// ErrExtract indicates the document could not be parsed at all.
	ErrExtract = errors.New("extracting document text")

	// ErrIndex indicates embedding or vector store writes failed.
	ErrIndex = errors.New("indexing document")
)
