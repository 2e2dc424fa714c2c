// Package model holds the shared search-document types passed between the
// embedding and indexing stages.
package model

import "time"

// SearchDocument is the flattened, enriched projection of one notice version,
// as read from the search_documents relation. Pointer fields are nullable in
// the store; absence of any optional facet is valid.
type SearchDocument struct {
	ID              string
	EmbeddingText   string
	Title           *string
	Description     *string
	BuyerName       *string
	BuyerCity       *string
	BuyerPostCode   *string
	CPVCodeMain     *string
	AllCPVCodes     *string
	ContractNature  *string
	ProcedureType   *string
	PublicationDate *time.Time
	Deadline        *time.Time
	EstimatedValue  *float64
	DocumentURL     *string
	Lat             *float64
	Lng             *float64

	// Vector is populated by the embedder before indexing; nil until then.
	Vector []float32
}
