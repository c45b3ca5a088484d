package port

import "retrieval/internal/domain"

// IndexReader is the read side of a sealed posting store. Every method
// is safe for concurrent use once the store is sealed.
type IndexReader interface {
	// Postings returns the entry for term; unknown terms yield an empty entry.
	Postings(term string) domain.TermEntry

	IDF(term string) float64

	BM25IDF(term string) float64

	DocumentLength(docID string) int

	AverageDocumentLength() float64

	DocumentNorm(docID string) float64

	// DocumentTerms returns the (term, tf) pairs of a document in first-occurrence order.
	DocumentTerms(docID string) []domain.TermFrequency

	TotalDocs() int
}

// IndexWriter accumulates postings until Seal is called.
type IndexWriter interface {
	AddDocument(docID string, length int) error

	Insert(term, docID string, position int) error

	Seal(totalDocs int) error
}
