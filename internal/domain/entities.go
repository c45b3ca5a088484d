package domain

// Document is a tokenized corpus record. Its length is len(Tokens).
type Document struct {
	ID     string
	Tokens []string
}

// Query is an ephemeral tokenized search request.
type Query struct {
	ID     string
	Tokens []string
}

// Posting records the occurrences of one term in one document.
// Positions is nil unless position tracking is enabled.
type Posting struct {
	DocID     string
	TF        int
	Positions []int
}

// TermEntry is the posting list of a single term. Postings are kept in
// first-insertion order.
type TermEntry struct {
	Term     string
	Postings []Posting
}

// DocumentFrequency is the number of distinct documents containing the term.
func (e TermEntry) DocumentFrequency() int {
	return len(e.Postings)
}

// TermFrequency pairs a term with its count inside one document.
type TermFrequency struct {
	Term string
	TF   int
}

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// QueryResult is the ranked output for one query.
type QueryResult struct {
	QueryID string      `json:"query_id"`
	Results []ScoredDoc `json:"results"`
}

type Stats struct {
	TotalDocs     int
	TotalTerms    int
	TotalPostings int
	AvgDocLen     float64
}

// Synonym is a candidate expansion term together with its usage frequency.
type Synonym struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// DocumentRecord is a persisted document: its length and the distinct
// terms it contains in first-occurrence order.
type DocumentRecord struct {
	DocID  string
	Length int
	Terms  []string
}

// TermRecord is a persisted term entry with both cached IDF values.
type TermRecord struct {
	Term     string
	Postings []Posting
	IDF      float64
	BM25IDF  float64
}

// IndexSnapshot is everything needed to restore a sealed posting store.
// Documents are in insertion order; Terms are sorted.
type IndexSnapshot struct {
	Positions bool
	Documents []DocumentRecord
	Terms     []TermRecord
}
