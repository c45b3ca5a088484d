package memstore

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"retrieval/internal/domain"
	"retrieval/internal/port"
)

var (
	_ port.IndexReader = (*PostingStore)(nil)
	_ port.IndexWriter = (*PostingStore)(nil)
)

type termState struct {
	postings []domain.Posting
	byDoc    map[string]int
}

// PostingStore is an in-memory inverted index. It accepts documents and
// term occurrences until Seal, after which it is read-only and safe for
// concurrent readers.
type PostingStore struct {
	mu        sync.RWMutex
	positions bool

	terms    map[string]*termState
	docLens  map[string]int
	docOrder []string
	docTerms map[string][]string

	sealed    bool
	totalDocs int
	avgLen    float64
	idf       map[string]float64
	bm25IDF   map[string]float64
	norms     map[string]float64
	forward   map[string][]domain.TermFrequency
}

// NewPostingStore creates an empty store. When positions is true every
// posting also records the token offsets of its occurrences.
func NewPostingStore(positions bool) *PostingStore {
	s := &PostingStore{positions: positions}
	s.init()
	return s
}

func (s *PostingStore) init() {
	s.terms = make(map[string]*termState)
	s.docLens = make(map[string]int)
	s.docOrder = nil
	s.docTerms = make(map[string][]string)
	s.sealed = false
	s.totalDocs = 0
	s.avgLen = 0
	s.idf = nil
	s.bm25IDF = nil
	s.norms = nil
	s.forward = nil
}

// Reset discards all data and returns the store to the building state.
func (s *PostingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
}

// AddDocument registers a document and its token count.
func (s *PostingStore) AddDocument(docID string, length int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return domain.ErrSealed
	}
	if _, ok := s.docLens[docID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateDocument, docID)
	}
	s.docLens[docID] = length
	s.docOrder = append(s.docOrder, docID)
	return nil
}

// Insert records one occurrence of term in docID at the given token offset.
func (s *PostingStore) Insert(term, docID string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return domain.ErrSealed
	}
	if _, ok := s.docLens[docID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDocument, docID)
	}

	ts, ok := s.terms[term]
	if !ok {
		ts = &termState{byDoc: make(map[string]int)}
		s.terms[term] = ts
	}

	if i, ok := ts.byDoc[docID]; ok {
		p := &ts.postings[i]
		p.TF++
		if s.positions {
			p.Positions = append(p.Positions, position)
		}
		return nil
	}

	p := domain.Posting{DocID: docID, TF: 1}
	if s.positions {
		p.Positions = []int{position}
	}
	ts.byDoc[docID] = len(ts.postings)
	ts.postings = append(ts.postings, p)
	s.docTerms[docID] = append(s.docTerms[docID], term)
	return nil
}

// Seal freezes the store and computes every derived statistic. totalDocs
// must equal the number of registered documents.
func (s *PostingStore) Seal(totalDocs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return domain.ErrAlreadySealed
	}
	if totalDocs <= 0 {
		return domain.ErrEmptyCorpus
	}
	if totalDocs != len(s.docLens) {
		return fmt.Errorf("%w: sealed with %d, registered %d", domain.ErrDocumentCountMismatch, totalDocs, len(s.docLens))
	}

	s.totalDocs = totalDocs
	n := float64(totalDocs)
	s.idf = make(map[string]float64, len(s.terms))
	s.bm25IDF = make(map[string]float64, len(s.terms))
	for term, ts := range s.terms {
		df := float64(len(ts.postings))
		s.idf[term] = CosineIDF(n, df)
		s.bm25IDF[term] = BM25IDF(n, df)
	}

	s.finish()
	return nil
}

// finish computes averages, norms and the forward view from postings and
// the idf tables. Callers hold the write lock.
func (s *PostingStore) finish() {
	var total int
	for _, l := range s.docLens {
		total += l
	}
	s.avgLen = float64(total) / float64(s.totalDocs)

	sq := make(map[string]float64, len(s.docLens))
	for _, term := range s.sortedTerms() {
		idf := s.idf[term]
		for _, p := range s.terms[term].postings {
			w := (1 + math.Log(float64(p.TF))) * idf
			sq[p.DocID] += w * w
		}
	}
	s.norms = make(map[string]float64, len(sq))
	for doc, v := range sq {
		s.norms[doc] = math.Sqrt(v)
	}

	s.forward = make(map[string][]domain.TermFrequency, len(s.docTerms))
	for doc, terms := range s.docTerms {
		tfs := make([]domain.TermFrequency, len(terms))
		for i, term := range terms {
			ts := s.terms[term]
			tfs[i] = domain.TermFrequency{Term: term, TF: ts.postings[ts.byDoc[doc]].TF}
		}
		s.forward[doc] = tfs
	}

	s.sealed = true
}

// CosineIDF is ln(N/df); it is 0 for a term present in every document.
func CosineIDF(n, df float64) float64 {
	if df <= 0 || n <= 0 {
		return 0
	}
	return math.Log(n / df)
}

// BM25IDF is ln((N - df + 0.5) / (df + 0.5) + 1), which stays positive.
func BM25IDF(n, df float64) float64 {
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

func (s *PostingStore) sortedTerms() []string {
	terms := make([]string, 0, len(s.terms))
	for t := range s.terms {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func (s *PostingStore) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Postings returns the posting list of term. The returned slice must not
// be modified. Unknown terms yield an entry with no postings.
func (s *PostingStore) Postings(term string) domain.TermEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.terms[term]
	if !ok {
		return domain.TermEntry{Term: term}
	}
	return domain.TermEntry{Term: term, Postings: ts.postings}
}

func (s *PostingStore) IDF(term string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idf[term]
}

func (s *PostingStore) BM25IDF(term string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bm25IDF[term]
}

func (s *PostingStore) DocumentLength(docID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docLens[docID]
}

func (s *PostingStore) AverageDocumentLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avgLen
}

func (s *PostingStore) DocumentNorm(docID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.norms[docID]
}

func (s *PostingStore) DocumentTerms(docID string) []domain.TermFrequency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forward[docID]
}

func (s *PostingStore) TotalDocs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalDocs
}

// Terms returns the vocabulary in sorted order.
func (s *PostingStore) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedTerms()
}

// Documents returns document ids in registration order.
func (s *PostingStore) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.docOrder))
	copy(out, s.docOrder)
	return out
}

func (s *PostingStore) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var postings int
	for _, ts := range s.terms {
		postings += len(ts.postings)
	}
	return domain.Stats{
		TotalDocs:     len(s.docLens),
		TotalTerms:    len(s.terms),
		TotalPostings: postings,
		AvgDocLen:     s.avgLen,
	}
}
