package memstore

import (
	"fmt"

	"retrieval/internal/domain"
)

// Snapshot exports a sealed store for persistence.
func (s *PostingStore) Snapshot() (*domain.IndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.sealed {
		return nil, domain.ErrNotSealed
	}

	snap := &domain.IndexSnapshot{
		Positions: s.positions,
		Documents: make([]domain.DocumentRecord, 0, len(s.docOrder)),
		Terms:     make([]domain.TermRecord, 0, len(s.terms)),
	}
	for _, id := range s.docOrder {
		snap.Documents = append(snap.Documents, domain.DocumentRecord{
			DocID:  id,
			Length: s.docLens[id],
			Terms:  s.docTerms[id],
		})
	}
	for _, term := range s.sortedTerms() {
		snap.Terms = append(snap.Terms, domain.TermRecord{
			Term:     term,
			Postings: s.terms[term].postings,
			IDF:      s.idf[term],
			BM25IDF:  s.bm25IDF[term],
		})
	}
	return snap, nil
}

// FromSnapshot rebuilds a sealed store. Persisted IDF values are used as-is
// so a restored store scores exactly like the one that was saved.
func FromSnapshot(snap *domain.IndexSnapshot) (*PostingStore, error) {
	if snap == nil || len(snap.Documents) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	s := NewPostingStore(snap.Positions)
	for _, d := range snap.Documents {
		if _, ok := s.docLens[d.DocID]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateDocument, d.DocID)
		}
		s.docLens[d.DocID] = d.Length
		s.docOrder = append(s.docOrder, d.DocID)
		s.docTerms[d.DocID] = d.Terms
	}

	s.idf = make(map[string]float64, len(snap.Terms))
	s.bm25IDF = make(map[string]float64, len(snap.Terms))
	for _, rec := range snap.Terms {
		ts := &termState{
			postings: rec.Postings,
			byDoc:    make(map[string]int, len(rec.Postings)),
		}
		for i, p := range rec.Postings {
			if _, ok := s.docLens[p.DocID]; !ok {
				return nil, fmt.Errorf("%w: %s in postings of %q", domain.ErrUnknownDocument, p.DocID, rec.Term)
			}
			ts.byDoc[p.DocID] = i
		}
		s.terms[rec.Term] = ts
		s.idf[rec.Term] = rec.IDF
		s.bm25IDF[rec.Term] = rec.BM25IDF
	}

	for doc, terms := range s.docTerms {
		for _, term := range terms {
			ts, ok := s.terms[term]
			if !ok {
				return nil, fmt.Errorf("snapshot: document %s lists unknown term %q", doc, term)
			}
			if _, ok := ts.byDoc[doc]; !ok {
				return nil, fmt.Errorf("snapshot: term %q has no posting for %s", term, doc)
			}
		}
	}

	s.totalDocs = len(s.docOrder)
	s.finish()
	return s, nil
}
