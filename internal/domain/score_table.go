package domain

// ScoreTable accumulates per-document scores for a single query and
// remembers the order in which each document first received a score.
// It is not safe for concurrent use; every query owns its own table.
type ScoreTable struct {
	scores map[string]float64
	order  []string
}

func NewScoreTable() *ScoreTable {
	return &ScoreTable{scores: make(map[string]float64)}
}

// Add adds delta to the document's score, registering it on first sight.
func (t *ScoreTable) Add(docID string, delta float64) {
	if _, ok := t.scores[docID]; !ok {
		t.order = append(t.order, docID)
	}
	t.scores[docID] += delta
}

// Set overwrites the document's score, registering it on first sight.
func (t *ScoreTable) Set(docID string, score float64) {
	if _, ok := t.scores[docID]; !ok {
		t.order = append(t.order, docID)
	}
	t.scores[docID] = score
}

func (t *ScoreTable) Get(docID string) (float64, bool) {
	s, ok := t.scores[docID]
	return s, ok
}

func (t *ScoreTable) Len() int {
	return len(t.order)
}

// Each visits documents in first-insertion order.
func (t *ScoreTable) Each(fn func(docID string, score float64)) {
	for _, id := range t.order {
		fn(id, t.scores[id])
	}
}

// Docs returns the table as a slice in first-insertion order.
func (t *ScoreTable) Docs() []ScoredDoc {
	out := make([]ScoredDoc, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, ScoredDoc{DocID: id, Score: t.scores[id]})
	}
	return out
}
