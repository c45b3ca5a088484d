package retriever

import (
	"sort"

	"retrieval/internal/adapter/ranker"
	"retrieval/internal/domain"
	"retrieval/internal/port"
)

// ExpansionConfig bounds expansion. A zero FeedbackDocs or FeedbackTerms
// disables pseudo-relevance feedback.
type ExpansionConfig struct {
	// MinSynonymFrequency is exclusive: a candidate needs a higher frequency.
	MinSynonymFrequency int
	FeedbackDocs        int
	FeedbackTerms       int
}

// QueryExpander widens a query with synonyms and pseudo-relevance
// feedback terms, then scores the widened set with the base model.
type QueryExpander struct {
	index    port.IndexReader
	base     port.Scorer
	synonyms port.SynonymSource
	cfg      ExpansionConfig
}

// NewQueryExpander wraps base, which should be a BM25 scorer over index.
// synonyms may be nil.
func NewQueryExpander(index port.IndexReader, base port.Scorer, synonyms port.SynonymSource, cfg ExpansionConfig) *QueryExpander {
	return &QueryExpander{
		index:    index,
		base:     base,
		synonyms: synonyms,
		cfg:      cfg,
	}
}

func (e *QueryExpander) Name() string {
	return e.base.Name() + "+expansion"
}

func (e *QueryExpander) Score(tokens []string) *domain.ScoreTable {
	return e.base.Score(e.Expand(tokens))
}

// Expand returns the original distinct terms followed by admitted
// synonyms and then feedback terms, without duplicates.
func (e *QueryExpander) Expand(tokens []string) []string {
	original := distinctTerms(tokens)
	inQuery := make(map[string]struct{}, len(original))
	for _, t := range original {
		inQuery[t] = struct{}{}
	}

	expanded := append([]string(nil), original...)
	seen := make(map[string]struct{}, len(original))
	for _, t := range original {
		seen[t] = struct{}{}
	}
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		expanded = append(expanded, term)
	}

	for _, t := range e.synonymTerms(original) {
		add(t)
	}
	for _, t := range e.feedbackTerms(tokens, inQuery) {
		add(t)
	}

	return expanded
}

func (e *QueryExpander) synonymTerms(terms []string) []string {
	if e.synonyms == nil {
		return nil
	}
	var out []string
	for _, term := range terms {
		for _, syn := range e.synonyms.Synonyms(term) {
			if syn.Frequency > e.cfg.MinSynonymFrequency && syn.Term != "" {
				out = append(out, syn.Term)
			}
		}
	}
	return out
}

// feedbackTerms sums term frequencies over the top BM25 documents of the
// original query and returns the heaviest terms not already queried.
// Ties keep the order in which terms were first met.
func (e *QueryExpander) feedbackTerms(tokens []string, inQuery map[string]struct{}) []string {
	if e.cfg.FeedbackDocs <= 0 || e.cfg.FeedbackTerms <= 0 {
		return nil
	}

	top := ranker.Rank(e.base.Score(tokens), e.cfg.FeedbackDocs)
	if len(top) == 0 {
		return nil
	}

	totals := make(map[string]int)
	var order []string
	for _, doc := range top {
		for _, tf := range e.index.DocumentTerms(doc.DocID) {
			if _, ok := inQuery[tf.Term]; ok {
				continue
			}
			if _, ok := totals[tf.Term]; !ok {
				order = append(order, tf.Term)
			}
			totals[tf.Term] += tf.TF
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > e.cfg.FeedbackTerms {
		order = order[:e.cfg.FeedbackTerms]
	}
	return order
}
