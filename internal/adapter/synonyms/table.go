// Package synonyms provides a file-backed synonym source. The file is a
// JSON object, with comments and trailing commas allowed, mapping a term
// to its candidates:
//
//	{
//	  // corpus usage counts from the thesaurus build
//	  "covid": [{"term": "coronavirus", "frequency": 812}],
//	}
package synonyms

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"retrieval/internal/domain"
)

// Table is an in-memory synonym source.
type Table map[string][]domain.Synonym

func (t Table) Synonyms(term string) []domain.Synonym {
	return t[term]
}

// Len returns the number of head terms.
func (t Table) Len() int {
	return len(t)
}

// Parse strips JSONC comments and trailing commas, then decodes the table.
func Parse(data []byte) (Table, error) {
	stripped := jsonc.ToJSON(data)

	var table Table
	if err := json.Unmarshal(stripped, &table); err != nil {
		return nil, fmt.Errorf("parsing synonyms: %w", err)
	}
	for term, cands := range table {
		for i, c := range cands {
			if c.Term == "" {
				return nil, fmt.Errorf("parsing synonyms: %q entry %d has no term", term, i)
			}
		}
	}
	return table, nil
}

// Load reads a synonym file. A missing file yields an empty table so
// expansion falls back to feedback terms only.
func Load(path string) (Table, error) {
	if path == "" {
		return Table{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
