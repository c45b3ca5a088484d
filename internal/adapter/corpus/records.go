package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// record is the union of corpus and query record shapes. Ids may be
// JSON strings or numbers but never contain whitespace, since run-file
// lines are whitespace-delimited. Text may be a token array or a
// whitespace-separated string.
type record struct {
	DocID   json.RawMessage `json:"doc_id"`
	QueryID json.RawMessage `json:"query_id"`
	ID      json.RawMessage `json:"_id"`
	Tokens  json.RawMessage `json:"tokens"`
	Text    json.RawMessage `json:"text"`
}

var (
	errMissingID     = errors.New("missing id")
	errMissingTokens = errors.New("missing tokens")
)

func decodeRecord(data []byte) (*record, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// documentFields extracts (doc_id, tokens), preferring doc_id over _id and
// tokens over text.
func (r *record) documentFields() (string, []string, error) {
	id, err := firstID(r.DocID, r.ID)
	if err != nil {
		return "", nil, err
	}
	toks, err := firstTokens(r.Tokens, r.Text)
	if err != nil {
		return "", nil, err
	}
	return id, toks, nil
}

// queryFields extracts (query_id, tokens), preferring query_id over _id and
// text over tokens.
func (r *record) queryFields() (string, []string, error) {
	id, err := firstID(r.QueryID, r.ID)
	if err != nil {
		return "", nil, err
	}
	toks, err := firstTokens(r.Text, r.Tokens)
	if err != nil {
		return "", nil, err
	}
	return id, toks, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func firstID(candidates ...json.RawMessage) (string, error) {
	for _, raw := range candidates {
		if !present(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s == "" {
				return "", errMissingID
			}
			if strings.ContainsFunc(s, unicode.IsSpace) {
				return "", fmt.Errorf("id %q contains whitespace", s)
			}
			return s, nil
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String(), nil
		}
		return "", fmt.Errorf("id must be a string or number, got %s", raw)
	}
	return "", errMissingID
}

func firstTokens(candidates ...json.RawMessage) ([]string, error) {
	for _, raw := range candidates {
		if !present(raw) {
			continue
		}
		var toks []string
		if err := json.Unmarshal(raw, &toks); err == nil {
			return toks, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.Fields(s), nil
		}
		return nil, fmt.Errorf("tokens must be a string array or string, got %s", truncate(raw, 40))
	}
	return nil, errMissingTokens
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
