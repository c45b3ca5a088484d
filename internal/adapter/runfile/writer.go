// Package runfile writes ranked results in the whitespace-delimited
// "qid Q0 docid rank score tag" exchange format read by trec_eval style
// evaluators.
package runfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"retrieval/internal/domain"
)

// Header is written once before any result line.
const Header = "Query ID | Q0 | doc ID | ranking | score | Tag"

// ErrInvalidField is returned for a query or document id that is empty
// or would split into more than one field.
var ErrInvalidField = errors.New("run file field is empty or contains whitespace")

type Writer struct {
	w      *bufio.Writer
	tag    string
	header bool
	lines  int
}

// NewWriter returns a Writer that labels every line with tag. Whitespace
// inside tag is replaced so the line keeps six fields.
func NewWriter(w io.Writer, tag string) *Writer {
	tag = strings.Join(strings.Fields(tag), "_")
	if tag == "" {
		tag = "run"
	}
	return &Writer{w: bufio.NewWriter(w), tag: tag}
}

// Write appends one query's ranked results. Ranks start at 1. Nothing is
// written for a query whose ids contain whitespace.
func (w *Writer) Write(res domain.QueryResult) error {
	if err := checkField("query id", res.QueryID); err != nil {
		return err
	}
	for _, doc := range res.Results {
		if err := checkField("doc id", doc.DocID); err != nil {
			return err
		}
	}

	if !w.header {
		if _, err := fmt.Fprintln(w.w, Header); err != nil {
			return err
		}
		w.header = true
	}
	for i, doc := range res.Results {
		if _, err := fmt.Fprintf(w.w, "%s Q0 %s %d %.4f %s\n", res.QueryID, doc.DocID, i+1, doc.Score, w.tag); err != nil {
			return err
		}
		w.lines++
	}
	return nil
}

func checkField(name, value string) error {
	if value == "" || strings.ContainsFunc(value, unicode.IsSpace) {
		return fmt.Errorf("%w: %s %q", ErrInvalidField, name, value)
	}
	return nil
}

// Flush writes the header if nothing was written yet and flushes buffered lines.
func (w *Writer) Flush() error {
	if !w.header {
		if _, err := fmt.Fprintln(w.w, Header); err != nil {
			return err
		}
		w.header = true
	}
	return w.w.Flush()
}

// Lines reports how many result lines were written.
func (w *Writer) Lines() int {
	return w.lines
}

// WriteFile writes all results to path, replacing any existing file.
func WriteFile(path, tag string, results []domain.QueryResult) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create run file: %w", err)
	}
	defer f.Close()

	w := NewWriter(f, tag)
	for _, res := range results {
		if err := w.Write(res); err != nil {
			return w.Lines(), fmt.Errorf("write run file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return w.Lines(), fmt.Errorf("flush run file: %w", err)
	}
	return w.Lines(), f.Close()
}
