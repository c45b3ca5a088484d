// Package corpus streams tokenized corpus and query records from JSON
// Lines or JSON array files. Malformed records are logged and skipped.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"retrieval/internal/domain"
	"retrieval/internal/logging"
	"retrieval/internal/port"
)

const maxLineBytes = 64 << 20

// SkipFunc observes every skipped record.
type SkipFunc func(*domain.MalformedRecordError)

var (
	_ port.DocumentSource = (*DocumentFiles)(nil)
	_ port.QuerySource    = (*QueryFiles)(nil)
)

// DocumentFiles is a port.DocumentSource over a list of files.
type DocumentFiles struct {
	paths  []string
	onSkip SkipFunc
}

func NewDocumentFiles(paths []string, onSkip SkipFunc) *DocumentFiles {
	return &DocumentFiles{paths: paths, onSkip: onSkip}
}

func (s *DocumentFiles) Each(ctx context.Context, fn func(domain.Document) error) error {
	for _, path := range s.paths {
		err := eachFile(ctx, path, s.onSkip, func(rec *record) error {
			id, toks, err := rec.documentFields()
			if err != nil {
				return shapeError{err}
			}
			return fn(domain.Document{ID: id, Tokens: toks})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// QueryFiles is a port.QuerySource over a list of files.
type QueryFiles struct {
	paths  []string
	onSkip SkipFunc
}

func NewQueryFiles(paths []string, onSkip SkipFunc) *QueryFiles {
	return &QueryFiles{paths: paths, onSkip: onSkip}
}

func (s *QueryFiles) Each(ctx context.Context, fn func(domain.Query) error) error {
	for _, path := range s.paths {
		err := eachFile(ctx, path, s.onSkip, func(rec *record) error {
			id, toks, err := rec.queryFields()
			if err != nil {
				return shapeError{err}
			}
			return fn(domain.Query{ID: id, Tokens: toks})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// shapeError separates a record that decoded but lacks required fields
// from errors returned by the consumer, which abort iteration.
type shapeError struct{ err error }

func (e shapeError) Error() string { return e.err.Error() }

func eachFile(ctx context.Context, path string, onSkip SkipFunc, fn func(*record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return eachRecord(ctx, path, f, onSkip, fn)
}

// eachRecord sniffs the first non-space byte: '[' selects the JSON array
// layout, anything else is read as JSON Lines.
func eachRecord(ctx context.Context, source string, r io.Reader, onSkip SkipFunc, fn func(*record) error) error {
	log := logging.WithComponent("corpus")
	br := bufio.NewReaderSize(r, 1<<16)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	skip := func(line int, reason string, cause error) {
		me := &domain.MalformedRecordError{Source: source, Line: line, Reason: reason, Err: cause}
		log.Warn("skipping malformed record", "source", source, "line", line, "error", me.Error())
		if onSkip != nil {
			onSkip(me)
		}
	}

	handle := func(line int, data []byte) error {
		rec, err := decodeRecord(data)
		if err != nil {
			skip(line, "invalid json", err)
			return nil
		}
		err = fn(rec)
		var se shapeError
		if errors.As(err, &se) {
			skip(line, "unexpected record shape", se.err)
			return nil
		}
		return err
	}

	if first == '[' {
		return eachArrayElement(ctx, source, br, handle)
	}
	return eachLine(ctx, source, br, handle)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// peekNonSpace drops a leading UTF-8 byte order mark and any whitespace,
// then returns the next byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return 0, err
		}
	}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// eachLine handles JSON Lines input. Blank lines are ignored; line
// numbers in warnings count from 1 at the first non-blank byte.
func eachLine(ctx context.Context, source string, r io.Reader, handle func(int, []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handle(line, data); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", source, err)
	}
	return nil
}

// eachArrayElement handles a single top-level JSON array. The position
// reported for a bad element is its 1-based index in the array. A
// syntax error in the array itself cannot be skipped and is returned.
func eachArrayElement(ctx context.Context, source string, r io.Reader, handle func(int, []byte) error) error {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}

	n := 0
	for dec.More() {
		n++
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %s element %d: %w", source, n, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handle(n, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}
	return nil
}

// ReadQueries collects every query produced by src.
func ReadQueries(ctx context.Context, src port.QuerySource) ([]domain.Query, error) {
	var out []domain.Query
	err := src.Each(ctx, func(q domain.Query) error {
		out = append(out, q)
		return nil
	})
	return out, err
}
