package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"retrieval/internal/domain"
)

var (
	bucketTerms = []byte("terms")
	bucketDocs  = []byte("docs")
	bucketMeta  = []byte("meta")
	keyStats    = []byte("corpus_stats")
)

// ErrNoIndex is returned when the database holds no sealed index.
var ErrNoIndex = errors.New("no index stored")

// BoltStore persists a sealed index snapshot in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketTerms, bucketDocs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// OpenExisting opens the index database at path. It returns ErrNoIndex
// instead of creating an empty database when the file does not exist.
func OpenExisting(path string) (*BoltStore, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoIndex, path)
		}
		return nil, err
	}
	return NewBoltStore(path)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type postingValue struct {
	DocID     string `cbor:"1,keyasint"`
	TF        int    `cbor:"2,keyasint"`
	Positions []int  `cbor:"3,keyasint,omitempty"`
}

type termValue struct {
	Postings []postingValue `cbor:"1,keyasint"`
	IDF      float64        `cbor:"2,keyasint"`
	BM25IDF  float64        `cbor:"3,keyasint"`
}

type docValue struct {
	ID     string   `cbor:"1,keyasint"`
	Length int      `cbor:"2,keyasint"`
	Terms  []string `cbor:"3,keyasint"`
}

type statsValue struct {
	TotalDocs     int     `cbor:"1,keyasint"`
	TotalTerms    int     `cbor:"2,keyasint"`
	TotalPostings int     `cbor:"3,keyasint"`
	AvgDocLen     float64 `cbor:"4,keyasint"`
	Positions     bool    `cbor:"5,keyasint"`
}

// docKey is the big-endian registration sequence, so a cursor walks
// documents in insertion order.
func docKey(seq int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(seq))
	return k[:]
}

// SaveIndex replaces the stored index with snap in a single transaction.
func (s *BoltStore) SaveIndex(snap *domain.IndexSnapshot) error {
	if snap == nil || len(snap.Documents) == 0 {
		return domain.ErrEmptyCorpus
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := resetBuckets(tx, bucketTerms, bucketDocs); err != nil {
			return err
		}

		docs := tx.Bucket(bucketDocs)
		var total int
		for i, d := range snap.Documents {
			data, err := marshal(docValue{ID: d.DocID, Length: d.Length, Terms: d.Terms})
			if err != nil {
				return fmt.Errorf("encode document %s: %w", d.DocID, err)
			}
			if err := docs.Put(docKey(i), data); err != nil {
				return err
			}
			total += d.Length
		}

		terms := tx.Bucket(bucketTerms)
		var postings int
		for _, rec := range snap.Terms {
			v := termValue{
				Postings: make([]postingValue, len(rec.Postings)),
				IDF:      rec.IDF,
				BM25IDF:  rec.BM25IDF,
			}
			for i, p := range rec.Postings {
				v.Postings[i] = postingValue{DocID: p.DocID, TF: p.TF, Positions: p.Positions}
			}
			data, err := marshal(v)
			if err != nil {
				return fmt.Errorf("encode term %q: %w", rec.Term, err)
			}
			if err := terms.Put([]byte(rec.Term), data); err != nil {
				return fmt.Errorf("put term %q: %w", rec.Term, err)
			}
			postings += len(rec.Postings)
		}

		stats := statsValue{
			TotalDocs:     len(snap.Documents),
			TotalTerms:    len(snap.Terms),
			TotalPostings: postings,
			AvgDocLen:     float64(total) / float64(len(snap.Documents)),
			Positions:     snap.Positions,
		}
		data, err := marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyStats, data)
	})
}

// LoadIndex reads the stored snapshot. Terms come back in byte order,
// which matches sort.Strings.
func (s *BoltStore) LoadIndex() (*domain.IndexSnapshot, error) {
	snap := &domain.IndexSnapshot{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		statsData := tx.Bucket(bucketMeta).Get(keyStats)
		if statsData == nil {
			return ErrNoIndex
		}
		var stats statsValue
		if err := unmarshal(statsData, &stats); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}
		snap.Positions = stats.Positions
		snap.Documents = make([]domain.DocumentRecord, 0, stats.TotalDocs)
		snap.Terms = make([]domain.TermRecord, 0, stats.TotalTerms)

		err := tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var d docValue
			if err := unmarshal(v, &d); err != nil {
				return fmt.Errorf("decode document: %w", err)
			}
			snap.Documents = append(snap.Documents, domain.DocumentRecord{DocID: d.ID, Length: d.Length, Terms: d.Terms})
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketTerms).ForEach(func(k, v []byte) error {
			var tv termValue
			if err := unmarshal(v, &tv); err != nil {
				return fmt.Errorf("decode term %q: %w", k, err)
			}
			rec := domain.TermRecord{
				Term:     string(k),
				Postings: make([]domain.Posting, len(tv.Postings)),
				IDF:      tv.IDF,
				BM25IDF:  tv.BM25IDF,
			}
			for i, p := range tv.Postings {
				rec.Postings[i] = domain.Posting{DocID: p.DocID, TF: p.TF, Positions: p.Positions}
			}
			snap.Terms = append(snap.Terms, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(snap.Documents) == 0 {
		return nil, ErrNoIndex
	}
	return snap, nil
}

// GetStats returns the statistics recorded with the stored index.
func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats statsValue
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyStats)
		if data == nil {
			return ErrNoIndex
		}
		return unmarshal(data, &stats)
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		TotalDocs:     stats.TotalDocs,
		TotalTerms:    stats.TotalTerms,
		TotalPostings: stats.TotalPostings,
		AvgDocLen:     stats.AvgDocLen,
	}, nil
}

// GetTerm reads one term's postings straight from disk.
func (s *BoltStore) GetTerm(term string) (domain.TermRecord, bool, error) {
	rec := domain.TermRecord{Term: term}
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTerms).Get([]byte(term))
		if data == nil {
			return nil
		}
		found = true
		var tv termValue
		if err := unmarshal(data, &tv); err != nil {
			return err
		}
		rec.IDF = tv.IDF
		rec.BM25IDF = tv.BM25IDF
		for _, p := range tv.Postings {
			rec.Postings = append(rec.Postings, domain.Posting{DocID: p.DocID, TF: p.TF, Positions: p.Positions})
		}
		return nil
	})
	return rec, found, err
}

func resetBuckets(tx *bbolt.Tx, names ...[]byte) error {
	for _, name := range names {
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to drop bucket %s: %w", name, err)
			}
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}
	return nil
}
