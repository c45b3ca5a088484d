package store

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
	"go.etcd.io/bbolt"

	"retrieval/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `cbor:"1,keyasint"`
	ConfigHash string `cbor:"2,keyasint"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if data := b.Get(keySchemaVersion); data != nil {
			if err := unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("decode schema version: %w", err)
			}
		}
		if data := b.Get(keyConfigHash); data != nil {
			info.ConfigHash = string(data)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash fingerprints the configuration that shapes the
// stored index. Scoring constants are excluded; they apply at query time.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Positions bool `cbor:"1,keyasint"`
	}{
		Positions: cfg.Index.Positions,
	}

	data, _ := marshal(relevant)
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration checks if migration or rebuild is needed.
func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	newHash := ComputeConfigHash(cfg)
	if info.ConfigHash != "" && info.ConfigHash != newHash {
		result.NeedsRebuild = true
		result.Reason = "index configuration changed"
	}

	return result, nil
}

// Migrate performs any necessary schema migrations and records the
// current configuration hash.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		return s.db.Update(func(tx *bbolt.Tx) error {
			for _, b := range [][]byte{bucketTerms, bucketDocs, bucketMeta} {
				if _, err := tx.CreateBucketIfNotExists(b); err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return nil
	}
}

// Clear removes the stored index but keeps schema info.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := resetBuckets(tx, bucketTerms, bucketDocs); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete(keyStats)
	})
}
