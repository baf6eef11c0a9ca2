package checkpoint

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/logship/filetail/internal/retry"
)

const bucketName = "offsets"

// BoltStore persists offsets in a bbolt database. Keys are the 16-byte
// big-endian encoding of (inode, dev_major, dev_minor), values the 8-byte
// big-endian offset. Set is in-memory like FileStore; Flush writes every
// entry in one transaction, so the two backends share flush semantics.
type BoltStore struct {
	db      *bbolt.DB
	offsets map[Identity]int64
}

// NewBoltStore opens (or creates) the database at dbPath. A lock held by a
// process that died without closing clears once its lease expires, so the
// open is retried with backoff before giving up.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := retry.DoWithResult(context.Background(), retry.DefaultConfig(), func() (*bbolt.DB, error) {
		return bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().
		Str("db_path", dbPath).
		Msg("BoltDB checkpoint store initialized")

	return &BoltStore{
		db:      db,
		offsets: make(map[Identity]int64),
	}, nil
}

// Load reads every stored record into the in-memory map.
func (s *BoltStore) Load() error {
	s.offsets = make(map[Identity]int64)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			if len(k) != 16 || len(v) != 8 {
				log.Warn().
					Int("key_len", len(k)).
					Int("value_len", len(v)).
					Msg("Skipping malformed checkpoint record")
				return nil
			}
			s.offsets[decodeKey(k)] = int64(binary.BigEndian.Uint64(v))
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to load checkpoints: %w", err)
	}

	log.Info().
		Int("entries", len(s.offsets)).
		Msg("Loaded checkpoint database")

	return nil
}

// Get returns the stored offset for an identity.
func (s *BoltStore) Get(id Identity) (int64, bool) {
	offset, ok := s.offsets[id]
	return offset, ok
}

// Set records an offset in memory.
func (s *BoltStore) Set(id Identity, offset int64) {
	s.offsets[id] = offset
}

// Flush writes the whole in-memory map in a single transaction.
func (s *BoltStore) Flush(reason string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		for id, offset := range s.offsets {
			val := make([]byte, 8)
			binary.BigEndian.PutUint64(val, uint64(offset))
			if err := b.Put(encodeKey(id), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to flush checkpoints: %w", err)
	}

	log.Debug().
		Str("reason", reason).
		Int("entries", len(s.offsets)).
		Msg("Checkpoint database flushed")

	return nil
}

// All returns a copy of the in-memory map.
func (s *BoltStore) All() map[Identity]int64 {
	out := make(map[Identity]int64, len(s.offsets))
	for id, offset := range s.offsets {
		out[id] = offset
	}
	return out
}

// Close closes the database.
func (s *BoltStore) Close() error {
	log.Info().Msg("Closing BoltDB checkpoint store")
	return s.db.Close()
}

func encodeKey(id Identity) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], id.Inode)
	binary.BigEndian.PutUint32(key[8:12], id.DevMajor)
	binary.BigEndian.PutUint32(key[12:16], id.DevMinor)
	return key
}

func decodeKey(key []byte) Identity {
	return Identity{
		Inode:    binary.BigEndian.Uint64(key[0:8]),
		DevMajor: binary.BigEndian.Uint32(key[8:12]),
		DevMinor: binary.BigEndian.Uint32(key[12:16]),
	}
}
