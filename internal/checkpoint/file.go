package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileStore persists offsets as a plain-text file, one record per line:
//
//	<inode> <dev_major> <dev_minor> <offset>
//
// Flush overwrites the file in place rather than writing through a rename,
// so a crash mid-flush can leave a truncated file. Load tolerates that by
// skipping malformed records.
type FileStore struct {
	path    string
	offsets map[Identity]int64
}

// NewFileStore creates a store backed by the sincedb file at path.
// Nothing is read until Load.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		offsets: make(map[Identity]int64),
	}
}

// Load reads the sincedb file. A missing file leaves the map empty.
// Malformed records are skipped with a warning; the remaining records
// still load.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", s.path).Msg("No sincedb file, starting with empty checkpoint state")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sincedb %s: %w", s.path, err)
	}

	s.offsets = make(map[Identity]int64)
	for i, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		id, offset, err := parseRecord(line)
		if err != nil {
			log.Warn().
				Err(err).
				Str("path", s.path).
				Int("line", i+1).
				Msg("Skipping malformed sincedb record")
			continue
		}
		s.offsets[id] = offset
	}

	log.Info().
		Str("path", s.path).
		Int("entries", len(s.offsets)).
		Msg("Loaded sincedb")

	return nil
}

// Get returns the stored offset for an identity.
func (s *FileStore) Get(id Identity) (int64, bool) {
	offset, ok := s.offsets[id]
	return offset, ok
}

// Set records an offset in memory.
func (s *FileStore) Set(id Identity, offset int64) {
	s.offsets[id] = offset
}

// Flush rewrites the sincedb file from the in-memory map.
func (s *FileStore) Flush(reason string) error {
	var buf bytes.Buffer
	for id, offset := range s.offsets {
		fmt.Fprintf(&buf, "%d %d %d %d\n", id.Inode, id.DevMajor, id.DevMinor, offset)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write sincedb %s: %w", s.path, err)
	}

	log.Debug().
		Str("path", s.path).
		Str("reason", reason).
		Int("entries", len(s.offsets)).
		Msg("Sincedb flushed")

	return nil
}

// Path returns the sincedb file location.
func (s *FileStore) Path() string {
	return s.path
}

// All returns a copy of the in-memory map.
func (s *FileStore) All() map[Identity]int64 {
	out := make(map[Identity]int64, len(s.offsets))
	for id, offset := range s.offsets {
		out[id] = offset
	}
	return out
}

// Close is a no-op; the file is only held open during Load and Flush.
func (s *FileStore) Close() error {
	return nil
}

func parseRecord(line string) (Identity, int64, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Identity{}, 0, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	inode, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Identity{}, 0, fmt.Errorf("bad inode %q: %w", fields[0], err)
	}
	major, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Identity{}, 0, fmt.Errorf("bad device major %q: %w", fields[1], err)
	}
	minor, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Identity{}, 0, fmt.Errorf("bad device minor %q: %w", fields[2], err)
	}
	offset, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || offset < 0 {
		return Identity{}, 0, fmt.Errorf("bad offset %q", fields[3])
	}

	id := Identity{Inode: inode, DevMajor: uint32(major), DevMinor: uint32(minor)}
	return id, offset, nil
}
