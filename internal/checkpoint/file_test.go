package checkpoint

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sincedb")

	s := NewFileStore(path)
	s.Set(Identity{Inode: 42, DevMajor: 8, DevMinor: 1}, 1024)
	s.Set(Identity{Inode: 99, DevMajor: 8, DevMinor: 1}, 0)
	s.Set(Identity{Inode: 7, DevMajor: 253, DevMinor: 3}, 123456789)

	if err := s.Flush("test"); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	loaded := NewFileStore(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(loaded.All(), s.All()) {
		t.Errorf("Load() after Flush() = %v, want %v", loaded.All(), s.All())
	}
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() on missing file error = %v, want nil", err)
	}
	if len(s.All()) != 0 {
		t.Errorf("All() = %v, want empty map", s.All())
	}
}

func TestFileStoreLoadSkipsMalformedRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[Identity]int64
	}{
		{
			name:    "Missing field",
			content: "42 8 1 100\n99 8 1\n",
			want:    map[Identity]int64{{Inode: 42, DevMajor: 8, DevMinor: 1}: 100},
		},
		{
			name:    "Non-numeric offset",
			content: "42 8 1 abc\n7 0 0 5\n",
			want:    map[Identity]int64{{Inode: 7}: 5},
		},
		{
			name:    "Negative offset",
			content: "42 8 1 -3\n",
			want:    map[Identity]int64{},
		},
		{
			name:    "Truncated trailing record survives prefix",
			content: "42 8 1 100\n99 8",
			want:    map[Identity]int64{{Inode: 42, DevMajor: 8, DevMinor: 1}: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sincedb")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			s := NewFileStore(path)
			if err := s.Load(); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(s.All(), tt.want) {
				t.Errorf("All() = %v, want %v", s.All(), tt.want)
			}
		})
	}
}

func TestFileStoreGetSet(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "sincedb"))
	id := Identity{Inode: 1, DevMajor: 2, DevMinor: 3}

	if _, ok := s.Get(id); ok {
		t.Error("Get() on empty store reported an entry")
	}

	s.Set(id, 10)
	if got, ok := s.Get(id); !ok || got != 10 {
		t.Errorf("Get() = (%d, %v), want (10, true)", got, ok)
	}

	s.Set(id, 0)
	if got, ok := s.Get(id); !ok || got != 0 {
		t.Errorf("Get() after reset = (%d, %v), want (0, true)", got, ok)
	}
}

func TestFileStoreFlushOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sincedb")

	s := NewFileStore(path)
	s.Set(Identity{Inode: 1}, 5)
	s.Set(Identity{Inode: 2}, 6)
	if err := s.Flush("first"); err != nil {
		t.Fatal(err)
	}

	s.Set(Identity{Inode: 1}, 50)
	if err := s.Flush("second"); err != nil {
		t.Fatal(err)
	}

	loaded := NewFileStore(path)
	if err := loaded.Load(); err != nil {
		t.Fatal(err)
	}
	if got := loaded.All()[Identity{Inode: 1}]; got != 50 {
		t.Errorf("offset for inode 1 = %d, want 50", got)
	}
	if len(loaded.All()) != 2 {
		t.Errorf("entries = %d, want 2", len(loaded.All()))
	}
}
