package tail

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/logship/filetail/internal/checkpoint"
	"github.com/logship/filetail/internal/watch"
)

// lineSink collects consumer output across the subscription goroutine.
type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) consume(path, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *lineSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *lineSink) waitFor(t *testing.T, want []string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reflect.DeepEqual(s.snapshot(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for lines; got %v, want %v", s.snapshot(), want)
}

// startSubscription runs a tailer over dir/*.log with fast polling. A
// barrier file with a pre-seeded zero checkpoint is planted last in glob
// order: the open protocol resumes it at 0 and replays its single line,
// so once "ready" reaches the sink the first discovery pass has handled
// every pre-existing file.
func startSubscription(t *testing.T, dir string, sink *lineSink) (cancel func()) {
	t.Helper()

	barrier := filepath.Join(dir, "zzz-barrier.log")
	writeFile(t, barrier, "ready\n")

	store := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "sincedb"))
	store.Set(identityOf(t, barrier), 0)

	watcher := watch.New(10*time.Millisecond, 20*time.Millisecond)
	tailer := New(store, watcher, Config{})
	tailer.Tail(filepath.Join(dir, "*.log"))

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tailer.Subscribe(ctx, sink.consume)
	}()

	sink.waitFor(t, []string{"ready"})

	return func() {
		stop()
		if err := <-done; err != nil {
			t.Errorf("Subscribe() error = %v", err)
		}
	}
}

// Rename rotation mid-subscription: the stale handle is drained and
// closed, and the file that took over the path is read from the start.
func TestSubscribeSurvivesRenameRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	writeFile(t, path, "pre\n")

	var sink lineSink
	cancel := startSubscription(t, dir, &sink)
	defer cancel()

	appendFile(t, path, "live\n")
	sink.waitFor(t, []string{"ready", "live"})

	// The rotated-away name must not match the watch glob, or it would
	// be discovered as a fresh file and re-read from offset zero.
	if err := os.Rename(path, path+".old"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "new1\nnew2\n")

	sink.waitFor(t, []string{"ready", "live", "new1", "new2"})
}

// In-place truncation mid-subscription: the reset-to-0 branch of the
// open protocol must run, or everything shorter than the old offset is
// silently dropped.
func TestSubscribeSurvivesTruncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	writeFile(t, path, "one\ntwo\n")

	var sink lineSink
	cancel := startSubscription(t, dir, &sink)
	defer cancel()

	appendFile(t, path, "three\n")
	sink.waitFor(t, []string{"ready", "three"})

	if err := os.Truncate(path, 0); err != nil {
		t.Fatal(err)
	}
	appendFile(t, path, "x\ny\n")

	sink.waitFor(t, []string{"ready", "three", "x", "y"})
}
