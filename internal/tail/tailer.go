// Package tail follows a set of files, re-emitting each complete appended
// line to a consumer, with byte offsets checkpointed per physical file so
// that tailing resumes across restarts, rotations and truncations.
package tail

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logship/filetail/internal/checkpoint"
	"github.com/logship/filetail/internal/tokenizer"
	"github.com/logship/filetail/internal/watch"
)

// Consumer receives every decoded line, synchronously, in per-path read
// order.
type Consumer func(path, line string)

// Config holds tailer tuning knobs. Zero values select defaults.
type Config struct {
	// FlushInterval is the minimum time between automatic checkpoint
	// flushes. Default 10s.
	FlushInterval time.Duration
	// OpenWarnInterval rate-limits open-failure warnings per path.
	// Default 5m.
	OpenWarnInterval time.Duration
}

// openFile is the per-path bookkeeping for an actively tailed file. The
// file's identity lives in the tailer's path→identity cache, not here:
// checkpoint updates are addressed by identity even though reads are
// driven by path.
type openFile struct {
	file *os.File
	buf  *tokenizer.Tokenizer
}

// Tailer owns the active file registry, the path→identity cache and the
// checkpoint store. All mutation happens synchronously on the discovery
// loop, one event at a time, so no locking is involved.
type Tailer struct {
	store   checkpoint.Store
	watcher *watch.Watch

	files      map[string]*openFile
	identities map[string]checkpoint.Identity
	// last open-failure warning per path; absent means never warned
	lastWarn map[string]time.Time

	flushInterval time.Duration
	warnInterval  time.Duration
	lastFlush     time.Time

	chunk []byte
}

// New creates a tailer over the given checkpoint store and watcher.
func New(store checkpoint.Store, watcher *watch.Watch, cfg Config) *Tailer {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.OpenWarnInterval <= 0 {
		cfg.OpenWarnInterval = 5 * time.Minute
	}

	return &Tailer{
		store:         store,
		watcher:       watcher,
		files:         make(map[string]*openFile),
		identities:    make(map[string]checkpoint.Identity),
		lastWarn:      make(map[string]time.Time),
		flushInterval: cfg.FlushInterval,
		warnInterval:  cfg.OpenWarnInterval,
		lastFlush:     time.Now(),
		chunk:         make([]byte, chunkSize),
	}
}

// Tail registers a glob pattern with the discovery watcher.
func (t *Tailer) Tail(glob string) {
	t.watcher.Add(glob)
}

// Subscribe loads checkpoint state and drives the discovery pump, handing
// every decoded line to consumer. It blocks until ctx is cancelled, then
// flushes the checkpoint store and closes all handles.
func (t *Tailer) Subscribe(ctx context.Context, consumer Consumer) error {
	if err := t.store.Load(); err != nil {
		log.Warn().Err(err).Msg("Failed to load checkpoint state, starting fresh")
	}

	err := t.watcher.Subscribe(ctx, func(ev watch.Event) {
		t.HandleEvent(ev, consumer)
	})

	if ferr := t.WriteCheckpoint("teardown"); ferr != nil {
		log.Error().Err(ferr).Msg("Final checkpoint flush failed")
	}
	for path, of := range t.files {
		of.file.Close()
		delete(t.files, path)
		delete(t.identities, path)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// WriteCheckpoint forces a checkpoint flush. The reason appears in the
// flush diagnostics.
func (t *Tailer) WriteCheckpoint(reason string) error {
	t.lastFlush = time.Now()
	return t.store.Flush(reason)
}

// HandleEvent routes one discovery notification through the per-path state
// machine. Failures are absorbed here: no event outcome stalls processing
// of other paths.
func (t *Tailer) HandleEvent(ev watch.Event, consumer Consumer) {
	switch ev.Kind {
	case watch.Create, watch.CreateInitial:
		if _, open := t.files[ev.Path]; open {
			log.Debug().Str("path", ev.Path).Msg("Already tailing, ignoring create")
			return
		}
		if err := t.open(ev.Path, ev.Kind); err != nil {
			return
		}
		t.read(ev.Path, consumer)

	case watch.Modify:
		// A modify on an unopened path means the create was missed
		// (or a previous open failed); recover by opening now.
		if _, open := t.files[ev.Path]; !open {
			if err := t.open(ev.Path, ev.Kind); err != nil {
				return
			}
		}
		t.read(ev.Path, consumer)

	case watch.Delete:
		t.drop(ev.Path, consumer)

	default:
		log.Warn().
			Str("path", ev.Path).
			Str("event", string(ev.Kind)).
			Msg("Unknown discovery event, ignoring")
	}
}

// drop drains any bytes written before removal, then closes the handle and
// forgets the path. The identity's checkpoint entry is retained in case an
// identical-identity file reappears.
func (t *Tailer) drop(path string, consumer Consumer) {
	of, open := t.files[path]
	if !open {
		return
	}

	t.read(path, consumer)
	of.file.Close()
	delete(t.files, path)
	delete(t.identities, path)

	log.Info().Str("path", path).Msg("Stopped tailing deleted file")
}
