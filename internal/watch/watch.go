package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logship/filetail/internal/checkpoint"
)

// Kind is a discovery notification type.
type Kind string

const (
	// Create marks a file that appeared after watching began.
	Create Kind = "create"
	// CreateInitial marks a file that already existed when watching began.
	CreateInitial Kind = "create_initial"
	// Modify marks a size or mtime change on a known file.
	Modify Kind = "modify"
	// Delete marks a file whose stat now fails with not-exist.
	Delete Kind = "delete"
)

// Event is one discovery notification for one path.
type Event struct {
	Kind Kind
	Path string
}

type watchedFile struct {
	identity checkpoint.Identity
	size     int64
	mtime    time.Time
}

// Watch polls glob patterns for member files and stats known members for
// changes, emitting Events to a single callback. Stat and discovery run on
// separate cadences so cheap change checks happen more often than glob
// expansion.
type Watch struct {
	globs   []string
	exclude []string
	files   map[string]*watchedFile

	statInterval     time.Duration
	discoverInterval time.Duration

	// set after the first discovery pass; later arrivals are Create,
	// not CreateInitial
	initialDone bool
}

// New creates a watch with the given polling cadences.
func New(statInterval, discoverInterval time.Duration) *Watch {
	if statInterval <= 0 {
		statInterval = 1 * time.Second
	}
	if discoverInterval <= 0 {
		discoverInterval = 5 * time.Second
	}
	return &Watch{
		files:            make(map[string]*watchedFile),
		statInterval:     statInterval,
		discoverInterval: discoverInterval,
	}
}

// Add registers a glob pattern for discovery.
func (w *Watch) Add(glob string) {
	w.globs = append(w.globs, glob)
}

// Exclude registers patterns matched against file base names; matching
// files are never reported.
func (w *Watch) Exclude(patterns []string) {
	w.exclude = append(w.exclude, patterns...)
}

// Subscribe runs the polling loop, delivering events synchronously to each
// until ctx is cancelled. The first discovery pass happens immediately.
func (w *Watch) Subscribe(ctx context.Context, each func(Event)) error {
	log.Info().
		Strs("globs", w.globs).
		Dur("stat_interval", w.statInterval).
		Dur("discover_interval", w.discoverInterval).
		Msg("Starting file discovery")

	w.discover(each)
	w.initialDone = true

	statTicker := time.NewTicker(w.statInterval)
	defer statTicker.Stop()
	discoverTicker := time.NewTicker(w.discoverInterval)
	defer discoverTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statTicker.C:
			w.checkKnown(each)
		case <-discoverTicker.C:
			w.discover(each)
		}
	}
}

// discover expands every glob and reports paths not seen before.
func (w *Watch) discover(each func(Event)) {
	for _, g := range w.globs {
		matches, err := filepath.Glob(g)
		if err != nil {
			log.Warn().Err(err).Str("glob", g).Msg("Bad glob pattern, skipping")
			continue
		}

		for _, path := range matches {
			if _, known := w.files[path]; known {
				continue
			}
			if w.excluded(path) {
				continue
			}

			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}

			id, err := checkpoint.IdentityOf(info)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Cannot resolve file identity, skipping")
				continue
			}

			w.files[path] = &watchedFile{identity: id, size: info.Size(), mtime: info.ModTime()}

			kind := Create
			if !w.initialDone {
				kind = CreateInitial
			}
			each(Event{Kind: kind, Path: path})
		}
	}
}

// checkKnown stats every member and reports changes and disappearances.
// A path whose identity changed (rename rotation) or whose size dropped
// (in-place truncation) is reported as Delete then Create so the tailer
// drains and closes the stale handle and reopens the path from scratch.
func (w *Watch) checkKnown(each func(Event)) {
	for path, wf := range w.files {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				delete(w.files, path)
				each(Event{Kind: Delete, Path: path})
			} else {
				log.Warn().Err(err).Str("path", path).Msg("Failed to stat watched file")
			}
			continue
		}

		id, err := checkpoint.IdentityOf(info)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot resolve file identity")
			continue
		}

		if id != wf.identity || info.Size() < wf.size {
			log.Info().
				Str("path", path).
				Bool("identity_changed", id != wf.identity).
				Int64("old_size", wf.size).
				Int64("size", info.Size()).
				Msg("File rotated or truncated, reopening")

			wf.identity = id
			wf.size = info.Size()
			wf.mtime = info.ModTime()
			each(Event{Kind: Delete, Path: path})
			each(Event{Kind: Create, Path: path})
			continue
		}

		if info.Size() != wf.size || !info.ModTime().Equal(wf.mtime) {
			wf.size = info.Size()
			wf.mtime = info.ModTime()
			each(Event{Kind: Modify, Path: path})
		}
	}
}

func (w *Watch) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.exclude {
		ok, err := filepath.Match(pattern, base)
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("Bad exclude pattern, skipping")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
