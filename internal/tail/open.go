package tail

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/logship/filetail/internal/checkpoint"
	"github.com/logship/filetail/internal/watch"
)

// open attempts to open path for tailing and position the handle according
// to the seek policy:
//
//   - a stored offset within the live size resumes there
//   - a stored offset past the live size means the file shrank or was
//     replaced by a smaller same-identity file; the entry resets to 0 and
//     reading restarts from the beginning
//   - create_initial with no stored offset tails from the current end
//   - otherwise the whole file is read from 0
//
// On success the path is registered in the active registry and the
// path→identity cache.
func (t *Tailer) open(path string, kind watch.Kind) error {
	f, err := os.Open(path)
	if err != nil {
		t.warnOpenFailure(path, err)
		return fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		t.warnOpenFailure(path, err)
		return fmt.Errorf("stat %s: %w", path, err)
	}

	id, err := checkpoint.IdentityOf(info)
	if err != nil {
		f.Close()
		t.warnOpenFailure(path, err)
		return fmt.Errorf("identity of %s: %w", path, err)
	}
	size := info.Size()

	if stored, ok := t.store.Get(id); ok {
		if stored <= size {
			if _, err := f.Seek(stored, io.SeekStart); err != nil {
				f.Close()
				t.warnOpenFailure(path, err)
				return fmt.Errorf("seek %s: %w", path, err)
			}
			log.Info().
				Str("path", path).
				Int64("offset", stored).
				Msg("Resumed from checkpointed offset")
		} else {
			// Shrank below the checkpoint: rotation or truncation.
			t.store.Set(id, 0)
			log.Info().
				Str("path", path).
				Int64("stored_offset", stored).
				Int64("size", size).
				Msg("File smaller than checkpointed offset, restarting from beginning")
		}
	} else if kind == watch.CreateInitial {
		// File predates this tailing session: tail from now.
		if _, err := f.Seek(size, io.SeekStart); err != nil {
			f.Close()
			t.warnOpenFailure(path, err)
			return fmt.Errorf("seek %s: %w", path, err)
		}
		t.store.Set(id, size)
		log.Info().
			Str("path", path).
			Int64("offset", size).
			Msg("Pre-existing file, tailing from end")
	}

	t.files[path] = &openFile{file: f}
	t.identities[path] = id

	log.Debug().
		Str("path", path).
		Str("identity", id.String()).
		Msg("Opened file for tailing")

	return nil
}

// warnOpenFailure logs an open failure at most once per warn interval per
// path. The discovery loop re-emits events each cycle, so a persistent
// failure would otherwise warn every cycle.
func (t *Tailer) warnOpenFailure(path string, err error) {
	last := t.lastWarn[path] // zero time when never warned
	if time.Since(last) < t.warnInterval {
		log.Debug().Err(err).Str("path", path).Msg("Open failed (warning suppressed)")
		return
	}

	t.lastWarn[path] = time.Now()
	log.Warn().
		Err(err).
		Str("path", path).
		Msg("Failed to open file, will retry on next discovery cycle")
}
