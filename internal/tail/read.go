package tail

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/logship/filetail/internal/tokenizer"
)

const chunkSize = 4096

// readCond classifies the outcome of one chunk read, so the read loop
// branches on an explicit result instead of an error value.
type readCond int

const (
	condData readCond = iota
	condWouldBlock
	condEndOfStream
)

// readChunk performs one bounded read. Transient conditions (would-block,
// interrupted) and end-of-stream are normal loop terminators, not errors;
// anything else is returned for logging and also ends the loop.
func readChunk(f *os.File, buf []byte) (int, readCond, error) {
	n, err := f.Read(buf)
	if n > 0 {
		return n, condData, nil
	}

	switch {
	case err == nil:
		return 0, condWouldBlock, nil
	case errors.Is(err, io.EOF):
		return 0, condEndOfStream, nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, condWouldBlock, nil
	default:
		return 0, condEndOfStream, err
	}
}

// read drains the bytes currently available on path's handle, hands every
// complete line to consumer and advances the identity's checkpoint to the
// handle position after each chunk. Quiet files end the loop on the first
// non-data condition.
func (t *Tailer) read(path string, consumer Consumer) {
	of, open := t.files[path]
	if !open {
		return
	}
	id, cached := t.identities[path]
	if !cached {
		log.Warn().Str("path", path).Msg("No cached identity for open file, skipping read")
		return
	}
	if of.buf == nil {
		of.buf = tokenizer.New()
	}

	sawData := false
	for {
		n, cond, err := readChunk(of.file, t.chunk)
		if err != nil {
			log.Warn().
				Err(err).
				Str("path", path).
				Msg("Read failed, ending cycle for this file")
		}
		if cond != condData {
			break
		}
		sawData = true

		for _, line := range of.buf.Extract(t.chunk[:n]) {
			consumer(path, line)
		}

		pos, err := of.file.Seek(0, io.SeekCurrent)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to query handle position")
			break
		}
		t.store.Set(id, pos)
	}

	if sawData {
		t.maybeFlush()
	}
}

// maybeFlush flushes the checkpoint store when the flush interval has
// elapsed since the last flush. A failed flush keeps the in-memory state
// and is retried on the next trigger.
func (t *Tailer) maybeFlush() {
	if time.Since(t.lastFlush) < t.flushInterval {
		return
	}
	t.lastFlush = time.Now()

	if err := t.store.Flush("periodic"); err != nil {
		log.Warn().Err(err).Msg("Checkpoint flush failed, keeping offsets in memory")
	}
}
