// Package tokenizer turns a byte stream into discrete terminated lines,
// buffering incomplete trailing data between calls.
package tokenizer

import "bytes"

// Tokenizer accumulates chunks and yields complete delimiter-terminated
// tokens. The trailing unterminated fragment is withheld until a later
// chunk terminates it.
type Tokenizer struct {
	delim []byte
	buf   []byte
}

// New creates a newline-delimited tokenizer.
func New() *Tokenizer {
	return NewDelimited("\n")
}

// NewDelimited creates a tokenizer with a custom delimiter.
func NewDelimited(delim string) *Tokenizer {
	return &Tokenizer{delim: []byte(delim)}
}

// Extract appends data to the buffer and returns all complete tokens,
// delimiters stripped, in stream order.
func (t *Tokenizer) Extract(data []byte) []string {
	t.buf = append(t.buf, data...)

	var tokens []string
	for {
		i := bytes.Index(t.buf, t.delim)
		if i < 0 {
			break
		}
		tokens = append(tokens, string(t.buf[:i]))
		t.buf = t.buf[i+len(t.delim):]
	}
	return tokens
}

// Flush returns the buffered unterminated fragment and resets the buffer.
func (t *Tokenizer) Flush() string {
	rest := string(t.buf)
	t.buf = nil
	return rest
}

// Pending reports whether an unterminated fragment is buffered.
func (t *Tokenizer) Pending() bool {
	return len(t.buf) > 0
}
