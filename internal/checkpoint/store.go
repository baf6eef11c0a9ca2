// Package checkpoint persists last-read byte offsets per physical file so
// that tailing can resume where it left off after a restart.
//
// Entries are never pruned: an identity can reappear after any number of
// rotation cycles, and the store does not try to guess which ones are gone
// for good. On long-lived deployments watching high-churn directories the
// map grows without bound.
package checkpoint

// Store is the durable identity→offset map.
// Implementations: FileStore (plain-text sincedb, primary), BoltStore.
type Store interface {
	// Load reads the persisted state into memory.
	// An absent state file is a fresh start, not an error.
	Load() error

	// Get returns the stored offset for an identity.
	Get(id Identity) (int64, bool)

	// Set records an offset in memory. It is persisted on the next Flush.
	Set(id Identity, offset int64)

	// Flush persists the whole in-memory map. The reason string is
	// diagnostic only.
	Flush(reason string) error

	// All returns a copy of the in-memory map.
	All() map[Identity]int64

	// Close releases any resources held by the backend.
	Close() error
}
