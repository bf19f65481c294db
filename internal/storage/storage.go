// Package storage provides the local durable key-value stores that back the
// pending score queue. A backend survives process restarts within one user
// profile (except MemoryBackend, which is for tests and ephemeral runs).
package storage

// Backend is a synchronous key-value byte store.
type Backend interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
