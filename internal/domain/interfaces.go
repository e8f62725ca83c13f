package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the mining layer depends on them.

// Store abstracts key-addressed persistence of mining-task records.
// It provides durability for one key at a time, not cross-key atomicity.
type Store interface {
	// Get returns the record at key, or (nil, nil) when none exists.
	Get(ctx context.Context, key string) (*MiningTask, error)

	// Put writes the record at key, replacing any previous value.
	Put(ctx context.Context, key string, task *MiningTask) error
}

// Validator abstracts the external schema-validation service.
// It never fails — an invalid payload is a normal false.
type Validator interface {
	Validate(schema string, payload []byte) bool
}
