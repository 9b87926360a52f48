package core

import (
	"clonecore/internal/infra/persistence/memory"
)

// MemoryStore is the in-memory persistent store, re-exported for tests and
// ephemeral deployments.
type MemoryStore = memory.Store

// NewMemoryStore constructs an in-memory store bound to the rules engine.
// A nil engine gets a fresh empty one.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	return memory.NewStore(engine)
}
