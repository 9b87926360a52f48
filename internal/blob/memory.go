package blob

import (
	memorystore "clonecore/internal/infra/blob/memory"
)

// NewMemory returns an in-memory archive store suitable for tests.
func NewMemory() Store { return memorystore.New() }
