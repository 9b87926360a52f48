package core

import "clonecore/internal/infra/persistence/sqlite"

// NewSQLiteStore constructs a SQLite-backed persistent store at the provided
// file path (empty for the default) with the given rules engine.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
