package domain

import "context"

// Transaction exposes the registry operations that a persistence
// implementation must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	PutPack(PackRecord) (PackRecord, error)
	RecordImport(ImportRecord) (ImportRecord, error)
	CreateRegistration(RegistrationEntry) (RegistrationEntry, error)
	UpdateRegistration(name string, mutator func(*RegistrationEntry) error) (RegistrationEntry, error)
	RemoveRegistration(name string) error
	FindPack(key string) (PackRecord, bool)
	FindRegistration(name string) (RegistrationEntry, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable registry backends.
// It mirrors the subset of store capabilities used directly by higher
// layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPack(key string) (PackRecord, bool)
	GetRegistration(name string) (RegistrationEntry, bool)
	ListPacks() []PackRecord
	ListImports() []ImportRecord
	ListRegistrations() []RegistrationEntry
}
