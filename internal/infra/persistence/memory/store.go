// Package memory provides an in-memory implementation of the registry
// persistence store used for tests and ephemeral environments.
package memory

import (
	"clonecore/pkg/domain"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// PackRecord aliases domain.PackRecord for in-memory persistence operations.
	PackRecord = domain.PackRecord
	// ImportRecord aliases domain.ImportRecord.
	ImportRecord = domain.ImportRecord
	// RegistrationEntry aliases domain.RegistrationEntry.
	RegistrationEntry = domain.RegistrationEntry
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	packs         map[string]PackRecord
	imports       map[string]ImportRecord
	registrations map[string]RegistrationEntry
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Packs         map[string]PackRecord        `json:"packs"`
	Imports       map[string]ImportRecord      `json:"imports"`
	Registrations map[string]RegistrationEntry `json:"registrations"`
}

func newMemoryState() memoryState {
	return memoryState{
		packs:         make(map[string]PackRecord),
		imports:       make(map[string]ImportRecord),
		registrations: make(map[string]RegistrationEntry),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Packs:         make(map[string]PackRecord, len(state.packs)),
		Imports:       make(map[string]ImportRecord, len(state.imports)),
		Registrations: make(map[string]RegistrationEntry, len(state.registrations)),
	}
	for k, v := range state.packs {
		s.Packs[k] = clonePack(v)
	}
	for k, v := range state.imports {
		s.Imports[k] = cloneImport(v)
	}
	for k, v := range state.registrations {
		s.Registrations[k] = cloneRegistration(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Packs {
		state.packs[k] = clonePack(v)
	}
	for k, v := range s.Imports {
		state.imports[k] = cloneImport(v)
	}
	for k, v := range s.Registrations {
		state.registrations[k] = cloneRegistration(v)
	}
	return state
}

// migrateSnapshot normalises snapshots loaded from older persisted state:
// nil maps become empty and map keys are restored as the canonical pack key
// or registration name when the record field is blank.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Packs == nil {
		snapshot.Packs = map[string]PackRecord{}
	}
	if snapshot.Imports == nil {
		snapshot.Imports = map[string]ImportRecord{}
	}
	if snapshot.Registrations == nil {
		snapshot.Registrations = map[string]RegistrationEntry{}
	}
	for key, pack := range snapshot.Packs {
		if pack.Key == "" {
			pack.Key = key
		}
		snapshot.Packs[key] = pack
	}
	for name, entry := range snapshot.Registrations {
		if entry.Name == "" {
			entry.Name = name
		}
		snapshot.Registrations[name] = entry
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.packs {
		cloned.packs[k] = clonePack(v)
	}
	for k, v := range s.imports {
		cloned.imports[k] = cloneImport(v)
	}
	for k, v := range s.registrations {
		cloned.registrations[k] = cloneRegistration(v)
	}
	return cloned
}

func clonePack(p PackRecord) PackRecord { return p }

func cloneImport(r ImportRecord) ImportRecord {
	cp := r
	cp.Extraction.Failures = append([]domain.EntryFailure(nil), r.Extraction.Failures...)
	cp.Extraction.Warnings = append([]string(nil), r.Extraction.Warnings...)
	cp.Normalization.Collections = append([]domain.CollectionStatus(nil), r.Normalization.Collections...)
	cp.Normalization.Warnings = append([]string(nil), r.Normalization.Warnings...)
	cp.Reconciliation.Added = append([]string(nil), r.Reconciliation.Added...)
	cp.Reconciliation.Equipped = append([]string(nil), r.Reconciliation.Equipped...)
	cp.Reconciliation.Pruned = append([]string(nil), r.Reconciliation.Pruned...)
	cp.Reconciliation.Warnings = append([]string(nil), r.Reconciliation.Warnings...)
	return cp
}

func cloneRegistration(e RegistrationEntry) RegistrationEntry { return e }

// Store provides an in-memory transactional store for the trait registry.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc swaps the time provider, primarily for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListPacks returns all packs within the transaction snapshot sorted by key.
func (v transactionView) ListPacks() []PackRecord {
	out := make([]PackRecord, 0, len(v.state.packs))
	for _, p := range v.state.packs {
		out = append(out, clonePack(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ListImports returns all import records sorted by start time, oldest first.
func (v transactionView) ListImports() []ImportRecord {
	out := make([]ImportRecord, 0, len(v.state.imports))
	for _, r := range v.state.imports {
		out = append(out, cloneImport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// ListRegistrations returns all registration entries sorted by name.
func (v transactionView) ListRegistrations() []RegistrationEntry {
	out := make([]RegistrationEntry, 0, len(v.state.registrations))
	for _, e := range v.state.registrations {
		out = append(out, cloneRegistration(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindPack retrieves a pack by key from the snapshot.
func (v transactionView) FindPack(key string) (PackRecord, bool) {
	p, ok := v.state.packs[key]
	if !ok {
		return PackRecord{}, false
	}
	return clonePack(p), true
}

// FindImport retrieves an import record by ID from the snapshot.
func (v transactionView) FindImport(id string) (ImportRecord, bool) {
	r, ok := v.state.imports[id]
	if !ok {
		return ImportRecord{}, false
	}
	return cloneImport(r), true
}

// FindRegistration retrieves a registration entry by trait name.
func (v transactionView) FindRegistration(name string) (RegistrationEntry, bool) {
	e, ok := v.state.registrations[name]
	if !ok {
		return RegistrationEntry{}, false
	}
	return cloneRegistration(e), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindPack exposes pack lookup within the transaction scope.
func (tx *transaction) FindPack(key string) (PackRecord, bool) {
	p, ok := tx.state.packs[key]
	if !ok {
		return PackRecord{}, false
	}
	return clonePack(p), true
}

// FindRegistration exposes registration lookup within the transaction scope.
func (tx *transaction) FindRegistration(name string) (RegistrationEntry, bool) {
	e, ok := tx.state.registrations[name]
	if !ok {
		return RegistrationEntry{}, false
	}
	return cloneRegistration(e), true
}

// PutPack stores or replaces a pack record keyed by pack key.
func (tx *transaction) PutPack(p PackRecord) (PackRecord, error) {
	if p.Key == "" {
		return PackRecord{}, fmt.Errorf("pack key required")
	}
	if existing, exists := tx.state.packs[p.Key]; exists {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = tx.now
		tx.state.packs[p.Key] = clonePack(p)
		tx.recordChange(Change{Entity: domain.EntityPack, Action: domain.ActionUpdate, Before: clonePack(existing), After: clonePack(p)})
		return clonePack(p), nil
	}
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.packs[p.Key] = clonePack(p)
	tx.recordChange(Change{Entity: domain.EntityPack, Action: domain.ActionCreate, After: clonePack(p)})
	return clonePack(p), nil
}

// RecordImport stores a new import session record.
func (tx *transaction) RecordImport(r ImportRecord) (ImportRecord, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.imports[r.ID]; exists {
		return ImportRecord{}, fmt.Errorf("import %q already exists", r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	if r.StartedAt.IsZero() {
		r.StartedAt = tx.now
	}
	tx.state.imports[r.ID] = cloneImport(r)
	tx.recordChange(Change{Entity: domain.EntityImport, Action: domain.ActionCreate, After: cloneImport(r)})
	return cloneImport(r), nil
}

// CreateRegistration appends a new trait registration entry.
func (tx *transaction) CreateRegistration(e RegistrationEntry) (RegistrationEntry, error) {
	if e.Name == "" {
		return RegistrationEntry{}, fmt.Errorf("registration name required")
	}
	if _, exists := tx.state.registrations[e.Name]; exists {
		return RegistrationEntry{}, fmt.Errorf("registration %q already exists", e.Name)
	}
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.registrations[e.Name] = cloneRegistration(e)
	tx.recordChange(Change{Entity: domain.EntityRegistration, Action: domain.ActionCreate, After: cloneRegistration(e)})
	return cloneRegistration(e), nil
}

// UpdateRegistration mutates an entry using the provided mutator function.
func (tx *transaction) UpdateRegistration(name string, mutator func(*RegistrationEntry) error) (RegistrationEntry, error) {
	current, ok := tx.state.registrations[name]
	if !ok {
		return RegistrationEntry{}, fmt.Errorf("registration %q not found", name)
	}
	before := cloneRegistration(current)
	if err := mutator(&current); err != nil {
		return RegistrationEntry{}, err
	}
	current.Name = name
	current.UpdatedAt = tx.now
	tx.state.registrations[name] = cloneRegistration(current)
	tx.recordChange(Change{Entity: domain.EntityRegistration, Action: domain.ActionUpdate, Before: before, After: cloneRegistration(current)})
	return cloneRegistration(current), nil
}

// RemoveRegistration deletes an entry; only explicit pruning calls this.
func (tx *transaction) RemoveRegistration(name string) error {
	current, ok := tx.state.registrations[name]
	if !ok {
		return fmt.Errorf("registration %q not found", name)
	}
	delete(tx.state.registrations, name)
	tx.recordChange(Change{Entity: domain.EntityRegistration, Action: domain.ActionDelete, Before: cloneRegistration(current)})
	return nil
}

// GetPack retrieves a pack by key.
func (s *Store) GetPack(key string) (PackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.packs[key]
	if !ok {
		return PackRecord{}, false
	}
	return clonePack(p), true
}

// GetRegistration retrieves a registration entry by trait name.
func (s *Store) GetRegistration(name string) (RegistrationEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.registrations[name]
	if !ok {
		return RegistrationEntry{}, false
	}
	return cloneRegistration(e), true
}

// ListPacks returns all pack records sorted by key.
func (s *Store) ListPacks() []PackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListPacks()
}

// ListImports returns all import records sorted by start time.
func (s *Store) ListImports() []ImportRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListImports()
}

// ListRegistrations returns all registration entries sorted by name.
func (s *Store) ListRegistrations() []RegistrationEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListRegistrations()
}
