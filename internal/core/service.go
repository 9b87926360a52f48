// Package core wires the trait registry service: archive staging, scene
// normalization, registration reconciliation, and import validation over a
// pluggable persistent store and scene store.
package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"clonecore/internal/blob"
	"clonecore/internal/infra/persistence/memory"
	"clonecore/pkg/domain"

	"github.com/google/uuid"
)

// ArchiveExtractor performs safe archive extraction with path-pressure
// fallbacks. The concrete implementation lives in internal/archive.
type ArchiveExtractor interface {
	Extract(ctx context.Context, archivePath, destDir string) (ExtractionResult, error)
}

// PersistentStore re-exports the domain persistence abstraction.
type PersistentStore = domain.PersistentStore

// Transaction re-exports the domain transaction surface.
type Transaction = domain.Transaction

// TransactionView re-exports the domain read-only view.
type TransactionView = domain.TransactionView

// Service exposes the transactional import, normalization, and registration
// operations over a persistent store and the host scene graph.
type Service struct {
	store      PersistentStore
	scene      SceneStore
	blobs      blob.Store
	extractor  ArchiveExtractor
	classifier *Classifier
	logger     Logger
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
	nowFn      func() time.Time
	newID      func() string
	pruneStale bool
}

// ServiceOption customises service construction.
type ServiceOption func(*Service)

// WithLogger installs a structured logger; nil keeps the no-op default.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder installs an audit sink for operation outcomes.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder installs a metrics sink for operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer producing a span per operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the service's notion of now, primarily for tests. The
// clock is also pushed into stores that support a time provider so persisted
// timestamps agree with audit timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock == nil {
			return
		}
		s.nowFn = clock.Now
		if setter, ok := s.store.(interface{ SetNowFunc(func() time.Time) }); ok {
			setter.SetNowFunc(clock.Now)
		}
	}
}

// WithClassifier overrides the trait classification priority list.
func WithClassifier(classifier *Classifier) ServiceOption {
	return func(s *Service) {
		if classifier != nil {
			s.classifier = classifier
		}
	}
}

// WithBlobStore attaches the archive store used to stage pack archives.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(s *Service) {
		s.blobs = store
	}
}

// WithExtractor overrides the archive extractor.
func WithExtractor(extractor ArchiveExtractor) ServiceOption {
	return func(s *Service) {
		if extractor != nil {
			s.extractor = extractor
		}
	}
}

// WithPruneStaleRegistrations opts reconciliation into removing entries whose
// collections vanished from the scene. Default keeps them (append-only).
func WithPruneStaleRegistrations(prune bool) ServiceOption {
	return func(s *Service) {
		s.pruneStale = prune
	}
}

// WithIDGenerator overrides import record ID generation, for deterministic tests.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs a service over the supplied stores.
func NewService(store PersistentStore, scene SceneStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		scene:      scene,
		classifier: domain.NewClassifier(nil),
		logger:     noopLogger{},
		audit:      noopAuditRecorder{},
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
		newID:      uuid.NewString,
	}
	s.nowFn = selectNowFunc(store, nil)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine.
func NewInMemoryService(engine *RulesEngine, scene SceneStore, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), scene, opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// Scene returns the scene store the service operates on.
func (s *Service) Scene() SceneStore { return s.scene }

// Classifier returns the active classification rule list holder.
func (s *Service) Classifier() *Classifier { return s.classifier }

func (s *Service) now() time.Time { return s.nowFn() }

// observe starts a span and returns a completion callback that records
// metrics and the audit entry for the operation.
func (s *Service) observe(ctx context.Context, operation string) (context.Context, func(entityID string, err error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(entityID string, err error) {
		duration := time.Since(start)
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, duration)
		if err != nil {
			s.recordAuditError(ctx, operation, entityID, duration, err)
			return
		}
		s.recordAuditSuccess(ctx, operation, entityID, duration)
	}
}

// RegisterPack stores or updates a pack record.
func (s *Service) RegisterPack(ctx context.Context, pack PackRecord) (PackRecord, Result, error) {
	ctx, finish := s.observe(ctx, "register_pack")
	var stored PackRecord
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		stored, err = tx.PutPack(pack)
		return err
	})
	finish(stored.Key, err)
	if err != nil {
		return PackRecord{}, res, err
	}
	s.logger.Info("pack registered", "key", stored.Key, "display", stored.Manifest.DisplayName())
	return stored, res, nil
}

// StagePack fetches a pack archive from the blob store and extracts it into
// destDir using the fallback chain.
func (s *Service) StagePack(ctx context.Context, archiveKey, destDir string) (ExtractionResult, error) {
	ctx, finish := s.observe(ctx, "stage_pack")
	result, err := s.stageFromBlob(ctx, archiveKey, destDir)
	finish(archiveKey, err)
	return result, err
}

// StageArchiveFile extracts a local archive file into destDir. Used by the
// CLIs when the archive has not been uploaded to the blob store.
func (s *Service) StageArchiveFile(ctx context.Context, archivePath, destDir string) (ExtractionResult, error) {
	ctx, finish := s.observe(ctx, "stage_pack")
	if s.extractor == nil {
		err := fmt.Errorf("core: no extractor configured")
		finish(archivePath, err)
		return ExtractionResult{}, err
	}
	result, err := s.extractor.Extract(ctx, archivePath, destDir)
	finish(archivePath, err)
	return result, err
}

func (s *Service) stageFromBlob(ctx context.Context, archiveKey, destDir string) (ExtractionResult, error) {
	if s.blobs == nil {
		return ExtractionResult{}, ErrNoBlobStore
	}
	if s.extractor == nil {
		return ExtractionResult{}, fmt.Errorf("core: no extractor configured")
	}
	_, rc, err := s.blobs.Get(ctx, archiveKey)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("fetch archive %s: %w", archiveKey, err)
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp("", "clonecore-archive-*.zip")
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		return ExtractionResult{}, fmt.Errorf("download archive %s: %w", archiveKey, err)
	}
	if err := tmp.Close(); err != nil {
		return ExtractionResult{}, fmt.Errorf("close staging file: %w", err)
	}
	return s.extractor.Extract(ctx, tmpPath, destDir)
}

// ImportPack orchestrates a full import: stage the pack archive, normalize
// the scene, reconcile trait registrations, validate, and persist the import
// record. Reconciliation and recording share one transaction so the rules see
// the post-import registry.
func (s *Service) ImportPack(ctx context.Context, packKey, destDir string) (ImportRecord, Result, error) {
	ctx, finish := s.observe(ctx, "import_pack")

	record := ImportRecord{PackKey: packKey, StartedAt: s.now()}
	record.ID = s.newID()

	pack, ok := s.store.GetPack(packKey)
	if !ok {
		err := ErrNotFound{Entity: EntityPack, ID: packKey}
		finish(record.ID, err)
		return ImportRecord{}, Result{}, err
	}

	if pack.ArchiveKey != "" {
		if s.blobs == nil {
			record.Extraction.Warnings = append(record.Extraction.Warnings,
				fmt.Sprintf("archive %s not staged: no blob store configured", pack.ArchiveKey))
		} else {
			extraction, err := s.stageFromBlob(ctx, pack.ArchiveKey, destDir)
			if err != nil {
				finish(record.ID, err)
				return ImportRecord{}, Result{}, err
			}
			record.Extraction = extraction
			if extraction.Relocated {
				s.logger.Warn("archive staged outside requested directory",
					"requested", extraction.RequestedDir, "actual", extraction.ActualDir)
			}
		}
	}

	norm, err := s.normalizePass(ctx)
	if err != nil {
		finish(record.ID, err)
		return ImportRecord{}, Result{}, err
	}
	record.Normalization = norm

	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		reconcile, err := s.reconcileInTx(tx)
		if err != nil {
			return err
		}
		record.Reconciliation = reconcile
		record.Summary = s.buildSummary(tx.Snapshot(), norm)
		record.FinishedAt = s.now()
		stored, err := tx.RecordImport(record)
		if err != nil {
			return err
		}
		record = stored
		return nil
	})
	finish(record.ID, err)
	if err != nil {
		return ImportRecord{}, res, err
	}
	for _, warning := range res.Warnings() {
		s.logger.Warn("import rule warning", "rule", warning.Rule, "message", warning.Message)
	}
	s.logger.Info("pack imported", "pack", packKey, "import", record.ID,
		"all_passed", record.Summary.AllPassed)
	return record, res, nil
}

// NormalizeScene runs the scale/position normalization pass (steps A-E)
// against the live scene and returns the structured report.
func (s *Service) NormalizeScene(ctx context.Context) (NormalizationReport, error) {
	ctx, finish := s.observe(ctx, "normalize_scene")
	report, err := s.normalizePass(ctx)
	finish("", err)
	return report, err
}

// ReconcileRegistrations synchronises the registration list with the trait
// collections currently in the scene.
func (s *Service) ReconcileRegistrations(ctx context.Context) (ReconcileReport, Result, error) {
	ctx, finish := s.observe(ctx, "reconcile_registrations")
	var report ReconcileReport
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		report, err = s.reconcileInTx(tx)
		return err
	})
	finish("", err)
	return report, res, err
}

// ValidateImport recomputes the import summary booleans against the live
// scene and registry without mutating anything.
func (s *Service) ValidateImport(ctx context.Context) (ImportSummary, error) {
	ctx, finish := s.observe(ctx, "validate_import")
	var summary ImportSummary
	err := s.store.View(ctx, func(view TransactionView) error {
		norm := s.detectionReport()
		summary = s.buildSummary(view, norm)
		return nil
	})
	finish("", err)
	return summary, err
}

// ListPacks returns all registered packs.
func (s *Service) ListPacks() []PackRecord { return s.store.ListPacks() }

// ListImports returns all import records.
func (s *Service) ListImports() []ImportRecord { return s.store.ListImports() }

// ListRegistrations returns the full registration list.
func (s *Service) ListRegistrations() []RegistrationEntry { return s.store.ListRegistrations() }

// GetPack retrieves one pack by key.
func (s *Service) GetPack(key string) (PackRecord, bool) { return s.store.GetPack(key) }

// GetRegistration retrieves one registration entry by trait name.
func (s *Service) GetRegistration(name string) (RegistrationEntry, bool) {
	return s.store.GetRegistration(name)
}
