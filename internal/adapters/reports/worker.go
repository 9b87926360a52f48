// Package reports renders import session reports and uploads them to the
// archive store asynchronously. Each queued export produces one artifact:
// the full import record as JSON, or the per-collection positioning table as
// CSV, stored under reports/<import-id>/.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"clonecore/internal/blob"
	"clonecore/pkg/domain"
)

// Format names a report artifact encoding.
type Format string

// Supported report formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ExportStatus is the lifecycle stage of one queued report.
type ExportStatus string

const (
	// StatusQueued means the report is waiting for the worker.
	StatusQueued ExportStatus = "queued"
	// StatusStored means the artifact was uploaded.
	StatusStored ExportStatus = "stored"
	// StatusFailed means rendering or upload failed.
	StatusFailed ExportStatus = "failed"
)

// ExportRecord tracks one report artifact through the queue.
type ExportRecord struct {
	ID          string       `json:"id"`
	ImportID    string       `json:"import_id"`
	Format      Format       `json:"format"`
	Key         string       `json:"key"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// AuditEntry captures one export lifecycle transition.
type AuditEntry struct {
	ExportID   string       `json:"export_id"`
	ImportID   string       `json:"import_id"`
	Format     Format       `json:"format"`
	Status     ExportStatus `json:"status"`
	Note       string       `json:"note,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// AuditLogger records export lifecycle transitions.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

type task struct {
	id     string
	record domain.ImportRecord
	format Format
}

// Worker renders and uploads report artifacts from a buffered queue.
type Worker struct {
	store blob.Store
	audit AuditLogger
	nowFn func() time.Time

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord
	done  map[string]chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithQueueSize overrides the queue capacity.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan task, n)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.nowFn = now
		}
	}
}

// NewWorker builds a report worker uploading through store. audit may be
// nil.
func NewWorker(store blob.Store, audit AuditLogger, opts ...WorkerOption) *Worker {
	w := &Worker{
		store: store,
		audit: audit,
		nowFn: func() time.Time { return time.Now().UTC() },
		queue: make(chan task, 32),
		jobs:  make(map[string]*ExportRecord),
		done:  make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes queued exports until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.process(ctx, t)
		}
	}
}

// Enqueue schedules one report per format for an import record. Formats
// default to JSON and CSV; duplicates collapse. Returns the queued records.
func (w *Worker) Enqueue(ctx context.Context, rec domain.ImportRecord, formats ...Format) ([]ExportRecord, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("import record has no id")
	}
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}

	queued := make([]ExportRecord, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		if f != FormatJSON && f != FormatCSV {
			return queued, fmt.Errorf("unsupported report format %q", f)
		}

		exp := ExportRecord{
			ID:        uuid.NewString(),
			ImportID:  rec.ID,
			Format:    f,
			Status:    StatusQueued,
			CreatedAt: w.nowFn(),
		}
		exp.Key = fmt.Sprintf("reports/%s/%s.%s", rec.ID, exp.ID, f)

		w.mu.Lock()
		stored := exp
		w.jobs[exp.ID] = &stored
		w.done[exp.ID] = make(chan struct{})
		w.mu.Unlock()
		w.record(ctx, exp, "")

		select {
		case w.queue <- task{id: exp.ID, record: rec, format: f}:
		default:
			w.fail(ctx, exp.ID, "export queue full")
			return queued, fmt.Errorf("export queue full")
		}
		queued = append(queued, exp)
	}
	return queued, nil
}

// Get returns a snapshot of one export record.
func (w *Worker) Get(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return *rec, true
}

// Wait blocks until the export reaches a terminal status and returns its
// final record. Returns ctx.Err when the context ends first.
func (w *Worker) Wait(ctx context.Context, id string) (ExportRecord, error) {
	w.mu.RLock()
	ch, pending := w.done[id]
	w.mu.RUnlock()
	if pending {
		select {
		case <-ctx.Done():
			rec, _ := w.Get(id)
			return rec, ctx.Err()
		case <-ch:
		}
	}
	rec, ok := w.Get(id)
	if !ok {
		return ExportRecord{}, fmt.Errorf("unknown export %s", id)
	}
	return rec, nil
}

func (w *Worker) process(ctx context.Context, t task) {
	payload, contentType, err := render(t.format, t.record)
	if err != nil {
		w.fail(ctx, t.id, err.Error())
		return
	}

	exp, ok := w.Get(t.id)
	if !ok {
		return
	}
	_, err = w.store.Put(ctx, exp.Key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"import_id": t.record.ID,
			"format":    string(t.format),
		},
	})
	if err != nil {
		w.fail(ctx, t.id, fmt.Sprintf("store report: %v", err))
		return
	}
	w.transition(ctx, t.id, StatusStored, "")
}

func (w *Worker) fail(ctx context.Context, id, reason string) {
	w.transition(ctx, id, StatusFailed, reason)
}

func (w *Worker) transition(ctx context.Context, id string, status ExportStatus, note string) {
	now := w.nowFn()
	w.mu.Lock()
	rec, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	rec.Status = status
	rec.Error = note
	rec.CompletedAt = &now
	snapshot := *rec
	if ch, ok := w.done[id]; ok {
		close(ch)
		delete(w.done, id)
	}
	w.mu.Unlock()

	w.record(ctx, snapshot, note)
}

func (w *Worker) record(ctx context.Context, exp ExportRecord, note string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ExportID:   exp.ID,
		ImportID:   exp.ImportID,
		Format:     exp.Format,
		Status:     exp.Status,
		Note:       note,
		OccurredAt: w.nowFn(),
	})
}

func render(f Format, rec domain.ImportRecord) ([]byte, string, error) {
	switch f {
	case FormatJSON:
		payload, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal report: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		header := []string{
			"collection", "category", "anchor",
			"target_x", "target_y", "target_z",
			"centroid_x", "centroid_y", "centroid_z",
			"moved", "skipped", "reason",
		}
		if err := writer.Write(header); err != nil {
			return nil, "", err
		}
		for _, c := range rec.Normalization.Collections {
			row := []string{
				c.Name, string(c.Category), string(c.Anchor),
				formatFloat(c.Target.X), formatFloat(c.Target.Y), formatFloat(c.Target.Z),
				formatFloat(c.Centroid.X), formatFloat(c.Centroid.Y), formatFloat(c.Centroid.Z),
				strconv.FormatBool(c.Moved), strconv.FormatBool(c.Skipped), c.Reason,
			}
			if err := writer.Write(row); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported report format %q", f)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
