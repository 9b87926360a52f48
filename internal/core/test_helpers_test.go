package core_test

import (
	"context"
	"math"
	"sync"
	"time"

	"clonecore/internal/core"
	scenememory "clonecore/internal/infra/scene/memory"
	"clonecore/pkg/domain"
)

// avatarScene seeds the scene an appended pack leaves behind before any
// normalization: character geometry and traits at the vendor's 1/100 export
// scale, trait collections carrying gender prefixes, and the boots already
// sitting on their anchor. Character head center lands at (0,0,1.7) and the
// armature center at (0,0,0.9) once scales are baked.
func avatarScene() *scenememory.Store {
	scene := scenememory.NewStore()
	scene.Seed(
		domain.SceneObject{
			Name:        "F_Avatar_HeadGeo",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(0.01),
			BoundsMin:   domain.Vec3{X: -10, Y: -10, Z: 160},
			BoundsMax:   domain.Vec3{X: 10, Y: 10, Z: 180},
			Collections: []string{"Character"},
			InViewLayer: true,
		},
		domain.SceneObject{
			Name:        "F_Avatar_SuitGeo",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(0.01),
			BoundsMin:   domain.Vec3{X: -20, Y: -20, Z: 0},
			BoundsMax:   domain.Vec3{X: 20, Y: 20, Z: 160},
			Collections: []string{"Character"},
			InViewLayer: true,
		},
		domain.SceneObject{
			Name:        "Armature",
			Type:        domain.ObjectArmature,
			Scale:       domain.Uniform(1),
			BoundsMin:   domain.Vec3{X: -0.2, Y: -0.2, Z: 0},
			BoundsMax:   domain.Vec3{X: 0.2, Y: 0.2, Z: 1.8},
			Collections: []string{"Character"},
			InViewLayer: true,
		},
		domain.SceneObject{
			Name:        "hair_main",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(0.01),
			BoundsMin:   domain.Vec3{X: -5, Y: -5, Z: 165},
			BoundsMax:   domain.Vec3{X: 5, Y: 5, Z: 185},
			Collections: []string{"f_long_hair"},
			InViewLayer: true,
		},
		domain.SceneObject{
			Name:        "hair_clip",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(0.01),
			BoundsMin:   domain.Vec3{X: -5, Y: -5, Z: 165},
			BoundsMax:   domain.Vec3{X: 5, Y: 5, Z: 185},
			Collections: []string{"f_long_hair"},
		},
		domain.SceneObject{
			Name:        "jacket",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(0.01),
			BoundsMin:   domain.Vec3{X: -15, Y: -15, Z: 20},
			BoundsMax:   domain.Vec3{X: 15, Y: 15, Z: 140},
			Collections: []string{"f_winter_jacket"},
			InViewLayer: true,
		},
		domain.SceneObject{
			Name:        "jacket_anchor",
			Type:        domain.ObjectEmpty,
			Scale:       domain.Uniform(0.01),
			Position:    domain.Vec3{Z: 0.8},
			Collections: []string{"f_winter_jacket"},
		},
		domain.SceneObject{
			Name:        "boots",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(0.01),
			BoundsMin:   domain.Vec3{X: -5, Y: -5, Z: -10},
			BoundsMax:   domain.Vec3{X: 5, Y: 5, Z: 10},
			Collections: []string{"m_combat_boots"},
		},
	)
	return scene
}

func newTestService(scene core.SceneStore, opts ...core.ServiceOption) *core.Service {
	return core.NewInMemoryService(core.NewDefaultRulesEngine(), scene, opts...)
}

func vecClose(a, b domain.Vec3) bool {
	const tol = 1e-6
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}

// fakeExtractor records the last staging request and replays a canned result.
type fakeExtractor struct {
	mu          sync.Mutex
	archivePath string
	destDir     string
	result      domain.ExtractionResult
	err         error
}

func (f *fakeExtractor) Extract(_ context.Context, archivePath, destDir string) (domain.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archivePath = archivePath
	f.destDir = destDir
	return f.result, f.err
}

func (f *fakeExtractor) lastArchive() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.archivePath
}

type recordedObservation struct {
	Operation string
	Success   bool
	Duration  time.Duration
}

type recordingMetrics struct {
	mu           sync.Mutex
	observations []recordedObservation
}

func (r *recordingMetrics) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, recordedObservation{Operation: operation, Success: success, Duration: duration})
}

func (r *recordingMetrics) Observations() []recordedObservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedObservation(nil), r.observations...)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry core.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) Entries() []core.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.AuditEntry(nil), r.entries...)
}

type recordedSpan struct {
	Operation string
	Err       error
}

type recordingTracer struct {
	mu    sync.Mutex
	spans []recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, operation string) (context.Context, core.TraceSpan) {
	return ctx, &recordingTracerSpan{tracer: r, operation: operation}
}

func (r *recordingTracer) Spans() []recordedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedSpan(nil), r.spans...)
}

type recordingTracerSpan struct {
	tracer    *recordingTracer
	operation string
}

func (s *recordingTracerSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.spans = append(s.tracer.spans, recordedSpan{Operation: s.operation, Err: err})
}
