package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clonecore/internal/blob"
	"clonecore/internal/core"
	"clonecore/pkg/domain"
)

func TestImportPackFullPipeline(t *testing.T) {
	scene := avatarScene()
	svc := newTestService(scene)
	ctx := context.Background()

	if _, _, err := svc.RegisterPack(ctx, domain.PackRecord{
		Key:      "female/casual/LongHair",
		Manifest: domain.PackManifest{Name: "LongHair", Creator: "studio"},
		Gender:   domain.GenderFemale,
	}); err != nil {
		t.Fatalf("register pack: %v", err)
	}

	record, res, err := svc.ImportPack(ctx, "female/casual/LongHair", "")
	if err != nil {
		t.Fatalf("import pack: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected clean rule result, got %+v", res.Violations)
	}
	if record.ID == "" {
		t.Fatal("expected generated import id")
	}
	if record.PackKey != "female/casual/LongHair" {
		t.Fatalf("unexpected pack key %q", record.PackKey)
	}

	norm := record.Normalization
	if norm.MismatchDetected {
		t.Fatal("character and traits share one scale, no mismatch expected")
	}
	if norm.CharacterScale != 0.01 || norm.TraitScale != 0.01 {
		t.Fatalf("expected detected scales 0.01/0.01, got %v/%v", norm.CharacterScale, norm.TraitScale)
	}
	if norm.Baked != 6 {
		t.Fatalf("expected 6 baked meshes, got %d", norm.Baked)
	}
	if norm.Rescaled != 1 {
		t.Fatalf("expected 1 rescaled non-geometry object, got %d", norm.Rescaled)
	}
	if norm.VerifiedScale != 1.0 {
		t.Fatalf("expected verified scale 1.0, got %v", norm.VerifiedScale)
	}
	if len(norm.Warnings) != 0 {
		t.Fatalf("expected no normalization warnings, got %v", norm.Warnings)
	}

	if len(norm.Collections) != 3 {
		t.Fatalf("expected 3 collection statuses, got %d", len(norm.Collections))
	}
	hair, jacket, boots := norm.Collections[0], norm.Collections[1], norm.Collections[2]
	if hair.Name != "f_long_hair" || jacket.Name != "f_winter_jacket" || boots.Name != "m_combat_boots" {
		t.Fatalf("collections not sorted by name: %s, %s, %s", hair.Name, jacket.Name, boots.Name)
	}

	if hair.Category != domain.CategoryHair || hair.Anchor != domain.AnchorHeadTop {
		t.Fatalf("hair classified as %s/%s", hair.Category, hair.Anchor)
	}
	if !hair.Moved || hair.Skipped {
		t.Fatalf("hair should have moved, status %+v", hair)
	}
	if !vecClose(hair.Target, domain.Vec3{Z: 1.85}) {
		t.Fatalf("hair target %+v, want head-top (0,0,1.85)", hair.Target)
	}
	if !vecClose(hair.Centroid, domain.Vec3{Z: 1.85}) {
		t.Fatalf("hair centroid %+v did not land on target", hair.Centroid)
	}

	if jacket.Category != domain.CategoryClothing || jacket.Anchor != domain.AnchorBodyCenter {
		t.Fatalf("jacket classified as %s/%s", jacket.Category, jacket.Anchor)
	}
	if !jacket.Moved || !vecClose(jacket.Centroid, domain.Vec3{Z: 0.9}) {
		t.Fatalf("jacket should sit on body-center, status %+v", jacket)
	}

	if boots.Category != domain.CategoryFootwear || boots.Anchor != domain.AnchorFeetLevel {
		t.Fatalf("boots classified as %s/%s", boots.Category, boots.Anchor)
	}
	if boots.Moved || boots.Skipped || boots.Reason != "already positioned" {
		t.Fatalf("boots already sit on their anchor, status %+v", boots)
	}

	if len(record.Reconciliation.Added) != 3 {
		t.Fatalf("expected 3 new registrations, got %v", record.Reconciliation.Added)
	}
	regs := svc.ListRegistrations()
	if len(regs) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(regs))
	}
	hairReg, ok := svc.GetRegistration("f_long_hair")
	if !ok {
		t.Fatal("hair registration missing")
	}
	if hairReg.Gender != domain.GenderFemale || !hairReg.Equipped {
		t.Fatalf("hair registration %+v, want female and equipped", hairReg)
	}
	bootsReg, ok := svc.GetRegistration("m_combat_boots")
	if !ok {
		t.Fatal("boots registration missing")
	}
	if bootsReg.Gender != domain.GenderMale || bootsReg.Equipped {
		t.Fatalf("boots registration %+v, want male and unequipped", bootsReg)
	}

	sum := record.Summary
	if !sum.CharacterFound || !sum.TraitsFound || !sum.ScaleConsistent || !sum.TraitsPositioned || !sum.TraitsRegistered {
		t.Fatalf("summary checks failed: %+v", sum)
	}
	if !sum.AllPassed {
		t.Fatalf("expected all checks to pass: %+v", sum)
	}
	if record.FinishedAt.Before(record.StartedAt) {
		t.Fatalf("finished %v before started %v", record.FinishedAt, record.StartedAt)
	}

	imports := svc.ListImports()
	if len(imports) != 1 || imports[0].ID != record.ID {
		t.Fatalf("import record not persisted: %+v", imports)
	}

	// Scene mutations landed: hair geometry baked to unit scale on its anchor.
	obj, ok := scene.Object("hair_main")
	if !ok {
		t.Fatal("hair_main disappeared")
	}
	if !vecClose(obj.Scale, domain.Uniform(1)) {
		t.Fatalf("hair_main scale %+v not reset", obj.Scale)
	}
	if !vecClose(obj.WorldBoundsCenter(), domain.Vec3{Z: 1.85}) {
		t.Fatalf("hair_main world center %+v, want (0,0,1.85)", obj.WorldBoundsCenter())
	}
}

func TestImportPackSecondRunIsIdempotent(t *testing.T) {
	svc := newTestService(avatarScene())
	ctx := context.Background()

	if _, _, err := svc.RegisterPack(ctx, domain.PackRecord{Key: "pack/a"}); err != nil {
		t.Fatalf("register pack: %v", err)
	}
	if _, _, err := svc.ImportPack(ctx, "pack/a", ""); err != nil {
		t.Fatalf("first import: %v", err)
	}
	record, _, err := svc.ImportPack(ctx, "pack/a", "")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	norm := record.Normalization
	if norm.Baked != 0 || norm.Rescaled != 0 {
		t.Fatalf("second pass changed scales: baked=%d rescaled=%d", norm.Baked, norm.Rescaled)
	}
	if norm.VerifiedScale != 1.0 {
		t.Fatalf("verified scale %v after second pass", norm.VerifiedScale)
	}
	for _, status := range norm.Collections {
		if status.Moved {
			t.Fatalf("collection %s moved again on second pass", status.Name)
		}
		if status.Reason != "already positioned" {
			t.Fatalf("collection %s reason %q", status.Name, status.Reason)
		}
	}
	if len(record.Reconciliation.Added) != 0 || len(record.Reconciliation.Equipped) != 0 {
		t.Fatalf("second reconcile should be a no-op, got %+v", record.Reconciliation)
	}
	if !record.Summary.AllPassed {
		t.Fatalf("second import summary %+v", record.Summary)
	}
	if got := len(svc.ListImports()); got != 2 {
		t.Fatalf("expected 2 import records, got %d", got)
	}
}

func TestImportPackUnknownPack(t *testing.T) {
	svc := newTestService(avatarScene())

	_, _, err := svc.ImportPack(context.Background(), "missing/pack", "")
	var notFound core.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if notFound.Entity != domain.EntityPack || notFound.ID != "missing/pack" {
		t.Fatalf("unexpected not-found detail %+v", notFound)
	}
	if got := len(svc.ListImports()); got != 0 {
		t.Fatalf("failed import should not be recorded, got %d records", got)
	}
}

func TestImportPackWithoutBlobStoreWarnsOnArchive(t *testing.T) {
	svc := newTestService(avatarScene())
	ctx := context.Background()

	if _, _, err := svc.RegisterPack(ctx, domain.PackRecord{
		Key:        "pack/archived",
		ArchiveKey: "packs/longhair.zip",
	}); err != nil {
		t.Fatalf("register pack: %v", err)
	}
	record, _, err := svc.ImportPack(ctx, "pack/archived", "dest")
	if err != nil {
		t.Fatalf("import pack: %v", err)
	}
	if len(record.Extraction.Warnings) != 1 {
		t.Fatalf("expected one staging warning, got %v", record.Extraction.Warnings)
	}
	if !strings.Contains(record.Extraction.Warnings[0], "no blob store configured") {
		t.Fatalf("unexpected warning %q", record.Extraction.Warnings[0])
	}
	if record.Extraction.Strategy != "" {
		t.Fatalf("no extraction should have run, got strategy %q", record.Extraction.Strategy)
	}
}

func TestImportPackStagesArchiveFromBlobStore(t *testing.T) {
	ctx := context.Background()
	archives := blob.NewMemory()
	if _, err := archives.Put(ctx, "packs/longhair.zip", strings.NewReader("zip-bytes"), blob.PutOptions{ContentType: "application/zip"}); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
	extractor := &fakeExtractor{result: domain.ExtractionResult{
		Strategy:     domain.StrategyDirect,
		RequestedDir: "dest",
		ActualDir:    "dest",
		Extracted:    4,
	}}
	svc := newTestService(avatarScene(),
		core.WithBlobStore(archives),
		core.WithExtractor(extractor),
	)

	if _, _, err := svc.RegisterPack(ctx, domain.PackRecord{
		Key:        "pack/archived",
		ArchiveKey: "packs/longhair.zip",
	}); err != nil {
		t.Fatalf("register pack: %v", err)
	}
	record, _, err := svc.ImportPack(ctx, "pack/archived", "dest")
	if err != nil {
		t.Fatalf("import pack: %v", err)
	}
	if extractor.lastArchive() == "" {
		t.Fatal("extractor never saw the downloaded archive")
	}
	if record.Extraction.Strategy != domain.StrategyDirect || record.Extraction.Extracted != 4 {
		t.Fatalf("extraction result not recorded: %+v", record.Extraction)
	}
}

func TestStageArchiveFileRequiresExtractor(t *testing.T) {
	svc := newTestService(avatarScene())

	_, err := svc.StageArchiveFile(context.Background(), "/tmp/a.zip", "dest")
	if err == nil || !strings.Contains(err.Error(), "no extractor configured") {
		t.Fatalf("expected missing-extractor error, got %v", err)
	}
}

func TestStagePackRequiresBlobStore(t *testing.T) {
	svc := newTestService(avatarScene(), core.WithExtractor(&fakeExtractor{}))

	_, err := svc.StagePack(context.Background(), "packs/a.zip", "dest")
	if !errors.Is(err, core.ErrNoBlobStore) {
		t.Fatalf("expected ErrNoBlobStore, got %v", err)
	}
}

func TestReconcileRegistrationsAdditiveByDefault(t *testing.T) {
	svc := newTestService(avatarScene())
	ctx := context.Background()

	// A registration left over from a pack whose collections are gone.
	if _, err := svc.Store().RunInTransaction(ctx, func(tx core.Transaction) error {
		_, err := tx.CreateRegistration(domain.RegistrationEntry{
			Name:     "f_ghost_cape",
			TraitDir: "f_ghost_cape",
			Gender:   domain.GenderFemale,
		})
		return err
	}); err != nil {
		t.Fatalf("seed stale registration: %v", err)
	}

	report, _, err := svc.ReconcileRegistrations(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := []string{"f_long_hair", "f_winter_jacket", "m_combat_boots"}
	if len(report.Added) != len(want) {
		t.Fatalf("added %v, want %v", report.Added, want)
	}
	for i, name := range want {
		if report.Added[i] != name {
			t.Fatalf("added %v, want %v", report.Added, want)
		}
	}
	if len(report.Pruned) != 0 {
		t.Fatalf("default reconcile must not prune, got %v", report.Pruned)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "f_ghost_cape") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stale warning for f_ghost_cape, got %v", report.Warnings)
	}
	if _, ok := svc.GetRegistration("f_ghost_cape"); !ok {
		t.Fatal("stale registration was removed without opt-in")
	}
}

func TestReconcileRegistrationsPrunesWhenOptedIn(t *testing.T) {
	svc := newTestService(avatarScene(), core.WithPruneStaleRegistrations(true))
	ctx := context.Background()

	if _, err := svc.Store().RunInTransaction(ctx, func(tx core.Transaction) error {
		_, err := tx.CreateRegistration(domain.RegistrationEntry{
			Name:     "f_ghost_cape",
			TraitDir: "f_ghost_cape",
			Gender:   domain.GenderFemale,
		})
		return err
	}); err != nil {
		t.Fatalf("seed stale registration: %v", err)
	}

	report, _, err := svc.ReconcileRegistrations(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(report.Pruned) != 1 || report.Pruned[0] != "f_ghost_cape" {
		t.Fatalf("expected f_ghost_cape pruned, got %v", report.Pruned)
	}
	if _, ok := svc.GetRegistration("f_ghost_cape"); ok {
		t.Fatal("pruned registration still present")
	}
}

func TestReconcileRegistrationsTracksEquippedDrift(t *testing.T) {
	scene := avatarScene()
	svc := newTestService(scene)
	ctx := context.Background()

	if _, _, err := svc.ReconcileRegistrations(ctx); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}
	// Hide the only view-layer member of the hair collection.
	if err := scene.SetInViewLayer("hair_main", false); err != nil {
		t.Fatalf("hide hair: %v", err)
	}

	report, _, err := svc.ReconcileRegistrations(ctx)
	if err != nil {
		t.Fatalf("reconcile after drift: %v", err)
	}
	if len(report.Equipped) != 1 || report.Equipped[0] != "f_long_hair" {
		t.Fatalf("expected f_long_hair equipped drift, got %v", report.Equipped)
	}
	reg, ok := svc.GetRegistration("f_long_hair")
	if !ok {
		t.Fatal("hair registration missing")
	}
	if reg.Equipped {
		t.Fatal("hair should be recorded as unequipped after hiding")
	}
}

func TestValidateImportBeforeAndAfterImport(t *testing.T) {
	svc := newTestService(avatarScene())
	ctx := context.Background()

	before, err := svc.ValidateImport(ctx)
	if err != nil {
		t.Fatalf("validate before import: %v", err)
	}
	if !before.CharacterFound || !before.TraitsFound {
		t.Fatalf("character and traits are present pre-import: %+v", before)
	}
	if before.ScaleConsistent {
		t.Fatal("vendor scale 0.01 must not count as consistent")
	}
	if before.TraitsRegistered {
		t.Fatal("no registrations exist yet")
	}
	if before.AllPassed {
		t.Fatal("validation cannot pass before the import ran")
	}

	if _, _, err := svc.RegisterPack(ctx, domain.PackRecord{Key: "pack/a"}); err != nil {
		t.Fatalf("register pack: %v", err)
	}
	if _, _, err := svc.ImportPack(ctx, "pack/a", ""); err != nil {
		t.Fatalf("import: %v", err)
	}

	after, err := svc.ValidateImport(ctx)
	if err != nil {
		t.Fatalf("validate after import: %v", err)
	}
	if !after.AllPassed {
		t.Fatalf("expected validation to pass after import: %+v", after)
	}
}

func TestRegisterPackPreservesIdentityOnUpdate(t *testing.T) {
	svc := newTestService(avatarScene())
	ctx := context.Background()

	first, _, err := svc.RegisterPack(ctx, domain.PackRecord{
		Key:      "pack/a",
		Manifest: domain.PackManifest{Name: "A"},
	})
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("stored pack missing identity: %+v", first)
	}

	second, _, err := svc.RegisterPack(ctx, domain.PackRecord{
		Key:      "pack/a",
		Manifest: domain.PackManifest{Name: "A", Creator: "studio"},
	})
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("re-register changed id %q -> %q", first.ID, second.ID)
	}
	if second.Manifest.Creator != "studio" {
		t.Fatalf("manifest update lost: %+v", second.Manifest)
	}
	if got := len(svc.ListPacks()); got != 1 {
		t.Fatalf("expected single pack, got %d", got)
	}
}

func TestRecordImportBlockedOnScaleViolation(t *testing.T) {
	svc := newTestService(avatarScene())

	_, err := svc.Store().RunInTransaction(context.Background(), func(tx core.Transaction) error {
		_, err := tx.RecordImport(domain.ImportRecord{
			PackKey: "pack/a",
			Normalization: domain.NormalizationReport{
				Rescaled:      1,
				VerifiedScale: 1.5,
			},
		})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	blocked := false
	for _, v := range violation.Result.Violations {
		if v.Rule == "scale_normalized" && v.Severity == domain.SeverityBlock {
			blocked = true
		}
	}
	if !blocked {
		t.Fatalf("expected blocking scale_normalized violation, got %+v", violation.Result.Violations)
	}
	if got := len(svc.ListImports()); got != 0 {
		t.Fatalf("blocked import must not persist, got %d records", got)
	}
}
