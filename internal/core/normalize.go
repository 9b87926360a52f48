package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"clonecore/pkg/domain"
)

// Canonical trait collection name prefixes. Collections carrying one of
// these prefixes are treated as trait content; everything else belongs to
// the character or the host scene.
var traitCollectionPatterns = []string{"f_*", "m_*"}

// uniformScale returns the object's scale factor when all three components
// agree within ScaleTolerance.
func uniformScale(o SceneObject) (float64, bool) {
	if math.Abs(o.Scale.X-o.Scale.Y) > ScaleTolerance || math.Abs(o.Scale.Y-o.Scale.Z) > ScaleTolerance {
		return 0, false
	}
	return o.Scale.X, true
}

// isCharacterObject reports whether the object belongs to the character
// itself: the named head/suit geometry meshes plus any armature.
func isCharacterObject(o SceneObject) bool {
	if o.Type == ObjectArmature {
		return true
	}
	if o.Type != ObjectMesh {
		return false
	}
	lower := strings.ToLower(o.Name)
	return strings.Contains(lower, "headgeo") || strings.Contains(lower, "suitgeo")
}

func characterObjects(objects []SceneObject) []SceneObject {
	var out []SceneObject
	for _, o := range objects {
		if isCharacterObject(o) {
			out = append(out, o)
		}
	}
	return out
}

// dominantScale returns the most common uniform scale among the objects,
// bucketed at ScaleTolerance. Ties resolve toward the value closest to 1.0
// so a half-normalized scene converges instead of oscillating.
func dominantScale(objects []SceneObject) (float64, bool) {
	type bucket struct {
		value float64
		count int
	}
	buckets := make(map[int64]*bucket)
	for _, o := range objects {
		s, ok := uniformScale(o)
		if !ok || s <= 0 {
			continue
		}
		key := int64(math.Round(s / ScaleTolerance))
		if b, ok := buckets[key]; ok {
			b.count++
		} else {
			buckets[key] = &bucket{value: s, count: 1}
		}
	}
	if len(buckets) == 0 {
		return 0, false
	}
	var best *bucket
	for _, b := range buckets {
		switch {
		case best == nil:
			best = b
		case b.count > best.count:
			best = b
		case b.count == best.count && math.Abs(b.value-1.0) < math.Abs(best.value-1.0):
			best = b
		}
	}
	return best.value, true
}

// TraitCollections enumerates a scene's trait collections using the registry
// naming convention, deduplicated and sorted by name for deterministic
// processing order.
func TraitCollections(scene SceneStore) []TraitCollection {
	seen := make(map[string]TraitCollection)
	for _, pattern := range traitCollectionPatterns {
		for _, col := range scene.CollectionsMatching(pattern) {
			seen[col.Name] = col
		}
	}
	out := make([]TraitCollection, 0, len(seen))
	for _, col := range seen {
		out = append(out, col)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) traitCollections() []TraitCollection {
	return TraitCollections(s.scene)
}

func (s *Service) traitMemberObjects(collections []TraitCollection) []SceneObject {
	seen := make(map[string]struct{})
	var out []SceneObject
	for _, col := range collections {
		for _, name := range col.Objects {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			if o, ok := s.scene.Object(name); ok {
				out = append(out, o)
			}
		}
	}
	return out
}

// detectionReport runs detection (step A) only, without mutating the scene.
// ValidateImport uses it to recompute scale consistency on demand.
func (s *Service) detectionReport() NormalizationReport {
	objects := s.scene.Objects()
	collections := s.traitCollections()
	chars := characterObjects(objects)
	traits := s.traitMemberObjects(collections)

	report := NormalizationReport{}
	charScale, okC := dominantScale(chars)
	traitScale, okT := dominantScale(traits)
	report.CharacterScale = charScale
	report.TraitScale = traitScale
	if okC && okT && charScale > 0 {
		ratio := traitScale / charScale
		if ratio < 0.9 || ratio > 1.1 {
			report.MismatchDetected = true
		}
	}
	verified, okV := dominantScale(append(append([]SceneObject(nil), chars...), traits...))
	if okV {
		report.VerifiedScale = verified
	}
	return report
}

// normalizePass implements the full normalization pass:
//
//	A detect dominant scales and flag character/trait mismatch,
//	B reset deviating uniform scales to exactly 1.0, baking the factor
//	  into bounds for geometry that supports it,
//	C derive character reference points from head and armature bounds,
//	D classify each trait collection and translate it rigidly onto its
//	  anchor,
//	E re-detect the dominant scale and verify moved centroids sit away
//	  from the origin.
func (s *Service) normalizePass(_ context.Context) (NormalizationReport, error) {
	report := NormalizationReport{}
	if s.scene == nil {
		return report, fmt.Errorf("core: no scene store configured")
	}

	objects := s.scene.Objects()
	collections := s.traitCollections()
	chars := characterObjects(objects)
	traits := s.traitMemberObjects(collections)

	// Step A: detection.
	charScale, okC := dominantScale(chars)
	traitScale, okT := dominantScale(traits)
	report.CharacterScale = charScale
	report.TraitScale = traitScale
	if okC && okT && charScale > 0 {
		ratio := traitScale / charScale
		if ratio < 0.9 || ratio > 1.1 {
			report.MismatchDetected = true
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("scale mismatch: character %.4f vs traits %.4f", charScale, traitScale))
		}
	}

	// Step B: normalize deviating scales to exactly 1.0.
	normalized := make(map[string]struct{})
	for _, o := range append(append([]SceneObject(nil), chars...), traits...) {
		if _, done := normalized[o.Name]; done {
			continue
		}
		normalized[o.Name] = struct{}{}
		scale, ok := uniformScale(o)
		if !ok {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("object %s has non-uniform scale, left untouched", o.Name))
			continue
		}
		if math.Abs(scale-1.0) <= ScaleTolerance {
			continue
		}
		if o.Type.SupportsBake() {
			if err := s.scene.SetBounds(o.Name, o.BoundsMin.Mul(scale), o.BoundsMax.Mul(scale)); err != nil {
				return report, fmt.Errorf("bake bounds for %s: %w", o.Name, err)
			}
			if err := s.scene.SetScale(o.Name, domain.Uniform(1.0)); err != nil {
				return report, fmt.Errorf("reset scale for %s: %w", o.Name, err)
			}
			report.Baked++
		} else {
			if err := s.scene.SetScale(o.Name, domain.Uniform(1.0)); err != nil {
				return report, fmt.Errorf("reset scale for %s: %w", o.Name, err)
			}
			report.Rescaled++
		}
	}

	// Step C: reference points from the post-rescale scene.
	refs := ComputeReferencePoints(s.scene.Objects())

	// Step D: classify and rigidly translate each collection.
	for _, col := range collections {
		status := s.positionCollection(col, refs)
		report.Collections = append(report.Collections, status)
	}

	// Step E: verification.
	finalObjects := s.scene.Objects()
	finalChars := characterObjects(finalObjects)
	finalTraits := s.traitMemberObjects(collections)
	if verified, ok := dominantScale(append(append([]SceneObject(nil), finalChars...), finalTraits...)); ok {
		report.VerifiedScale = verified
		if math.Abs(verified-1.0) > ScaleTolerance && (report.Rescaled > 0 || report.Baked > 0) {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("dominant scale %.6f still deviates after normalization", verified))
		}
	}
	for i, status := range report.Collections {
		if !status.Moved {
			continue
		}
		if status.Centroid.Length() < OriginTolerance && status.Target.Length() >= OriginTolerance {
			report.Collections[i].Reason = "centroid near origin after move"
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("collection %s centroid remained near origin", status.Name))
		}
	}
	return report, nil
}

// positionCollection classifies one collection and translates every member
// by the same delta so relative layout inside the collection is preserved.
func (s *Service) positionCollection(col TraitCollection, refs ReferencePoints) CollectionStatus {
	category, anchor := s.classifier.Classify(col.Name)
	status := CollectionStatus{
		Name:     col.Name,
		Category: category,
		Anchor:   anchor,
		Target:   refs[anchor],
	}
	if len(col.Objects) == 0 {
		status.Skipped = true
		status.Reason = "empty collection"
		return status
	}

	members := make([]SceneObject, 0, len(col.Objects))
	for _, name := range col.Objects {
		o, ok := s.scene.Object(name)
		if !ok {
			status.Skipped = true
			status.Reason = fmt.Sprintf("member %s missing from scene", name)
			return status
		}
		if o.ArmatureBound {
			status.Skipped = true
			status.Reason = "armature-bound, follows rig"
			return status
		}
		members = append(members, o)
	}

	centroid := Vec3{}
	for _, m := range members {
		centroid = centroid.Add(m.WorldBoundsCenter())
	}
	centroid = centroid.Mul(1.0 / float64(len(members)))
	status.Centroid = centroid

	delta := status.Target.Sub(centroid)
	if delta.Length() <= ScaleTolerance {
		status.Reason = "already positioned"
		return status
	}
	for _, m := range members {
		if err := s.scene.SetPosition(m.Name, m.Position.Add(delta)); err != nil {
			status.Skipped = true
			status.Reason = fmt.Sprintf("move %s: %v", m.Name, err)
			return status
		}
	}
	status.Moved = true

	// Re-measure rather than assume: the recorded centroid is evidence the
	// move landed, not an echo of the target.
	measured := Vec3{}
	for _, m := range members {
		o, ok := s.scene.Object(m.Name)
		if !ok {
			continue
		}
		measured = measured.Add(o.WorldBoundsCenter())
	}
	status.Centroid = measured.Mul(1.0 / float64(len(members)))
	return status
}
