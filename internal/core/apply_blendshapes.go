package core

import (
	"context"
	"fmt"

	"clonecore/internal/blendshape"
)

// BlendshapeReport summarises one shape-key canonicalization pass.
type BlendshapeReport struct {
	ObjectsVisited int               `json:"objects_visited"`
	ObjectsChanged int               `json:"objects_changed"`
	Renamed        map[string]string `json:"renamed,omitempty"`
}

// ApplyBlendshapeNames renames mesh shape keys to their canonical ARKit
// form through the scene store. Meshes without shape keys are skipped;
// already-canonical keys are left untouched, so the pass is idempotent.
func (s *Service) ApplyBlendshapeNames(ctx context.Context) (BlendshapeReport, error) {
	_, finish := s.observe(ctx, "apply_blendshape_names")

	report := BlendshapeReport{Renamed: make(map[string]string)}
	var opErr error
	for _, o := range s.scene.Objects() {
		if o.Type != ObjectMesh || len(o.ShapeKeys) == 0 {
			continue
		}
		report.ObjectsVisited++
		plan := blendshape.RenamePlan(o.ShapeKeys)
		if len(plan) == 0 {
			continue
		}
		keys := make([]string, len(o.ShapeKeys))
		for i, key := range o.ShapeKeys {
			if canonical, ok := plan[key]; ok {
				keys[i] = canonical
			} else {
				keys[i] = key
			}
		}
		if err := s.scene.SetShapeKeys(o.Name, keys); err != nil {
			opErr = fmt.Errorf("rename shape keys on %s: %w", o.Name, err)
			break
		}
		report.ObjectsChanged++
		for from, to := range plan {
			report.Renamed[from] = to
		}
	}
	finish("", opErr)
	if opErr != nil {
		return report, opErr
	}
	if report.ObjectsChanged > 0 {
		s.logger.Info("shape keys canonicalized",
			"objects", report.ObjectsChanged, "renamed", len(report.Renamed))
	}
	return report, nil
}
