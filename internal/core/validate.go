package core

import "math"

// originEpsilon bounds "sitting at the origin" for the positioned check.
// Looser than OriginTolerance because un-positioned imports dump collections
// exactly at (0,0,0) while positioned ones land centimetres away at worst.
const originEpsilon = 1e-3

// buildSummary derives the import validation booleans from the registry view
// and a normalization report. It reads only persisted and reported state so
// the same summary can be rebuilt later from the import record.
func (s *Service) buildSummary(view TransactionView, norm NormalizationReport) ImportSummary {
	summary := ImportSummary{}

	objects := s.scene.Objects()
	summary.CharacterFound = len(characterObjects(objects)) > 0

	collections := s.traitCollections()
	summary.TraitsFound = len(collections) > 0

	scale := norm.VerifiedScale
	if scale == 0 {
		scale = norm.CharacterScale
	}
	summary.ScaleConsistent = scale != 0 && math.Abs(scale-1.0) <= ScaleTolerance

	summary.TraitsPositioned = s.traitsPositioned(collections)
	summary.TraitsRegistered = s.traitsRegistered(view, collections)

	summary.AllPassed = summary.CharacterFound && summary.TraitsFound &&
		summary.ScaleConsistent && summary.TraitsPositioned && summary.TraitsRegistered
	return summary
}

// traitsPositioned passes when fewer than half of the trait collections sit
// at the world origin. A single origin-dweller can be a legitimately
// anchored trait; a pile of them means positioning never ran.
func (s *Service) traitsPositioned(collections []TraitCollection) bool {
	if len(collections) == 0 {
		return false
	}
	atOrigin := 0
	for _, col := range collections {
		centroid, ok := s.collectionCentroid(col)
		if !ok {
			continue
		}
		if centroid.Length() <= originEpsilon {
			atOrigin++
		}
	}
	return atOrigin*2 < len(collections)
}

func (s *Service) collectionCentroid(col TraitCollection) (Vec3, bool) {
	sum := Vec3{}
	count := 0
	for _, name := range col.Objects {
		o, ok := s.scene.Object(name)
		if !ok {
			continue
		}
		sum = sum.Add(o.WorldBoundsCenter())
		count++
	}
	if count == 0 {
		return Vec3{}, false
	}
	return sum.Mul(1.0 / float64(count)), true
}

// traitsRegistered passes when every trait collection has a registration
// entry in the view.
func (s *Service) traitsRegistered(view TransactionView, collections []TraitCollection) bool {
	if len(collections) == 0 {
		return false
	}
	for _, col := range collections {
		if _, ok := view.FindRegistration(col.Name); !ok {
			return false
		}
	}
	return true
}
