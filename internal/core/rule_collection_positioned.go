package core

import (
	"context"
	"fmt"

	"clonecore/pkg/domain"
)

// OriginTolerance is the minimum distance from the world origin a positioned
// collection centroid must keep, unless its anchor target itself sits there.
const OriginTolerance = 0.01

// NewCollectionPositionedRule returns the rule warning when a moved trait
// collection ended up stacked at the origin even though its anchor is not
// there. Origin pile-ups are the classic symptom of positioning running
// against an empty or mis-detected character.
func NewCollectionPositionedRule() domain.Rule {
	return collectionPositionedRule{}
}

type collectionPositionedRule struct{}

func (collectionPositionedRule) Name() string { return "collection_positioned" }

func (collectionPositionedRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		record, ok := change.After.(domain.ImportRecord)
		if !ok {
			continue
		}
		for _, status := range record.Normalization.Collections {
			if !status.Moved {
				continue
			}
			if status.Target.Length() < OriginTolerance {
				continue
			}
			if status.Centroid.Length() < OriginTolerance {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "collection_positioned",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("collection %s positioned at origin while anchor %s is not", status.Name, status.Anchor),
					Entity:   domain.EntityImport,
					EntityID: record.ID,
				})
			}
		}
	}
	return res, nil
}
