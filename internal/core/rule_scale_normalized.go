package core

import (
	"context"
	"fmt"
	"math"

	"clonecore/pkg/domain"
)

// ScaleTolerance is the maximum deviation from 1.0 a normalized scale may
// carry. Detection buckets and the idempotence guarantee share this value.
const ScaleTolerance = 1e-4

// NewScaleNormalizedRule returns the in-transaction rule enforcing that an
// import which rescaled or baked geometry left the scene at unit scale. A
// record claiming normalization while its re-detected scale still deviates
// describes a broken post-condition, so the violation blocks the commit.
func NewScaleNormalizedRule() domain.Rule {
	return scaleNormalizedRule{}
}

type scaleNormalizedRule struct{}

func (scaleNormalizedRule) Name() string { return "scale_normalized" }

func (scaleNormalizedRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		record, ok := change.After.(domain.ImportRecord)
		if !ok {
			continue
		}
		norm := record.Normalization
		if norm.Rescaled == 0 && norm.Baked == 0 {
			continue
		}
		if norm.VerifiedScale == 0 {
			continue
		}
		if deviation := math.Abs(norm.VerifiedScale - 1.0); deviation > ScaleTolerance {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "scale_normalized",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("import %s: dominant scale %.6f after normalization, deviation %.6f exceeds %.0e", record.ID, norm.VerifiedScale, deviation, ScaleTolerance),
				Entity:   domain.EntityImport,
				EntityID: record.ID,
			})
		}
	}
	return res, nil
}
