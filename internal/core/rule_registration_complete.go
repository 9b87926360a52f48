package core

import (
	"context"
	"fmt"

	"clonecore/pkg/domain"
)

// NewRegistrationCompleteRule returns the rule warning when an import record
// references trait collections that have no registration entry. Reconciliation
// and import recording share a transaction, so on a healthy import the view
// already contains the entries this rule looks for.
func NewRegistrationCompleteRule() domain.Rule {
	return registrationCompleteRule{}
}

type registrationCompleteRule struct{}

func (registrationCompleteRule) Name() string { return "registration_complete" }

func (registrationCompleteRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		record, ok := change.After.(domain.ImportRecord)
		if !ok {
			continue
		}
		for _, status := range record.Normalization.Collections {
			if _, ok := view.FindRegistration(status.Name); ok {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "registration_complete",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("trait collection %s has no registration entry", status.Name),
				Entity:   domain.EntityRegistration,
				EntityID: status.Name,
			})
		}
	}
	return res, nil
}
