package core

import (
	"context"
	"fmt"
	"strings"

	"clonecore/pkg/domain"
)

// NewGenderConsistencyRule returns the rule logging registration entries
// whose declared gender conflicts with their name prefix. The prefix is a
// naming convention, not a contract, so conflicts are surfaced at log
// severity and never block.
func NewGenderConsistencyRule() domain.Rule {
	return genderConsistencyRule{}
}

type genderConsistencyRule struct{}

func (genderConsistencyRule) Name() string { return "registration_gender_consistent" }

func (genderConsistencyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		entry, ok := change.After.(domain.RegistrationEntry)
		if !ok {
			continue
		}
		prefix := entry.Gender.Prefix()
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(entry.Name, prefix) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "registration_gender_consistent",
			Severity: domain.SeverityLog,
			Message:  fmt.Sprintf("registration %s declares gender %s but lacks the %s prefix", entry.Name, entry.Gender, prefix),
			Entity:   domain.EntityRegistration,
			EntityID: entry.Name,
		})
	}
	return res, nil
}
