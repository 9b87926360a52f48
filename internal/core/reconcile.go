package core

import (
	"fmt"
	"strings"
)

// genderFromName derives the gender tag from a trait collection name prefix.
func genderFromName(name string) Gender {
	switch {
	case strings.HasPrefix(name, "f_"):
		return GenderFemale
	case strings.HasPrefix(name, "m_"):
		return GenderMale
	default:
		return GenderAny
	}
}

// reconcileInTx aligns the registration registry with the scene's trait
// collections inside an open transaction. It is additive: every collection
// gains an entry, and existing entries are never removed unless stale
// pruning was opted into. Added lists entries created this pass, Equipped
// lists entries whose equipped flag was synced to the view layer, Pruned
// lists removed stale entries, and Warnings names stale entries left alone.
func (s *Service) reconcileInTx(tx Transaction) (ReconcileReport, error) {
	report := ReconcileReport{}
	collections := s.traitCollections()
	present := make(map[string]struct{}, len(collections))

	for _, col := range collections {
		present[col.Name] = struct{}{}
		equipped := false
		for _, member := range col.Objects {
			if s.scene.InViewLayer(member) {
				equipped = true
				break
			}
		}

		existing, ok := tx.FindRegistration(col.Name)
		if !ok {
			entry := RegistrationEntry{
				Name:     col.Name,
				TraitDir: col.Name,
				Gender:   genderFromName(col.Name),
				Equipped: equipped,
			}
			if _, err := tx.CreateRegistration(entry); err != nil {
				return report, fmt.Errorf("register %s: %w", col.Name, err)
			}
			report.Added = append(report.Added, col.Name)
			continue
		}
		if existing.Equipped != equipped {
			_, err := tx.UpdateRegistration(col.Name, func(e *RegistrationEntry) error {
				e.Equipped = equipped
				return nil
			})
			if err != nil {
				return report, fmt.Errorf("update %s: %w", col.Name, err)
			}
			report.Equipped = append(report.Equipped, col.Name)
		}
	}

	for _, entry := range tx.Snapshot().ListRegistrations() {
		if _, ok := present[entry.Name]; ok {
			continue
		}
		if !s.pruneStale {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("registration %s has no scene collection", entry.Name))
			continue
		}
		if err := tx.RemoveRegistration(entry.Name); err != nil {
			return report, fmt.Errorf("prune %s: %w", entry.Name, err)
		}
		report.Pruned = append(report.Pruned, entry.Name)
	}
	return report, nil
}
