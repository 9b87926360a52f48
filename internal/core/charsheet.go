package core

import (
	"context"
	"strings"

	"clonecore/internal/charsheet"
)

// characterCollection groups the character's own geometry in the scene.
const characterCollection = "Character"

// CharacterSheetPlan is the planned turnaround capture for the scene's
// character: camera views plus the contact sheet slot each render fills.
// Views whose names carry no slot (numbered orbits) are planned but not
// mapped.
type CharacterSheetPlan struct {
	Views      []charsheet.View          `json:"views"`
	Slots      map[string]charsheet.Rect `json:"slots,omitempty"`
	SlotByView map[string]string         `json:"slot_by_view,omitempty"`
}

// PlanCharacterSheet plans the turnaround captures for the live scene. Body
// views orbit the combined bounds of the character collection's meshes,
// closeups frame the head geometry; either set is dropped when its source
// objects are missing. bodyCount <= 0 selects the eight-point orbit.
func (s *Service) PlanCharacterSheet(ctx context.Context, bodyCount int) (CharacterSheetPlan, error) {
	_, finish := s.observe(ctx, "plan_character_sheet")
	if bodyCount <= 0 {
		bodyCount = 8
	}

	var bodyBounds, headBounds worldBounds
	for _, o := range s.scene.Objects() {
		if o.Type != ObjectMesh {
			continue
		}
		if strings.Contains(strings.ToLower(o.Name), "headgeo") {
			headBounds.include(o)
		}
		for _, col := range o.Collections {
			if col == characterCollection {
				bodyBounds.include(o)
				break
			}
		}
	}

	plan := CharacterSheetPlan{}
	if bodyBounds.valid {
		center := bodyBounds.center()
		plan.Views = charsheet.BodyViews(center, bodyBounds.max.Z-bodyBounds.min.Z, bodyCount)
	}
	if headBounds.valid {
		center := headBounds.center()
		plan.Views = append(plan.Views, charsheet.CloseupViews(center, headBounds.max.Z-headBounds.min.Z)...)
	}
	if len(plan.Views) == 0 {
		finish("", nil)
		return plan, nil
	}

	plan.Slots = charsheet.Slots()
	plan.SlotByView = make(map[string]string)
	for _, v := range plan.Views {
		if slot, ok := charsheet.SlotKey(v.Name); ok {
			plan.SlotByView[v.Name] = slot
		}
	}
	finish("", nil)
	s.logger.Info("character sheet planned", "views", len(plan.Views), "body_count", bodyCount)
	return plan, nil
}
