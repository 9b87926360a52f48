package core

import "clonecore/pkg/domain"

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewScaleNormalizedRule())
	engine.Register(NewCollectionPositionedRule())
	engine.Register(NewRegistrationCompleteRule())
	engine.Register(NewGenderConsistencyRule())
	return engine
}
