package core

import "tankcore/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewTankReferenceRule())
	engine.Register(NewWaterTestValuesRule())
	engine.Register(NewStockingCapacityRule(0, 0))
	return engine
}
