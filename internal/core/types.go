package core

import "tankcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Tank               = domain.Tank
	WaterTest          = domain.WaterTest
	MaintenanceEvent   = domain.MaintenanceEvent
	LivestockEntry     = domain.LivestockEntry
	EquipmentEntry     = domain.EquipmentEntry
	SetupSession       = domain.SetupSession
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	Rule               = domain.Rule
)

const (
	EntityTank         = domain.EntityTank
	EntityWaterTest    = domain.EntityWaterTest
	EntityMaintenance  = domain.EntityMaintenance
	EntityLivestock    = domain.EntityLivestock
	EntityEquipment    = domain.EntityEquipment
	EntitySetupSession = domain.EntitySetupSession
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
