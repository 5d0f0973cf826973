package core

import (
	"context"
	"fmt"

	"tankcore/pkg/domain"
)

// NewTankReferenceRule blocks child records that point at a tank which does
// not exist in the post-transaction view.
func NewTankReferenceRule() domain.Rule {
	return tankReferenceRule{}
}

type tankReferenceRule struct{}

func (tankReferenceRule) Name() string { return "tank_reference" }

func (r tankReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		id, tankID, ok := childRef(change.After)
		if !ok {
			continue
		}
		if tankID == "" {
			res.Violations = append(res.Violations, r.violation(change.Entity, id, fmt.Sprintf("%s %s has no tank", change.Entity, id)))
			continue
		}
		if _, found := view.FindTank(tankID); !found {
			res.Violations = append(res.Violations, r.violation(change.Entity, id, fmt.Sprintf("%s %s references unknown tank %s", change.Entity, id, tankID)))
		}
	}
	return res, nil
}

func (r tankReferenceRule) violation(entity domain.EntityType, id, msg string) domain.Violation {
	return domain.Violation{Rule: r.Name(), Severity: domain.SeverityBlock, Message: msg, Entity: entity, EntityID: id}
}

func childRef(record any) (id, tankID string, ok bool) {
	switch v := record.(type) {
	case domain.WaterTest:
		return v.ID, v.TankID, true
	case domain.MaintenanceEvent:
		return v.ID, v.TankID, true
	case domain.LivestockEntry:
		return v.ID, v.TankID, true
	case domain.EquipmentEntry:
		return v.ID, v.TankID, true
	default:
		return "", "", false
	}
}
