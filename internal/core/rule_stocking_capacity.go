package core

import (
	"context"
	"sort"

	"tankcore/pkg/domain"
	"tankcore/pkg/health"
)

// NewStockingCapacityRule warns when a write leaves a tank holding more
// inches of fish than its volume supports. Non-positive guidelines fall back
// to the default health policy.
func NewStockingCapacityRule(freshwaterGallonsPerInch, saltwaterGallonsPerInch float64) domain.Rule {
	policy := health.DefaultPolicy()
	if freshwaterGallonsPerInch > 0 {
		policy.FreshwaterGallonsPerInch = freshwaterGallonsPerInch
	}
	if saltwaterGallonsPerInch > 0 {
		policy.SaltwaterGallonsPerInch = saltwaterGallonsPerInch
	}
	agg, err := health.New(policy)
	if err != nil {
		agg, _ = health.New(health.DefaultPolicy())
	}
	return stockingCapacityRule{agg: agg}
}

type stockingCapacityRule struct {
	agg *health.Aggregator
}

func (stockingCapacityRule) Name() string { return "stocking_capacity" }

func (r stockingCapacityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	touched := make(map[string]struct{})
	for _, change := range changes {
		switch v := change.After.(type) {
		case domain.LivestockEntry:
			touched[v.TankID] = struct{}{}
		case domain.Tank:
			touched[v.ID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := domain.Result{}
	for _, id := range ids {
		tank, ok := view.FindTank(id)
		if !ok {
			continue
		}
		score := r.agg.Score(health.Input{
			Classification: tank.Classification(),
			VolumeGallons:  tank.VolumeGallons,
			Livestock:      view.ListLivestock(id),
		})
		for _, f := range score.ByCategory(health.CategoryLivestock) {
			if f.Code != health.CodeOverstocked {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  f.Message,
				Entity:   domain.EntityTank,
				EntityID: id,
			})
		}
	}
	return res, nil
}
