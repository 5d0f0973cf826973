package core

import (
	"context"

	"tankcore/pkg/compat"
	"tankcore/pkg/health"
	"tankcore/pkg/ranges"
)

// EvaluateTank scores a tank from a consistent snapshot of its readings,
// maintenance history and rosters.
func (s *Service) EvaluateTank(ctx context.Context, tankID string) (health.Score, error) {
	var score health.Score
	err := s.observe(ctx, "evaluate_tank", func(ctx context.Context) (string, error) {
		var in health.Input
		err := s.store.View(ctx, func(view TransactionView) error {
			tank, ok := view.FindTank(tankID)
			if !ok {
				return ErrNotFound{Entity: EntityTank, ID: tankID}
			}
			in = health.ForTank(tank,
				view.ListWaterTests(tankID),
				view.ListMaintenanceEvents(tankID),
				view.ListLivestock(tankID),
				view.ListEquipment(tankID))
			return nil
		})
		if err != nil {
			return tankID, err
		}
		in.Now = s.now()
		in.Units = s.opts.units
		score = s.health.Score(in)
		if rec, ok := s.opts.metrics.(HealthRecorder); ok {
			rec.ObserveHealth(ctx, tankID, score)
		}
		s.opts.logger.Info("tank evaluated",
			"tank_id", tankID,
			"overall", score.Overall,
			"worst", string(score.Worst()),
			"critical", score.Count(health.SeverityCritical),
			"warnings", score.Count(health.SeverityWarning))
		return tankID, nil
	})
	return score, err
}

// RangesForTank resolves the ideal parameter ranges for a tank.
func (s *Service) RangesForTank(tankID string) (ranges.Table, error) {
	tank, err := s.GetTank(tankID)
	if err != nil {
		return ranges.Table{}, err
	}
	return ranges.Resolve(tank.Classification()), nil
}

// LivestockOptions lists the curated species suited to a tank for category.
func (s *Service) LivestockOptions(tankID, category string) ([]string, error) {
	tank, err := s.GetTank(tankID)
	if err != nil {
		return nil, err
	}
	return compat.Options(category, tank.Classification()), nil
}

// Units returns the display unit system.
func (s *Service) Units() ranges.UnitSystem { return s.opts.units }

// HealthPenalty returns the score deduction the active policy applies to f.
func (s *Service) HealthPenalty(f health.Finding) int { return s.health.Penalty(f) }
