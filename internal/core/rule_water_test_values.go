package core

import (
	"context"
	"fmt"
	"math"
	"sort"

	"tankcore/pkg/domain"
)

// NewWaterTestValuesRule blocks readings that cannot be measurements
// (negative, NaN or infinite) and warns about unknown parameter names.
func NewWaterTestValuesRule() domain.Rule {
	return waterTestValuesRule{}
}

type waterTestValuesRule struct{}

func (waterTestValuesRule) Name() string { return "water_test_values" }

func (r waterTestValuesRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		wt, ok := change.After.(domain.WaterTest)
		if !ok || change.Action == domain.ActionDelete {
			continue
		}
		names := make([]string, 0, len(wt.Values))
		for name := range wt.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := wt.Values[name]
			if !domain.IsKnownParameter(domain.ParameterName(name)) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("water test %s records unknown parameter %q", wt.ID, name),
					Entity:   domain.EntityWaterTest,
					EntityID: wt.ID,
				})
			}
			if v == nil {
				continue
			}
			if math.IsNaN(*v) || math.IsInf(*v, 0) || (*v < 0 && domain.ParameterName(name) != domain.ParamTemperature) {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("water test %s has invalid %s reading %v", wt.ID, name, *v),
					Entity:   domain.EntityWaterTest,
					EntityID: wt.ID,
				})
			}
		}
	}
	return res, nil
}
