package health

import (
	"fmt"
	"strings"
	"time"

	"tankcore/pkg/domain"
)

type maintenanceCheck struct{}

func (maintenanceCheck) evaluate(ctx *evalContext) []Finding {
	last := make(map[domain.MaintenanceType]time.Time)
	for _, ev := range ctx.in.Maintenance {
		kind := domain.NormalizeMaintenanceType(string(ev.Type))
		if kind == "" || ev.PerformedAt.IsZero() {
			continue
		}
		if ev.PerformedAt.After(last[kind]) {
			last[kind] = ev.PerformedAt
		}
	}
	if len(last) == 0 {
		return []Finding{{
			Category: CategoryMaintenance,
			Severity: SeverityWarning,
			Code:     CodeNoHistory,
			Message:  "no maintenance history recorded",
		}}
	}

	var findings []Finding
	for _, exp := range ctx.policy.Maintenance {
		if exp.ReefOnly && !ctx.in.Classification.Reef {
			continue
		}
		label := taskLabel(exp.Type)
		f := Finding{Category: CategoryMaintenance, Subject: string(exp.Type)}
		at, ok := last[exp.Type]
		switch {
		case !ok:
			f.Severity = SeverityWarning
			f.Code = CodeMaintenanceMissing
			f.Message = fmt.Sprintf("no %s recorded", label)
		case ctx.age(at) > exp.Interval:
			f.Severity = SeverityWarning
			f.Code = CodeMaintenanceOverdue
			f.Message = fmt.Sprintf("%s overdue: last done %s ago, due every %s", label, days(ctx.age(at)), days(exp.Interval))
		default:
			f.Severity = SeverityOK
			f.Code = CodeMaintenanceCurrent
			f.Message = fmt.Sprintf("%s last done %s ago", label, days(ctx.age(at)))
		}
		findings = append(findings, f)
	}
	return findings
}

func taskLabel(t domain.MaintenanceType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

func days(d time.Duration) string {
	n := int(d / day)
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
