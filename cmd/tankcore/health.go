package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tankcore/pkg/health"
)

func healthCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "health <tank-id>",
		Short: "Score a tank's health from its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			score, err := svc.EvaluateTank(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			findings := score.Findings
			if category != "" {
				findings = score.ByCategory(health.Category(strings.ToLower(category)))
			}
			if a.json() {
				score.Findings = findings
				return a.writeJSON(score)
			}
			if err := a.printf("overall %d/100 (%s, %d critical, %d warnings)\n\n",
				score.Overall, score.Classification,
				score.Count(health.SeverityCritical), score.Count(health.SeverityWarning)); err != nil {
				return err
			}
			rows := make([][]string, 0, len(findings))
			for _, f := range findings {
				rows = append(rows, []string{string(f.Category), string(f.Severity), strconv.Itoa(svc.HealthPenalty(f)), f.Message})
			}
			return a.table([]string{"CATEGORY", "SEVERITY", "PENALTY", "FINDING"}, rows)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only show findings of this category (parameters, maintenance, livestock, equipment)")
	return cmd
}
