package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tankcore/internal/core"
	"tankcore/pkg/wizard"
)

func setupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Walk through guided tank setup",
		Long: `Guided setup collects answers step by step. Which steps apply depends on
earlier answers: salinity only for saltwater, CO2 only for planted tanks and
coral focus only for reefs. Completing a session creates the tank and its
equipment.`,
	}
	cmd.AddCommand(
		setupStartCmd(a),
		setupAnswerCmd(a),
		setupStatusCmd(a),
		setupInvalidateCmd(a),
		setupCompleteCmd(a),
	)
	return cmd
}

func setupStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a setup session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			status, err := svc.StartSetup(cmd.Context())
			if err != nil {
				return err
			}
			return a.printSetup(status)
		},
	}
}

func setupAnswerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <session-id> <step> field=value...",
		Short: "Answer a setup step",
		Example: `  tankcore setup answer 9c1e... type aquarium_type=reef
  tankcore setup answer 9c1e... size name="Living room" volume_gallons=40`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseAnswers(args[2:])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			status, state, err := svc.AnswerSetupStep(cmd.Context(), args[0], args[1], payload)
			var verr *wizard.ValidationError
			if errors.As(err, &verr) {
				fields := make([]string, 0, len(verr.Fields))
				for f := range verr.Fields {
					fields = append(fields, f)
				}
				sort.Strings(fields)
				for _, f := range fields {
					fmt.Fprintf(a.errOut, "%s: %s\n", f, verr.Fields[f])
				}
				return fmt.Errorf("step %s not completed: answers saved, fix the fields above", verr.Step)
			}
			if err != nil {
				return err
			}
			if state != wizard.StateCompleted {
				fmt.Fprintf(a.errOut, "step %s is %s: answers saved\n", args[1], state)
			}
			return a.printSetup(status)
		},
	}
}

func setupStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a setup session's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			status, err := svc.SetupStatus(args[0])
			if err != nil {
				return err
			}
			return a.printSetup(status)
		},
	}
}

func setupInvalidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <session-id> <step>",
		Short: "Mark a completed step as needing an answer again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			status, err := svc.InvalidateSetupStep(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printSetup(status)
		},
	}
}

func setupCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Create the tank and equipment from a finished session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			tank, res, err := svc.CompleteSetup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.reportWarnings(res)
			return a.printTanks([]core.Tank{tank})
		},
	}
}

func (a *app) printSetup(status core.SetupStatus) error {
	if a.json() {
		return a.writeJSON(status)
	}
	next := status.Next
	if status.Complete {
		next = "(complete)"
	}
	if err := a.printf("session %s  next: %s\n\n", status.Session.ID, next); err != nil {
		return err
	}
	rows := make([][]string, 0, len(status.Steps))
	for _, st := range status.Steps {
		rows = append(rows, []string{st.Key, st.Title, string(st.State)})
	}
	return a.table([]string{"STEP", "TITLE", "STATE"}, rows)
}
