package main

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tankcore/internal/core"
	"tankcore/pkg/domain"
	"tankcore/pkg/ranges"
)

const timeLayout = "2006-01-02 15:04"

// parseWhen accepts RFC 3339 or a bare date; empty means now.
func parseWhen(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

func testCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Record and list water tests",
	}
	var (
		values []string
		at     string
	)
	record := &cobra.Command{
		Use:   "record <tank-id>",
		Short: "Record a water test",
		Example: `  tankcore test record 3f2a... --value ph=7.2 --value ammonia=0 --value nitrate=10
  tankcore test record 3f2a... --value nitrite=   # measured but not recorded`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			readings, err := parseReadings(values)
			if err != nil {
				return err
			}
			when, err := parseWhen(at)
			if err != nil {
				return err
			}
			if a.cfg.UnitSystem() == ranges.Metric {
				if t := readings[domain.ParamTemperature]; t != nil {
					f := ranges.CelsiusToFahrenheit(*t)
					readings[domain.ParamTemperature] = &f
				}
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			wt, res, err := svc.RecordWaterTest(cmd.Context(), core.WaterTest{TankID: args[0], RecordedAt: when, Values: readings})
			if err != nil {
				return err
			}
			a.reportWarnings(res)
			return a.printWaterTests([]core.WaterTest{wt})
		},
	}
	record.Flags().StringArrayVar(&values, "value", nil, "parameter=value reading (repeatable)")
	record.Flags().StringVar(&at, "at", "", "test time (RFC 3339 or YYYY-MM-DD, default now)")

	list := &cobra.Command{
		Use:   "list <tank-id>",
		Short: "List a tank's water tests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			return a.printWaterTests(svc.ListWaterTests(args[0]))
		},
	}
	cmd.AddCommand(record, list)
	return cmd
}

func (a *app) printWaterTests(tests []core.WaterTest) error {
	if a.json() {
		return a.writeJSON(tests)
	}
	units := a.cfg.UnitSystem()
	rows := make([][]string, 0, len(tests))
	for _, wt := range tests {
		names := make([]string, 0, len(wt.Values))
		for name := range wt.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			if v, ok := wt.Value(name); ok {
				parts = append(parts, name+"="+ranges.FormatValue(name, v, units))
			}
		}
		rows = append(rows, []string{wt.ID, wt.RecordedAt.Format(timeLayout), strings.Join(parts, ", ")})
	}
	return a.table([]string{"ID", "RECORDED", "READINGS"}, rows)
}

func maintenanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Record and list maintenance",
	}
	var (
		at      string
		percent float64
		notes   string
	)
	record := &cobra.Command{
		Use:   "record <tank-id> <type>",
		Short: "Record a maintenance event",
		Long: `Record a maintenance event. Common types are water_change,
filter_maintenance, glass_cleaning, dosing and water_testing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(at)
			if err != nil {
				return err
			}
			ev := core.MaintenanceEvent{TankID: args[0], Type: domain.NormalizeMaintenanceType(args[1]), PerformedAt: when}
			if cmd.Flags().Changed("percent") {
				ev.VolumePercent = &percent
			}
			if notes != "" {
				ev.Notes = &notes
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			created, res, err := svc.RecordMaintenance(cmd.Context(), ev)
			if err != nil {
				return err
			}
			a.reportWarnings(res)
			return a.printMaintenance([]core.MaintenanceEvent{created})
		},
	}
	record.Flags().StringVar(&at, "at", "", "time performed (RFC 3339 or YYYY-MM-DD, default now)")
	record.Flags().Float64Var(&percent, "percent", 0, "water change volume percent")
	record.Flags().StringVar(&notes, "notes", "", "free-form notes")

	list := &cobra.Command{
		Use:   "list <tank-id>",
		Short: "List a tank's maintenance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			return a.printMaintenance(svc.ListMaintenance(args[0]))
		},
	}
	cmd.AddCommand(record, list)
	return cmd
}

func (a *app) printMaintenance(events []core.MaintenanceEvent) error {
	if a.json() {
		return a.writeJSON(events)
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		pct := ""
		if ev.VolumePercent != nil {
			pct = fmtFloat(*ev.VolumePercent) + "%"
		}
		rows = append(rows, []string{ev.ID, string(ev.Type), ev.PerformedAt.Format(timeLayout), pct})
	}
	return a.table([]string{"ID", "TYPE", "PERFORMED", "VOLUME"}, rows)
}

func livestockCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "livestock",
		Short: "Manage a tank's livestock roster",
	}
	var (
		quantity int
		size     float64
	)
	add := &cobra.Command{
		Use:   "add <tank-id> <category> <species>",
		Short: "Add livestock to a tank",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := core.LivestockEntry{TankID: args[0], Category: strings.ToLower(args[1]), Species: args[2], Quantity: quantity}
			if cmd.Flags().Changed("adult-size") {
				entry.AdultSizeInches = &size
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			created, res, err := svc.AddLivestock(cmd.Context(), entry)
			if err != nil {
				return err
			}
			a.reportWarnings(res)
			return a.printLivestock([]core.LivestockEntry{created})
		},
	}
	add.Flags().IntVar(&quantity, "quantity", 1, "number of individuals")
	add.Flags().Float64Var(&size, "adult-size", 0, "adult size in inches")

	list := &cobra.Command{
		Use:   "list <tank-id>",
		Short: "List a tank's livestock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			return a.printLivestock(svc.ListLivestock(args[0]))
		},
	}

	remove := &cobra.Command{
		Use:   "remove <entry-id>",
		Short: "Remove a livestock entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			if _, err := svc.RemoveLivestock(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printf("removed %s\n", args[0])
		},
	}
	cmd.AddCommand(add, list, remove)
	return cmd
}

func (a *app) printLivestock(entries []core.LivestockEntry) error {
	if a.json() {
		return a.writeJSON(entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, l := range entries {
		size := ""
		if l.AdultSizeInches != nil {
			size = fmtFloat(*l.AdultSizeInches) + " in"
		}
		rows = append(rows, []string{l.ID, l.Category, l.Species, strconv.Itoa(l.Quantity), size})
	}
	return a.table([]string{"ID", "CATEGORY", "SPECIES", "QTY", "ADULT SIZE"}, rows)
}

func equipmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equipment",
		Short: "Manage a tank's equipment roster",
	}
	var installed string
	add := &cobra.Command{
		Use:   "add <tank-id> <type> [name]",
		Short: "Add equipment to a tank",
		Long: `Add equipment to a tank. The type is normalised, so "canister" and
"sponge" both count as a filter.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(installed)
			if err != nil {
				return err
			}
			entry := core.EquipmentEntry{TankID: args[0], Type: args[1], InstalledAt: when}
			if len(args) == 3 {
				entry.Name = args[2]
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			created, res, err := svc.AddEquipment(cmd.Context(), entry)
			if err != nil {
				return err
			}
			a.reportWarnings(res)
			return a.printEquipment([]core.EquipmentEntry{created})
		},
	}
	add.Flags().StringVar(&installed, "installed", "", "install time (RFC 3339 or YYYY-MM-DD, default now)")

	var servicedAt string
	service := &cobra.Command{
		Use:   "service <equipment-id>",
		Short: "Record that equipment was serviced or replaced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(servicedAt)
			if err != nil {
				return err
			}
			if when.IsZero() {
				when = time.Now().UTC()
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			updated, _, err := svc.UpdateEquipment(cmd.Context(), args[0], func(e *core.EquipmentEntry) error {
				e.LastServicedAt = &when
				return nil
			})
			if err != nil {
				return err
			}
			return a.printEquipment([]core.EquipmentEntry{updated})
		},
	}
	service.Flags().StringVar(&servicedAt, "at", "", "service time (RFC 3339 or YYYY-MM-DD, default now)")

	list := &cobra.Command{
		Use:   "list <tank-id>",
		Short: "List a tank's equipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			return a.printEquipment(svc.ListEquipment(args[0]))
		},
	}
	cmd.AddCommand(add, service, list)
	return cmd
}

func (a *app) printEquipment(entries []core.EquipmentEntry) error {
	if a.json() {
		return a.writeJSON(entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.Type, e.Name, e.ServicedAt().Format(timeLayout)})
	}
	return a.table([]string{"ID", "TYPE", "NAME", "LAST SERVICED"}, rows)
}
