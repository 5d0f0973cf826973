package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"tankcore/internal/core"
)

func tankCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tank",
		Short: "Manage tanks",
	}
	cmd.AddCommand(tankCreateCmd(a), tankListCmd(a), tankShowCmd(a), tankDeleteCmd(a), tankPhotoCmd(a))
	return cmd
}

func tankCreateCmd(a *app) *cobra.Command {
	var (
		label   string
		gallons float64
		notes   string
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			tank := core.Tank{Name: args[0], AquariumType: label, VolumeGallons: gallons}
			if notes != "" {
				tank.Notes = &notes
			}
			created, res, err := svc.CreateTank(cmd.Context(), tank)
			if err != nil {
				return err
			}
			a.reportWarnings(res)
			return a.printTanks([]core.Tank{created})
		},
	}
	cmd.Flags().StringVar(&label, "type", "freshwater", "aquarium type label")
	cmd.Flags().Float64Var(&gallons, "gallons", 0, "volume in US gallons")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func tankListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tanks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			return a.printTanks(svc.ListTanks())
		},
	}
}

func tankShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tank-id>",
		Short: "Show a tank with its rosters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			tank, err := svc.GetTank(args[0])
			if err != nil {
				return err
			}
			detail := struct {
				core.Tank
				WaterTests  []core.WaterTest        `json:"water_tests"`
				Maintenance []core.MaintenanceEvent `json:"maintenance"`
				Livestock   []core.LivestockEntry   `json:"livestock"`
				Equipment   []core.EquipmentEntry   `json:"equipment"`
			}{
				Tank:        tank,
				WaterTests:  svc.ListWaterTests(tank.ID),
				Maintenance: svc.ListMaintenance(tank.ID),
				Livestock:   svc.ListLivestock(tank.ID),
				Equipment:   svc.ListEquipment(tank.ID),
			}
			if a.json() {
				return a.writeJSON(detail)
			}
			if err := a.printTanks([]core.Tank{tank}); err != nil {
				return err
			}
			return a.printf("\n%d water tests, %d maintenance events, %d livestock entries, %d equipment entries\n",
				len(detail.WaterTests), len(detail.Maintenance), len(detail.Livestock), len(detail.Equipment))
		},
	}
}

func tankDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tank-id>",
		Short: "Delete a tank, its records and photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			if _, err := svc.DeleteTank(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printf("deleted %s\n", args[0])
		},
	}
}

func (a *app) printTanks(tanks []core.Tank) error {
	if a.json() {
		return a.writeJSON(tanks)
	}
	rows := make([][]string, 0, len(tanks))
	for _, t := range tanks {
		rows = append(rows, []string{t.ID, t.Name, t.Classification().String(), fmtFloat(t.VolumeGallons)})
	}
	return a.table([]string{"ID", "NAME", "TYPE", "GALLONS"}, rows)
}

func tankPhotoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage tank photos",
	}
	var caption, contentType string
	add := &cobra.Command{
		Use:   "add <tank-id> <file>",
		Short: "Attach a photo to a tank",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := svc.AttachTankPhoto(cmd.Context(), args[0], core.PhotoUpload{
				Filename:    filepath.Base(args[1]),
				ContentType: contentType,
				Caption:     caption,
				Body:        f,
			})
			if err != nil {
				return err
			}
			if a.json() {
				return a.writeJSON(info)
			}
			return a.printf("%s\n", info.Key)
		},
	}
	add.Flags().StringVar(&caption, "caption", "", "photo caption")
	add.Flags().StringVar(&contentType, "content-type", "", "content type (detected from the extension when empty)")

	list := &cobra.Command{
		Use:   "list <tank-id>",
		Short: "List a tank's photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			photos, err := svc.ListTankPhotos(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.json() {
				return a.writeJSON(photos)
			}
			rows := make([][]string, 0, len(photos))
			for _, p := range photos {
				rows = append(rows, []string{p.Key, p.ContentType, strconv.FormatInt(p.Size, 10), p.Metadata[core.PhotoMetaCaption]})
			}
			return a.table([]string{"KEY", "TYPE", "BYTES", "CAPTION"}, rows)
		},
	}

	url := &cobra.Command{
		Use:   "url <tank-id> <key>",
		Short: "Print a time-limited download URL for a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			u, err := svc.TankPhotoURL(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("photo url: %w", err)
			}
			return a.printf("%s\n", u)
		},
	}
	cmd.AddCommand(add, list, url)
	return cmd
}
