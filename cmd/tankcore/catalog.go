package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tankcore/pkg/compat"
	"tankcore/pkg/domain"
	"tankcore/pkg/ranges"
)

// classificationFor resolves --type, or the type of --tank when given.
func (a *app) classificationFor(cmd *cobra.Command, label, tankID string) (domain.Classification, error) {
	if tankID == "" {
		return domain.Classify(label), nil
	}
	svc, err := a.service(cmd.Context(), false)
	if err != nil {
		return domain.Classification{}, err
	}
	tank, err := svc.GetTank(tankID)
	if err != nil {
		return domain.Classification{}, err
	}
	return tank.Classification(), nil
}

func rangesCmd(a *app) *cobra.Command {
	var label, tankID string
	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "Show the ideal water parameter ranges for a tank type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cls, err := a.classificationFor(cmd, label, tankID)
			if err != nil {
				return err
			}
			units := a.cfg.UnitSystem()
			table := ranges.Resolve(cls)
			if a.json() {
				converted := make([]ranges.IdealRange, 0, table.Len())
				for _, r := range table.Ranges() {
					converted = append(converted, ranges.Convert(r, units))
				}
				return a.writeJSON(map[string]any{"classification": cls, "ranges": converted})
			}
			if err := a.printf("%s\n\n", cls); err != nil {
				return err
			}
			rows := make([][]string, 0, table.Len())
			for _, r := range table.Ranges() {
				rows = append(rows, []string{r.Parameter, ranges.Format(r, units), r.Note})
			}
			return a.table([]string{"PARAMETER", "IDEAL", "NOTE"}, rows)
		},
	}
	cmd.Flags().StringVar(&label, "type", "freshwater", "aquarium type label")
	cmd.Flags().StringVar(&tankID, "tank", "", "use the type of an existing tank")
	return cmd
}

func optionsCmd(a *app) *cobra.Command {
	var label, tankID, catalogFile string
	cmd := &cobra.Command{
		Use:   "options [category]",
		Short: "List livestock suited to a tank type",
		Long: `Without a category, list the livestock categories. With a category,
list the species of that category suited to the tank's water type.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := compat.Default()
			if catalogFile != "" {
				data, err := os.ReadFile(catalogFile)
				if err != nil {
					return fmt.Errorf("read catalog: %w", err)
				}
				if catalog, err = compat.ParseCatalog(data); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				if a.json() {
					return a.writeJSON(catalog.Categories())
				}
				return a.printf("%s\n", strings.Join(catalog.Categories(), "\n"))
			}
			cls, err := a.classificationFor(cmd, label, tankID)
			if err != nil {
				return err
			}
			options := catalog.Options(args[0], cls)
			if ok, why := catalog.Advisory(args[0], cls); !ok {
				fmt.Fprintf(a.errOut, "note: %s\n", why)
			}
			if a.json() {
				return a.writeJSON(options)
			}
			if len(options) == 0 {
				return nil
			}
			return a.printf("%s\n", strings.Join(options, "\n"))
		},
	}
	cmd.Flags().StringVar(&label, "type", "freshwater", "aquarium type label")
	cmd.Flags().StringVar(&tankID, "tank", "", "use the type of an existing tank")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "YAML livestock catalog replacing the built-in one")
	return cmd
}
