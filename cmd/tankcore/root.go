package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// flag name -> config key
var boundFlags = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"storage":    "storage.driver",
	"db":         "storage.sqlite_path",
	"blob":       "blob.driver",
	"blob-root":  "blob.fs_root",
	"units":      "units",
}

// run executes one command line and releases storage even when the command
// fails.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tankcore",
		Short:         "Aquarium records, setup guidance and health scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("storage", "sqlite", "storage driver (memory, sqlite, postgres)")
	pf.String("db", "tankcore.db", "sqlite database path")
	pf.String("blob", "fs", "photo storage driver (memory, fs, s3)")
	pf.String("blob-root", "./blobdata", "photo directory for the fs driver")
	pf.String("units", "imperial", "display units (imperial, metric)")
	pf.StringVarP(&a.output, "output", "o", outputTable, "output format (table, json)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		rangesCmd(a),
		optionsCmd(a),
		tankCmd(a),
		testCmd(a),
		maintenanceCmd(a),
		livestockCmd(a),
		equipmentCmd(a),
		healthCmd(a),
		setupCmd(a),
		versionCmd(a),
	)
	return root
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.out, "tankcore %s\n", version)
			return err
		},
	}
}
