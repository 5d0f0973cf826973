package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tankcore/internal/blob"
	"tankcore/internal/config"
	"tankcore/internal/core"
	"tankcore/internal/platform/logger"
	"tankcore/pkg/domain"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type app struct {
	cfgFile     string
	output      string
	metricsFile string
	out         io.Writer
	errOut      io.Writer

	v        *viper.Viper
	cfg      *config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	svc      *core.Service
	closers  []func() error
}

func (a *app) init(cmd *cobra.Command) error {
	if a.output != outputTable && a.output != outputJSON {
		return fmt.Errorf("invalid output format: %s", a.output)
	}
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Root().PersistentFlags()
	for name, key := range boundFlags {
		// Only explicit flags override file and environment values.
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, a.errOut)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.v, a.cfg, a.log = v, cfg, log
	return nil
}

// service opens storage on first use. Photo storage is opened only when
// photos is set so plain commands never touch the blob backend.
func (a *app) service(ctx context.Context, photos bool) (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	policy, err := a.cfg.HealthPolicy()
	if err != nil {
		return nil, err
	}
	store, closeStore, err := core.OpenPersistentStore(ctx, core.StorageOptions{
		Driver:      core.StorageDriver(a.cfg.Storage.Driver),
		SQLitePath:  a.cfg.Storage.SQLitePath,
		PostgresDSN: a.cfg.Storage.PostgresDSN,
	}, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	a.registry = prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(a.registry)
	if err != nil {
		return nil, err
	}
	opts := []core.ServiceOption{
		core.WithLogger(a.log),
		core.WithAuditRecorder(core.LogAuditRecorder{Logger: a.log}),
		core.WithMetricsRecorder(metrics),
		core.WithHealthPolicy(policy),
		core.WithUnits(a.cfg.UnitSystem()),
		core.WithPhotoURLExpiry(a.cfg.Blob.URLExpiry),
	}
	if a.log.Enabled(ctx, slog.LevelDebug) {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.errOut)))
	}
	if photos {
		bs, err := blob.Open(ctx, blob.Config{
			Driver: blob.Driver(a.cfg.Blob.Driver),
			Root:   a.cfg.Blob.FSRoot,
			S3: blob.S3Config{
				Region:    a.cfg.Blob.S3Region,
				Bucket:    a.cfg.Blob.S3Bucket,
				Endpoint:  a.cfg.Blob.S3Endpoint,
				PathStyle: a.cfg.Blob.S3PathStyle,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize photo storage: %w", err)
		}
		opts = append(opts, core.WithBlobStore(bs))
	}
	svc, err := core.NewService(store, opts...)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() error {
	var errs []error
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.svc = nil
	return errors.Join(errs...)
}

func (a *app) json() bool { return a.output == outputJSON }

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes tab-separated rows aligned into columns.
func (a *app) table(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (a *app) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(a.out, format, args...)
	return err
}

// reportWarnings prints non-blocking rule violations.
func (a *app) reportWarnings(res core.Result) {
	for _, v := range res.Violations {
		fmt.Fprintf(a.errOut, "warning: %s\n", v.Message)
	}
}

// parseKeyValues splits name=value pairs.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// parseReadings turns name=value pairs into readings. An empty value records
// the parameter as not measured.
func parseReadings(pairs []string) (map[string]*float64, error) {
	kv, err := parseKeyValues(pairs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*float64, len(kv))
	for k, raw := range kv {
		if raw == "" {
			out[domain.ParameterName(k)] = nil
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", k, err)
		}
		out[domain.ParameterName(k)] = &f
	}
	return out, nil
}

// parseAnswers converts name=value pairs into typed answer values: numbers
// and booleans are decoded, everything else stays a string.
func parseAnswers(pairs []string) (map[string]any, error) {
	kv, err := parseKeyValues(pairs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(kv))
	for k, raw := range kv {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			out[k] = f
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			out[k] = b
			continue
		}
		out[k] = raw
	}
	return out, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
