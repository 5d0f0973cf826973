package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"tankcore/pkg/domain"
	"tankcore/pkg/health"
	"tankcore/pkg/ranges"
)

// EnvPrefix prefixes every environment override, e.g. TANKCORE_STORAGE_DRIVER.
const EnvPrefix = "TANKCORE"

const day = 24 * time.Hour

// SetDefaults registers every key with its default so environment
// overrides apply even when no file sets them.
func SetDefaults(v *viper.Viper) {
	policy := health.DefaultPolicy()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "tankcore.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fs_root", "./blobdata")
	v.SetDefault("blob.s3_bucket", "")
	v.SetDefault("blob.s3_region", "us-east-1")
	v.SetDefault("blob.s3_endpoint", "")
	v.SetDefault("blob.s3_path_style", false)
	v.SetDefault("blob.url_expiry", 15*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("units", string(ranges.Imperial))
	v.SetDefault("health.warning_penalty", policy.WarningPenalty)
	v.SetDefault("health.critical_penalty", policy.CriticalPenalty)
	v.SetDefault("health.no_history_penalty", policy.NoHistoryPenalty)
	v.SetDefault("health.tolerance_fraction", policy.ToleranceFraction)
	v.SetDefault("health.stale_after", policy.StaleAfter)
	v.SetDefault("health.water_change_interval", 14*day)
	v.SetDefault("health.filter_interval", 30*day)
	v.SetDefault("health.dosing_interval", 7*day)
}

// New returns a viper instance with defaults and environment binding. When
// file is non-empty it is read as the config file.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

// Load reads file (optional) plus the environment and validates the result.
func Load(file string) (*Config, error) {
	v, err := New(file)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Units = strings.ToLower(strings.TrimSpace(cfg.Units))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports each failure.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// UnitSystem returns the configured display units.
func (c *Config) UnitSystem() ranges.UnitSystem {
	return ranges.ParseUnitSystem(c.Units)
}

// HealthPolicy applies the overrides to the default policy.
func (c *Config) HealthPolicy() (health.Policy, error) {
	p := health.DefaultPolicy()
	h := c.Health
	p.WarningPenalty = h.WarningPenalty
	p.CriticalPenalty = h.CriticalPenalty
	p.NoHistoryPenalty = h.NoHistoryPenalty
	p.ToleranceFraction = h.ToleranceFraction
	p.StaleAfter = h.StaleAfter
	for i, exp := range p.Maintenance {
		switch exp.Type {
		case domain.MaintenanceWaterChange:
			p.Maintenance[i].Interval = h.WaterChangeInterval
		case domain.MaintenanceFilter:
			p.Maintenance[i].Interval = h.FilterInterval
		case domain.MaintenanceDosing:
			p.Maintenance[i].Interval = h.DosingInterval
		}
	}
	if err := p.Validate(); err != nil {
		return health.Policy{}, fmt.Errorf("health policy: %w", err)
	}
	return p, nil
}
