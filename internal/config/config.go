// Package config loads tankcore settings from defaults, an optional YAML
// file and TANKCORE_-prefixed environment variables.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Log     LogConfig     `mapstructure:"log"`
	Units   string        `mapstructure:"units" validate:"oneof=imperial metric"`
	Health  HealthConfig  `mapstructure:"health"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=memory sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `mapstructure:"postgres_dsn" validate:"omitempty,url"`
}

// BlobConfig selects the photo storage backend.
type BlobConfig struct {
	Driver      string        `mapstructure:"driver" validate:"required,oneof=memory fs s3"`
	FSRoot      string        `mapstructure:"fs_root" validate:"required_if=Driver fs"`
	S3Bucket    string        `mapstructure:"s3_bucket" validate:"required_if=Driver s3"`
	S3Region    string        `mapstructure:"s3_region"`
	S3Endpoint  string        `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3PathStyle bool          `mapstructure:"s3_path_style"`
	URLExpiry   time.Duration `mapstructure:"url_expiry" validate:"gte=0"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text console json"`
}

// HealthConfig overrides the scoring policy.
type HealthConfig struct {
	WarningPenalty      int           `mapstructure:"warning_penalty" validate:"gte=0"`
	CriticalPenalty     int           `mapstructure:"critical_penalty" validate:"gtfield=WarningPenalty"`
	NoHistoryPenalty    int           `mapstructure:"no_history_penalty" validate:"gtfield=WarningPenalty,ltfield=CriticalPenalty"`
	ToleranceFraction   float64       `mapstructure:"tolerance_fraction" validate:"gte=0"`
	StaleAfter          time.Duration `mapstructure:"stale_after" validate:"gte=0"`
	WaterChangeInterval time.Duration `mapstructure:"water_change_interval" validate:"gt=0"`
	FilterInterval      time.Duration `mapstructure:"filter_interval" validate:"gt=0"`
	DosingInterval      time.Duration `mapstructure:"dosing_interval" validate:"gt=0"`
}
