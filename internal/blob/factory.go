package blob

import (
	"context"
	"fmt"

	fsblob "tankcore/internal/infra/blob/fs"
	memblob "tankcore/internal/infra/blob/memory"
	s3blob "tankcore/internal/infra/blob/s3"
)

// S3Config configures the s3 driver.
type S3Config = s3blob.Config

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	Root   string // fs driver only
	S3     S3Config
}

// Open returns the Store selected by cfg.Driver, defaulting to fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fsblob.New(cfg.Root)
	case DriverS3:
		return s3blob.New(ctx, cfg.S3)
	case DriverMemory:
		return memblob.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an empty in-memory Store.
func NewMemory() Store { return memblob.New() }

// NewS3Mock returns an S3 store served by an in-process fake endpoint.
func NewS3Mock() Store { return s3blob.NewMock(0) }
