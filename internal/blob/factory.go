package blob

import (
	"context"
	"fmt"
)

// Config selects and parameterizes a driver. Root is a directory for the fs
// driver and a key prefix for s3; the memory driver ignores it.
type Config struct {
	Driver Driver
	Root   string
	S3     S3Config
}

// Open constructs the Store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		s3cfg := cfg.S3
		if s3cfg.Root == "" {
			s3cfg.Root = cfg.Root
		}
		return NewS3(ctx, s3cfg)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
