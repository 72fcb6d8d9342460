package archive

import (
	"context"
	"fmt"

	"kittycore/internal/blob"
	"kittycore/internal/blob/fs"
	blobmemory "kittycore/internal/blob/memory"
	"kittycore/internal/blob/s3"
	"kittycore/internal/config"
)

// OpenStore builds the blob store named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.Blob) (blob.Store, error) {
	switch blob.Driver(cfg.Driver) {
	case "", blob.DriverFilesystem:
		return fs.New(cfg.Root)
	case blob.DriverMemory:
		return blobmemory.New(), nil
	case blob.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			PathStyle: cfg.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
