package blob

import (
	"context"
	"fmt"

	"taskcore/internal/infra/blob/fs"
	"taskcore/internal/infra/blob/memory"
	"taskcore/internal/infra/blob/s3"
)

// S3Options locates an S3 bucket.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	HTTPClient      s3.HTTPClient
}

// Options selects and locates a blob backend.
type Options struct {
	Driver Driver
	FSRoot string
	S3     S3Options
}

// Open returns the Store named by opts.Driver; an empty driver means fs.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFilesystem, "":
		store, err := fs.New(opts.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		store, err := s3.New(ctx, s3.Config{
			Bucket:          opts.S3.Bucket,
			Region:          opts.S3.Region,
			Endpoint:        opts.S3.Endpoint,
			AccessKeyID:     opts.S3.AccessKeyID,
			SecretAccessKey: opts.S3.SecretAccessKey,
			PathStyle:       opts.S3.PathStyle,
			HTTPClient:      opts.S3.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", opts.Driver)
	}
}
