// Package blob archives finished inference reports in object storage.
//
// Drivers:
//   - fs: a directory on the local filesystem
//   - s3: an S3 bucket or S3-compatible service such as MinIO
//   - memory: process memory, for tests
//
// The "none" driver disables archiving; Open returns a nil Store for it.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"heredity/internal/config"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = errors.New("blob: not found")

// Info describes a stored object
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a flat key/value object store. Keys use forward slashes.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() string
}

// Open creates the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.ReportsConfig) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "fs":
		return NewFS(cfg.Dir)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.UsePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown reports driver %q", cfg.Driver)
	}
}

// ReportPrefix is the key prefix under which a pedigree's reports are stored
func ReportPrefix(pedigreeID string) string {
	return path.Join("reports", pedigreeID) + "/"
}

// ReportKey names the report of a run completed at the given time
func ReportKey(pedigreeID string, completedAt time.Time) string {
	return ReportPrefix(pedigreeID) + completedAt.UTC().Format("20060102T150405.000000000Z") + ".json"
}
