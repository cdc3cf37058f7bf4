package backup

import (
	"context"
	"time"
)

// Config carries the snapshot schedule and, through S3, the optional
// upload target. Zero Interval and KeepLast fall back to package
// defaults; an empty S3.BucketURL keeps snapshots local.
type Config struct {
	Enabled  bool
	Interval time.Duration
	LocalDir string
	KeepLast int
	S3       S3Config
}

// Snapshotter is what the manager needs from the store: where the
// database lives and how to copy it consistently.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// Uploader ships one finished snapshot to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}
