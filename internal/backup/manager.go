package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	snapshotPrefix = "tasklight-"
	snapshotExt    = ".duckdb"
)

// Manager snapshots the database on a timer, uploads each snapshot
// when an S3 target is configured, and keeps only the newest local
// copies. Stop cancels an in-flight upload.
type Manager struct {
	db       Snapshotter
	conf     Config
	uploader Uploader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager validates the config and starts the snapshot loop. A
// disabled config yields a nil manager and no error so callers can
// guard with one nil check.
func NewManager(db Snapshotter, conf Config) (*Manager, error) {
	if !conf.Enabled {
		return nil, nil
	}
	if db == nil {
		return nil, fmt.Errorf("backup: snapshotter is nil")
	}
	if strings.TrimSpace(db.DBPath()) == "" {
		return nil, fmt.Errorf("backup: store has no file path (in-memory database)")
	}
	if strings.TrimSpace(conf.LocalDir) == "" {
		return nil, fmt.Errorf("backup: local-dir must be set when backups are enabled")
	}
	if conf.Interval <= 0 {
		conf.Interval = defaultInterval
	}
	if conf.KeepLast <= 0 {
		conf.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(conf.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot dir: %w", err)
	}

	uploader, err := uploaderFor(conf)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:       db,
		conf:     conf,
		uploader: uploader,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	// One snapshot at boot shortens the recovery point after a restart.
	if err := m.SnapshotNow(m.ctx); err != nil {
		log.Printf("backup: boot snapshot: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func uploaderFor(conf Config) (Uploader, error) {
	if strings.TrimSpace(conf.S3.BucketURL) == "" {
		return nil, nil
	}
	u, err := NewS3Uploader(conf.S3)
	if err != nil {
		return nil, fmt.Errorf("backup: configure s3 uploader: %w", err)
	}
	return u, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.conf.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.SnapshotNow(m.ctx); err != nil {
				log.Printf("backup: scheduled snapshot: %v", err)
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// SnapshotNow writes one timestamped snapshot, uploads it when a
// target is configured, then prunes local copies down to KeepLast.
func (m *Manager) SnapshotNow(ctx context.Context) error {
	name := snapshotPrefix + time.Now().UTC().Format("20060102-150405") + snapshotExt
	localPath := filepath.Join(m.conf.LocalDir, name)

	if err := m.db.SnapshotTo(localPath); err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	log.Printf("backup: wrote %s", localPath)

	if m.uploader != nil {
		if err := m.uploader.Upload(ctx, localPath); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		log.Printf("backup: uploaded %s", name)
	}

	if err := pruneSnapshots(m.conf.LocalDir, m.conf.KeepLast); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Stop cancels any in-flight snapshot or upload and waits for the
// loop to exit.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func pruneSnapshots(dir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if strings.HasPrefix(name, snapshotPrefix) && strings.HasSuffix(name, snapshotExt) {
			names = append(names, name)
		}
	}
	if len(names) <= keepLast {
		return nil
	}

	// The UTC timestamp in the name makes lexical order chronological.
	sort.Strings(names)
	for _, name := range names[:len(names)-keepLast] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
