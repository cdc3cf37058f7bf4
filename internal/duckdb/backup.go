package duckdb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInMemoryStore is returned when a snapshot is requested from a
// store that has no database file to copy.
var ErrInMemoryStore = errors.New("duckdb: no database file to snapshot (in-memory store)")

// DBPath reports where the database file lives, or "" for an
// in-memory store.
func (s *Store) DBPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbPath
}

// SnapshotTo writes a consistent copy of the database file to dstPath.
// The WAL is checkpointed under the store write lock; the file copy
// itself runs outside the lock so ingestion and queries keep moving
// while a large file is written out.
func (s *Store) SnapshotTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("prepare snapshot dir: %w", err)
	}

	dbPath, err := s.checkpoint()
	if err != nil {
		return err
	}
	if err := copyFile(dbPath, dstPath); err != nil {
		return fmt.Errorf("copy database file: %w", err)
	}
	return nil
}

// checkpoint flushes the WAL into the database file and returns the
// file's path. Holding the write lock keeps inserts out, so the file
// on disk is complete when the copy starts.
func (s *Store) checkpoint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dbPath == "" {
		return "", ErrInMemoryStore
	}
	if _, err := s.db.Exec("CHECKPOINT"); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	return s.dbPath, nil
}

// copyFile copies src to dst through a .tmp sibling and renames it into
// place, fsyncing file and directory so a torn snapshot is never left
// under the final name.
func copyFile(srcPath, dstPath string) (err error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err = dst.Sync(); err != nil {
		dst.Close()
		return err
	}
	if err = dst.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, dstPath); err != nil {
		return err
	}
	return syncDir(filepath.Dir(dstPath))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
