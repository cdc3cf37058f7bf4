// Package journal gives ingestion a durable write-ahead log. Every
// entry is appended and fsynced before it is buffered for DuckDB, and a
// sidecar file records how far the database has caught up. After a
// crash, replaying the uncommitted suffix restores exactly the entries
// the database never saw.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tasklight/tasklight/internal/model"
)

const (
	logFileMode = 0o644
	logDirMode  = 0o755
)

// record is the on-disk line format: one JSON object per line.
type record struct {
	Seq   uint64         `json:"seq"`
	Entry model.LogEntry `json:"entry"`
}

// Journal is an append-only entry log plus a commit watermark.
type Journal struct {
	path     string
	markPath string

	mu      sync.Mutex
	file    *os.File
	nextSeq uint64
	mark    uint64
}

// Open creates or reopens the journal at path. Records at or below the
// commit watermark are compacted away, and a torn trailing line from an
// interrupted append is dropped.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), logDirMode); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}

	markPath := path + ".commit"
	mark, err := loadMark(markPath)
	if err != nil {
		return nil, err
	}

	lastSeq, err := compactLog(path, mark)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("journal: open log: %w", err)
	}

	return &Journal{
		path:     path,
		markPath: markPath,
		file:     f,
		nextSeq:  max(lastSeq, mark) + 1,
		mark:     mark,
	}, nil
}

// Append writes one entry and fsyncs it. The returned sequence number
// is what Commit later acknowledges.
func (j *Journal) Append(entry *model.LogEntry) (uint64, error) {
	if entry == nil {
		return 0, errors.New("journal: append nil entry")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	seq := j.nextSeq
	j.nextSeq++

	buf, err := json.Marshal(record{Seq: seq, Entry: cloneEntry(entry)})
	if err != nil {
		return 0, fmt.Errorf("journal: encode record: %w", err)
	}
	buf = append(buf, '\n')

	if _, err := j.file.Write(buf); err != nil {
		return 0, fmt.Errorf("journal: append record: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return 0, fmt.Errorf("journal: fsync record: %w", err)
	}
	return seq, nil
}

// Commit advances the watermark: every record up to and including seq
// has reached the database. Lower or repeated values are no-ops.
func (j *Journal) Commit(seq uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if seq <= j.mark {
		return nil
	}
	if err := storeMark(j.markPath, seq); err != nil {
		return err
	}
	j.mark = seq
	return nil
}

// Committed returns the current watermark.
func (j *Journal) Committed() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.mark
}

// Replay calls fn for each record above the watermark, in sequence
// order. An error from fn aborts the replay.
func (j *Journal) Replay(fn func(seq uint64, entry *model.LogEntry) error) error {
	if fn == nil {
		return errors.New("journal: replay requires a callback")
	}

	j.mu.Lock()
	path := j.path
	mark := j.mark
	j.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("journal: reopen for replay: %w", err)
	}
	defer f.Close()

	return forEachRecord(f, func(rec record, _ []byte) error {
		if rec.Seq <= mark {
			return nil
		}
		entry := rec.Entry
		return fn(rec.Seq, &entry)
	})
}

// Close releases the file handle. A closed journal rejects appends.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// forEachRecord streams complete records from r in file order. The scan
// ends cleanly at a line with no trailing newline or one that fails to
// parse; a crash mid-append leaves exactly such a tail behind.
func forEachRecord(r io.Reader, fn func(rec record, raw []byte) error) error {
	reader := bufio.NewReader(r)
	for {
		raw, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal: read line: %w", err)
		}
		var rec record
		if json.Unmarshal(raw, &rec) != nil {
			return nil
		}
		if err := fn(rec, raw); err != nil {
			return err
		}
	}
}

func cloneEntry(e *model.LogEntry) model.LogEntry {
	out := *e
	out.Attributes = maps.Clone(e.Attributes)
	return out
}

func loadMark(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("journal: read watermark: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("journal: parse watermark: %w", err)
	}
	return seq, nil
}

// storeMark replaces the sidecar through a synced temp file so the
// watermark is either the old value or the new one, never garbage.
func storeMark(path string, seq uint64) (err error) {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, logFileMode)
	if err != nil {
		return fmt.Errorf("journal: stage watermark: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.WriteString(strconv.FormatUint(seq, 10) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("journal: write watermark: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("journal: fsync watermark: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("journal: close watermark temp: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("journal: swap watermark: %w", err)
	}
	return nil
}

// compactLog rewrites the journal keeping only records above the
// watermark and reports the highest sequence seen, so numbering resumes
// where the previous run stopped.
func compactLog(path string, mark uint64) (uint64, error) {
	src, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, logFileMode)
	if err != nil {
		return 0, fmt.Errorf("journal: open log for compaction: %w", err)
	}
	defer src.Close()

	stagePath := path + ".compact"
	dst, err := os.OpenFile(stagePath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, logFileMode)
	if err != nil {
		return 0, fmt.Errorf("journal: stage compacted log: %w", err)
	}
	discard := func() {
		_ = dst.Close()
		_ = os.Remove(stagePath)
	}

	var lastSeq uint64
	err = forEachRecord(src, func(rec record, raw []byte) error {
		if rec.Seq > lastSeq {
			lastSeq = rec.Seq
		}
		if rec.Seq <= mark {
			return nil
		}
		if _, werr := dst.Write(raw); werr != nil {
			return fmt.Errorf("journal: write compacted record: %w", werr)
		}
		return nil
	})
	if err != nil {
		discard()
		return 0, err
	}

	if err := dst.Sync(); err != nil {
		discard()
		return 0, fmt.Errorf("journal: fsync compacted log: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(stagePath)
		return 0, fmt.Errorf("journal: close compacted log: %w", err)
	}
	if err := os.Rename(stagePath, path); err != nil {
		_ = os.Remove(stagePath)
		return 0, fmt.Errorf("journal: swap compacted log: %w", err)
	}
	return lastSeq, nil
}
