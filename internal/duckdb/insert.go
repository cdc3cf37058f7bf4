package duckdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tasklight/tasklight/internal/journal"
	"github.com/tasklight/tasklight/internal/model"
)

const (
	// DefaultFlushQueueSize is the number of batches that can wait for
	// the flush worker before Add starts writing inline.
	DefaultFlushQueueSize = 64

	defaultBatchSize     = 2000
	defaultFlushInterval = 100 * time.Millisecond

	journalRetryDelay = 200 * time.Millisecond
)

type journaledEntry struct {
	seq   uint64
	entry *LogEntry
}

type durableJournal interface {
	Append(entry *model.LogEntry) (uint64, error)
	Commit(seq uint64) error
	Close() error
}

// InsertBuffer batches log entries and flushes them to DuckDB off the
// caller's goroutine. Add never blocks on database IO unless the flush
// queue is already full.
type InsertBuffer struct {
	writer        model.LogWriter
	mu            sync.Mutex
	pending       []journaledEntry
	flushChan     chan []journaledEntry
	maxBatch      int
	flushInterval time.Duration
	journal       durableJournal

	done       chan struct{} // closed by Stop
	tickerDone chan struct{} // closed when the ticker goroutine exits
	workerDone chan struct{} // closed when the flush worker exits
	stopOnce   sync.Once

	// inlineFlushes counts backpressure events for throttled logging.
	inlineFlushes   atomic.Int64
	lastInlineLogAt atomic.Int64
}

// InsertBufferConfig tunes batching. Zero fields keep the defaults;
// a nil Journal disables write-ahead durability.
type InsertBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
	Journal        *journal.Journal
}

// NewInsertBuffer starts a buffer that flushes to writer. Entries reach
// the database either when a batch fills or on the flush interval.
func NewInsertBuffer(writer model.LogWriter, conf ...InsertBufferConfig) *InsertBuffer {
	var cfg InsertBufferConfig
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.FlushQueueSize <= 0 {
		cfg.FlushQueueSize = DefaultFlushQueueSize
	}

	b := &InsertBuffer{
		writer:        writer,
		pending:       make([]journaledEntry, 0, cfg.BatchSize),
		flushChan:     make(chan []journaledEntry, cfg.FlushQueueSize),
		maxBatch:      cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		done:          make(chan struct{}),
		tickerDone:    make(chan struct{}),
		workerDone:    make(chan struct{}),
	}
	if cfg.Journal != nil {
		b.journal = cfg.Journal
	}

	go b.flushLoop()
	go b.tickLoop()
	return b
}

func (b *InsertBuffer) tickLoop() {
	defer close(b.tickerDone)
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if batch := b.takePending(); batch != nil {
				b.enqueue(batch)
			}
		case <-b.done:
			// Final drain so Stop loses nothing that was buffered.
			if batch := b.takePending(); batch != nil {
				b.enqueue(batch)
			}
			return
		}
	}
}

func (b *InsertBuffer) flushLoop() {
	defer close(b.workerDone)
	for batch := range b.flushChan {
		if err := b.writeBatch(batch); err != nil {
			log.Printf("duckdb: flush: %v", err)
		}
	}
}

// takePending swaps out the buffered entries under the lock. Returns
// nil when nothing is buffered.
func (b *InsertBuffer) takePending() []journaledEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = make([]journaledEntry, 0, b.maxBatch)
	return batch
}

// enqueue hands a batch to the flush worker. When the queue is full the
// batch is written inline, which slows the producer to database speed
// instead of growing memory without bound.
func (b *InsertBuffer) enqueue(batch []journaledEntry) {
	select {
	case b.flushChan <- batch:
	default:
		b.noteBackpressure()
		if err := b.writeBatch(batch); err != nil {
			log.Printf("duckdb: inline flush: %v", err)
		}
	}
}

// noteBackpressure logs at most once per 10 seconds no matter how many
// inline flushes happen.
func (b *InsertBuffer) noteBackpressure() {
	count := b.inlineFlushes.Add(1)
	now := time.Now().Unix()
	last := b.lastInlineLogAt.Load()
	if now-last >= 10 && b.lastInlineLogAt.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure, %d inline flushes so far (flush queue full)", count)
	}
}

// Add queues an entry for insertion, assigning an ID if it has none.
// With a journal configured the entry is durable before Add returns.
func (b *InsertBuffer) Add(entry *LogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	seq, ok := b.appendToJournal(entry)
	if !ok {
		return
	}

	b.mu.Lock()
	b.pending = append(b.pending, journaledEntry{seq: seq, entry: entry})
	var batch []journaledEntry
	if len(b.pending) >= b.maxBatch {
		batch = b.pending
		b.pending = make([]journaledEntry, 0, b.maxBatch)
	}
	b.mu.Unlock()

	if batch != nil {
		b.enqueue(batch)
	}
}

// appendToJournal records the entry before it is buffered, retrying
// until the write lands or the buffer shuts down. An entry that never
// made it into the journal must not reach the database either, or a
// replay after crash would see different data than this run did.
func (b *InsertBuffer) appendToJournal(entry *LogEntry) (uint64, bool) {
	if b.journal == nil {
		return 0, true
	}
	for {
		seq, err := b.journal.Append(entry)
		if err == nil {
			return seq, true
		}
		log.Printf("duckdb: journal append, will retry: %v", err)
		select {
		case <-b.done:
			return 0, false
		case <-time.After(journalRetryDelay):
		}
	}
}

// Stop drains the buffer, waits for every queued batch to reach the
// database, then closes the journal. Safe to call more than once.
func (b *InsertBuffer) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		// The ticker goroutine performs the final drain; only after it
		// exits is it safe to close the flush channel.
		<-b.tickerDone
		close(b.flushChan)
		<-b.workerDone
		if b.journal != nil {
			if err := b.journal.Close(); err != nil {
				log.Printf("duckdb: journal close: %v", err)
			}
		}
	})
}

func (b *InsertBuffer) writeBatch(batch []journaledEntry) error {
	if len(batch) == 0 {
		return nil
	}

	entries := make([]*LogEntry, 0, len(batch))
	lastSeq := uint64(0)
	for _, item := range batch {
		entries = append(entries, item.entry)
		if item.seq > lastSeq {
			lastSeq = item.seq
		}
	}

	if err := b.writer.InsertLogBatch(entries); err != nil {
		return err
	}

	// Sequences are assigned in Add order, so the batch maximum marks
	// everything in it as applied.
	if b.journal != nil && lastSeq > 0 {
		if err := b.journal.Commit(lastSeq); err != nil {
			return fmt.Errorf("commit journal through seq %d: %w", lastSeq, err)
		}
	}
	return nil
}

// InsertLogBatch writes a batch of entries in one transaction. When the
// batch fails as a whole it is retried entry by entry so one poisoned
// row does not take the rest down with it.
func (s *Store) InsertLogBatch(entries []*LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertBatchTx(ctx, entries); err == nil {
		return nil
	}

	var dropped int
	for _, e := range entries {
		if rerr := s.insertBatchTx(ctx, []*LogEntry{e}); rerr != nil {
			dropped++
			log.Printf("duckdb: dropping entry (task=%s msg=%.80s): %v", e.Task, e.Message, rerr)
		}
	}
	if dropped > 0 {
		log.Printf("duckdb: batch partially failed, %d/%d entries dropped", dropped, len(entries))
	}
	return nil
}

func (s *Store) insertBatchTx(ctx context.Context, entries []*LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO logs (id, timestamp, level, message, task, attempt, origin, attributes, raw_line, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		attrsJSON := []byte("{}")
		if len(e.Attributes) > 0 {
			if data, merr := json.Marshal(e.Attributes); merr != nil {
				log.Printf("duckdb: marshal attributes, storing empty: %v", merr)
			} else {
				attrsJSON = data
			}
		}

		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		task := e.Task
		if task == "" {
			task = model.DefaultTask
		}

		if _, err := stmt.ExecContext(
			ctx,
			id, e.Timestamp, e.Level, e.Message,
			task, e.Attempt, e.Origin,
			string(attrsJSON), e.RawLine, e.Source,
		); err != nil {
			return fmt.Errorf("entry insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
