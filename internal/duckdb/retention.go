package duckdb

import (
	"log"
	"sync"
	"time"
)

// RetentionConfig tunes how long rows are kept and how often the
// sweep runs.
type RetentionConfig struct {
	RetentionDays int
	SweepInterval time.Duration // defaults to 1h
}

// RetentionCleaner deletes logs older than the retention window, once
// at construction and then on every sweep interval.
type RetentionCleaner struct {
	store         *Store
	retentionDays int
	sweepInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// NewRetentionCleaner starts a cleaner for the store. The construction
// sweep catches up on anything that expired while the process was down.
// A zero or negative RetentionDays disables cleanup and yields nil.
func NewRetentionCleaner(store *Store, conf ...RetentionConfig) *RetentionCleaner {
	days := 30
	interval := 1 * time.Hour
	if len(conf) > 0 {
		days = conf[0].RetentionDays
		if conf[0].SweepInterval > 0 {
			interval = conf[0].SweepInterval
		}
	}
	if days <= 0 {
		return nil
	}

	rc := &RetentionCleaner{
		store:         store,
		retentionDays: days,
		sweepInterval: interval,
		done:          make(chan struct{}),
	}
	rc.sweep()

	rc.wg.Add(1)
	go rc.run()
	return rc
}

func (rc *RetentionCleaner) run() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.sweep()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) sweep() {
	window := time.Duration(rc.retentionDays) * 24 * time.Hour

	rows, err := rc.store.DeleteBefore(time.Now().Add(-window))
	if err != nil {
		log.Printf("duckdb: retention sweep: %v", err)
		return
	}
	if rows > 0 {
		log.Printf("duckdb: retention sweep deleted %d logs older than %d days", rows, rc.retentionDays)
	}
}

// Stop ends the sweep loop and waits for it. Safe to call twice.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
