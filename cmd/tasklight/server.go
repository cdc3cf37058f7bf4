package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tasklight/tasklight/internal/backup"
	"github.com/tasklight/tasklight/internal/duckdb"
	"github.com/tasklight/tasklight/internal/hub"
	"github.com/tasklight/tasklight/internal/httpserver"
	"github.com/tasklight/tasklight/internal/ingest"
	"github.com/tasklight/tasklight/internal/journal"
	"github.com/tasklight/tasklight/internal/logsource"
	"github.com/tasklight/tasklight/internal/model"
	"github.com/tasklight/tasklight/internal/otlpserver"
)

// runServer runs headless ingestion: sources feed the processor, the
// processor feeds the insert buffer and the live hub, and the HTTP API
// serves reads. It blocks until the first SIGINT or SIGTERM.
func runServer(cfg appConfig) error {
	closeLog := openRuntimeLog()
	defer closeLog()

	stack, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Every stored entry also fans out to live stream subscribers.
	live := hub.New()
	defer live.Close()
	sink := ingest.MultiSink{
		stack.inserts,
		ingest.EntrySinkFunc(func(entry *model.LogEntry) { live.Publish(*entry) }),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignals := trapSignals(cancel)
	defer stopSignals()

	if cfg.APIEnabled {
		api := httpserver.NewServer(stack.store, live, httpserver.ServerConfig{Addr: cfg.APIAddr})
		if err := api.Start(ctx); err != nil {
			return fmt.Errorf("start api server: %w", err)
		}
		defer api.Stop()
	}

	if cfg.OTLPEnabled {
		otlp := otlpserver.NewServer(cfg.OTLPAddr, sink)
		if err := otlp.Start(); err != nil {
			return fmt.Errorf("start otlp server: %w", err)
		}
		defer otlp.Stop()
	}

	mux := newSourceMux(ctx, buildSources(ctx, cfg), cfg.MuxBufferSize)
	mux.Start()
	defer mux.Stop()

	processor, err := ingest.NewEnvelopeProcessor(cfg.Processor, sink, "")
	if err != nil {
		return err
	}

	printStartupBanner(cfg, processor.Name())

	g, gctx := errgroup.WithContext(ctx)
	if mux.HasSources() {
		// Line sources flow through the processor. OTLP entries skip
		// it and reach the sink pre-parsed.
		g.Go(func() error {
			for env := range mux.Lines() {
				processor.ProcessEnvelope(env)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: %v", err)
	}
	return nil
}

// buildSources opens every active input. A broken input is logged and
// skipped rather than failing the boot.
func buildSources(ctx context.Context, cfg appConfig) []logsource.LogSource {
	var sources []logsource.LogSource
	for _, in := range configuredInputs(inputSet{
		tcpEnabled: cfg.TCPEnabled,
		tcpAddr:    cfg.TCPAddr,
	}) {
		if !in.active() {
			continue
		}
		src, err := in.open(ctx)
		if err != nil {
			log.Printf("input %s: %v", in.name(), err)
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

// storageStack bundles the write path around the store so setup and
// teardown stay in one place.
type storageStack struct {
	store     *duckdb.Store
	journal   *journal.Journal
	inserts   *duckdb.InsertBuffer
	retention *duckdb.RetentionCleaner
	backups   *backup.Manager
}

func openStorage(cfg appConfig) (*storageStack, error) {
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	store.SetMaxConcurrentQueries(cfg.MaxConcurrentReads)

	var jrn *journal.Journal
	if cfg.JournalEnabled {
		if jrn, err = journal.Open(cfg.JournalPath); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		n, err := replayJournal(jrn, store, cfg.InsertBatchSize)
		if err != nil {
			_ = jrn.Close()
			_ = store.Close()
			return nil, fmt.Errorf("replay journal: %w", err)
		}
		if n > 0 {
			log.Printf("journal: replayed %d uncommitted entries", n)
		}
	}

	stack := &storageStack{
		store:   store,
		journal: jrn,
		inserts: duckdb.NewInsertBuffer(store, duckdb.InsertBufferConfig{
			BatchSize:      cfg.InsertBatchSize,
			FlushInterval:  cfg.InsertFlushInterval,
			FlushQueueSize: cfg.InsertFlushQueue,
			Journal:        jrn,
		}),
		retention: duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
			RetentionDays: cfg.LogRetention,
		}),
	}

	stack.backups, err = backup.NewManager(store, backup.Config{
		Enabled:  cfg.BackupEnabled,
		Interval: cfg.BackupInterval,
		LocalDir: cfg.BackupLocalDir,
		KeepLast: cfg.BackupKeepLast,
		S3: backup.S3Config{
			BucketURL:    cfg.BackupBucketURL,
			Endpoint:     cfg.BackupS3Endpoint,
			Region:       cfg.BackupS3Region,
			AccessKey:    cfg.BackupS3AccessKey,
			SecretKey:    cfg.BackupS3SecretKey,
			SessionToken: cfg.BackupS3Token,
			UseSSL:       cfg.BackupS3UseSSL,
		},
	})
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("configure backups: %w", err)
	}
	return stack, nil
}

// Close stops the write path newest-first. Stopping the insert buffer
// drains pending batches and closes the journal.
func (s *storageStack) Close() {
	if s.backups != nil {
		s.backups.Stop()
	}
	if s.retention != nil {
		s.retention.Stop()
	}
	s.inserts.Stop()
	_ = s.store.Close()
}

// replayJournal inserts entries that never reached the store, moving
// the commit watermark as each batch lands. Returns how many entries
// were replayed.
func replayJournal(j *journal.Journal, store *duckdb.Store, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}

	var (
		pending []*duckdb.LogEntry
		highSeq uint64
		total   int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := store.InsertLogBatch(pending); err != nil {
			return err
		}
		if err := j.Commit(highSeq); err != nil {
			return err
		}
		total += len(pending)
		pending = pending[:0]
		return nil
	}

	err := j.Replay(func(seq uint64, entry *model.LogEntry) error {
		pending = append(pending, entry)
		highSeq = seq
		if len(pending) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, flush()
}

// trapSignals cancels the run context on the first SIGINT or SIGTERM.
// A second signal, or a stalled shutdown, force-exits the process.
func trapSignals(cancel context.CancelFunc) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down... (Ctrl+C again to force)")
		cancel()

		grace := time.NewTimer(10 * time.Second)
		defer grace.Stop()
		select {
		case <-sigCh:
			fmt.Println("\nForced exit.")
		case <-grace.C:
			fmt.Println("Shutdown stalled, exiting.")
		}
		os.Exit(1)
	}()

	return func() { signal.Stop(sigCh) }
}

func openRuntimeLog() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	dir, err := os.UserHomeDir()
	if err == nil {
		dir = filepath.Join(dir, ".local", "state", "tasklight")
		err = os.MkdirAll(dir, 0o755)
	}
	var f *os.File
	if err == nil {
		f, err = os.OpenFile(filepath.Join(dir, "tasklight.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}
	log.SetOutput(f)
	return func() { _ = f.Close() }
}

// banner accumulates the startup summary printed to the terminal.
type banner struct {
	dim    lipgloss.Style
	cyan   lipgloss.Style
	green  lipgloss.Style
	yellow lipgloss.Style
	bold   lipgloss.Style
	lines  []string
}

func newBanner() *banner {
	return &banner{
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		green:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		bold:   lipgloss.NewStyle().Bold(true),
	}
}

func (b *banner) add(s string) { b.lines = append(b.lines, s) }

func (b *banner) rule() { b.add(b.dim.Render("    " + strings.Repeat("─", 33))) }

func (b *banner) section(title string) {
	b.add("")
	b.add(b.bold.Render("    " + title))
	b.add("")
}

func (b *banner) on(label, value string) {
	b.add(fmt.Sprintf("    %s  %-14s %s", b.green.Render("●"), label, b.cyan.Render(value)))
}

func (b *banner) off(label, note string) {
	b.add(fmt.Sprintf("    %s  %-14s %s", b.dim.Render("●"), label, b.dim.Render(note)))
}

func (b *banner) toggle(enabled bool, label, value string) {
	if enabled {
		b.on(label, value)
	} else {
		b.off(label, "disabled")
	}
}

func (b *banner) String() string { return strings.Join(b.lines, "\n") }

func printStartupBanner(cfg appConfig, processorName string) {
	b := newBanner()

	b.add("")
	b.add(b.cyan.Bold(true).Render(`
    ╔╦╗╔═╗╔═╗╦╔═╦  ╦╔═╗╦ ╦╔╦╗
     ║ ╠═╣╚═╗╠╩╗║  ║║ ╦╠═╣ ║
     ╩ ╩ ╩╚═╝╩ ╩╩═╝╩╚═╝╩ ╩ ╩`))
	b.add("    " + b.dim.Render("v"+version))
	b.add("")
	b.rule()

	b.section("Gateway")
	b.toggle(cfg.APIEnabled, "HTTP API", cfg.APIAddr)
	b.toggle(cfg.TCPEnabled, "TCP Ingest", cfg.TCPAddr)
	b.toggle(cfg.OTLPEnabled, "OTLP Ingest", cfg.OTLPAddr)

	b.section("Storage")
	b.on("Database", shortenPath(cfg.DBPath))
	b.toggle(cfg.JournalEnabled, "Journal", shortenPath(cfg.JournalPath))
	b.toggle(cfg.BackupEnabled, "Snapshots", shortenPath(cfg.BackupLocalDir))

	b.section("Runtime")
	b.on("Processor", processorName)
	b.toggle(cfg.LogRetention > 0, "Retention", fmt.Sprintf("%d days", cfg.LogRetention))

	b.section("Config")
	if cfg.ConfigPath != "" {
		b.on("Config File", shortenPath(cfg.ConfigPath))
	} else {
		b.off("Config File", "default (no file)")
	}

	b.add("")
	b.rule()
	b.add("")
	b.add("    " + b.dim.Render("Stop with ") + b.yellow.Render("Ctrl+C"))
	b.add("")

	fmt.Println(b.String())
}

func shortenPath(path string) string {
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
