// Package httpserver exposes the read API the viewer consumes: ranged
// history fetches, task and level aggregates, and a live SSE stream fed
// by the ingest hub.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tasklight/tasklight/internal/hub"
	"github.com/tasklight/tasklight/internal/logparse"
	"github.com/tasklight/tasklight/internal/model"
)

const (
	// heartbeatInterval is how often an idle SSE stream emits a comment
	// frame so proxies and clients can tell the connection is alive.
	heartbeatInterval = 15 * time.Second

	// defaultTaskStatsLimit bounds the /tasks response.
	defaultTaskStatsLimit = 100
)

// QueryStore is the read surface the HTTP API needs from storage.
type QueryStore interface {
	model.ReadAPI
	TotalLogBytes() (int64, error)
}

// Server wraps an HTTP server exposing the log read API.
type Server struct {
	addr      string
	store     QueryStore
	live      *hub.Hub
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	Addr string
}

// NewServer creates an HTTP API server. The hub may be nil, in which
// case the stream endpoint serves catch-up entries and heartbeats only.
func NewServer(store QueryStore, live *hub.Hub, conf ...ServerConfig) *Server {
	addr := model.DefaultHTTPAddr
	if len(conf) > 0 && conf[0].Addr != "" {
		addr = conf[0].Addr
	}
	return &Server{
		addr:  addr,
		store: store,
		live:  live,
	}
}

// Start begins listening and serving requests in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.startTime = time.Now()

	gin.SetMode(gin.ReleaseMode)
	router := s.router()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler: router,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: the stream endpoint holds its response open
		// for the life of the subscription.
	}

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the bound listen address, which differs from the
// configured one when the port was chosen by the OS.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// router builds the gin engine with all API routes registered.
func (s *Server) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/logs", s.handleQueryLogs)
	api.GET("/logs/stream", s.handleStream)
	api.GET("/tasks", s.handleTasks)
	api.GET("/levels", s.handleLevels)

	return router
}

// handleHealth reports liveness plus coarse store and stream stats.
func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.store.TotalLogCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "health check failed"})
		return
	}
	bytes, err := s.store.TotalLogBytes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "health check failed"})
		return
	}

	resp := gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
		"log_count": count,
		"log_bytes": bytes,
	}
	if s.live != nil {
		resp["stream_clients"] = s.live.Subscribers()
		resp["stream_dropped"] = s.live.Dropped()
	}
	c.JSON(http.StatusOK, resp)
}

// handleQueryLogs serves one historical batch for a time range.
func (s *Server) handleQueryLogs(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.store.QueryRange(q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleTasks serves per-task aggregates, busiest tasks first.
func (s *Server) handleTasks(c *gin.Context) {
	stats, err := s.store.TaskStats(defaultTaskStatsLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if stats == nil {
		stats = []model.TaskStat{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": stats})
}

// handleLevels serves per-level counts, optionally scoped to one task.
func (s *Server) handleLevels(c *gin.Context) {
	counts, err := s.store.CountsByLevel(model.Query{Task: c.Query("task")})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if counts == nil {
		counts = []model.LevelCount{}
	}
	c.JSON(http.StatusOK, gin.H{"levels": counts})
}

// handleStream serves a server-sent event stream of entries. A "since"
// parameter replays stored entries strictly after that instant before
// live delivery begins, so a reconnecting viewer misses nothing. The
// replay and the live feed can overlap; receivers dedupe by entry ID.
func (s *Server) handleStream(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid since: %v", err)})
			return
		}
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	if !since.IsZero() {
		s.replaySince(c, since, q)
		flusher.Flush()
	}

	var sub <-chan model.LogEntry
	if s.live != nil {
		ch, cancel := s.live.Subscribe()
		defer cancel()
		sub = ch
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	serverDone := s.done()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-serverDone:
			return
		case entry, ok := <-sub:
			if !ok {
				return
			}
			if !matchesStream(entry, q) {
				continue
			}
			if err := writeEvent(c.Writer, entry); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// replaySince writes stored entries newer than since onto the stream.
func (s *Server) replaySince(c *gin.Context, since time.Time, q model.Query) {
	catchup := model.Query{
		Start:  since,
		Task:   q.Task,
		Levels: q.Levels,
	}
	entries, err := s.store.QueryRange(catchup)
	if err != nil {
		return
	}
	for _, entry := range entries {
		// QueryRange's start bound is inclusive; the cursor entry
		// itself was already delivered.
		if !entry.Timestamp.After(since) {
			continue
		}
		if writeEvent(c.Writer, entry) != nil {
			return
		}
	}
}

// done returns the server's shutdown channel, or a never-closed one
// when the handler runs outside Start (as in tests).
func (s *Server) done() <-chan struct{} {
	if s.ctx != nil {
		return s.ctx.Done()
	}
	return make(chan struct{})
}

// writeEvent writes one entry as an SSE data frame.
func writeEvent(w io.Writer, entry model.LogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// matchesStream reports whether a live entry passes the subscription's
// task and level filters.
func matchesStream(entry model.LogEntry, q model.Query) bool {
	if q.Task != "" && entry.Task != q.Task {
		return false
	}
	if len(q.Levels) > 0 {
		found := false
		for _, lvl := range q.Levels {
			if entry.Level == lvl {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// parseQuery reads the shared filter parameters. Timestamps are
// RFC3339Nano; levels is a comma-separated list normalized to the
// canonical severity names.
func parseQuery(c *gin.Context) (model.Query, error) {
	var q model.Query

	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return q, fmt.Errorf("invalid start: %v", err)
		}
		q.Start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return q, fmt.Errorf("invalid end: %v", err)
		}
		q.End = t
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("end %s is before start %s", q.End.Format(time.RFC3339), q.Start.Format(time.RFC3339))
	}

	q.Task = c.Query("task")

	if raw := c.Query("levels"); raw != "" {
		for _, lvl := range strings.Split(raw, ",") {
			lvl = strings.TrimSpace(lvl)
			if lvl == "" {
				continue
			}
			q.Levels = append(q.Levels, logparse.NormalizeSeverity(lvl))
		}
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
		q.Limit = n
	}

	return q, nil
}
