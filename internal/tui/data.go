package tui

import (
	"context"
	"time"

	"github.com/tasklight/tasklight/internal/flatten"
	"github.com/tasklight/tasklight/internal/model"
	"github.com/tasklight/tasklight/internal/stream"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	fetchTimeout = 30 * time.Second
	tasksTimeout = 10 * time.Second

	// liveDrainLimit bounds how many queued live entries one Update
	// cycle absorbs before re-rendering.
	liveDrainLimit = 256
)

type tickMsg time.Time

type batchLoadedMsg struct {
	seq     int
	entries []model.LogEntry
	err     error
}

type sessionEntry struct {
	session int
	entry   model.LogEntry
}

type sessionState struct {
	session int
	state   stream.State
}

type liveEntryMsg struct {
	session int
	entry   model.LogEntry
}

type streamStateMsg struct {
	session int
	state   stream.State
}

type tasksLoadedMsg struct {
	stats []model.TaskStat
	err   error
}

type copyResultMsg struct {
	lines int
	err   error
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	if m.tickInFlight {
		return nil
	}
	m.tickInFlight = true
	return tea.Tick(m.updateInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchBatchCmd issues the one-shot range query for the committed
// range and filters. Responses are sequence-stamped so a stale fetch
// racing a newer one cannot clobber it.
func (m *DashboardModel) fetchBatchCmd() tea.Cmd {
	m.fetchSeq++
	seq := m.fetchSeq
	m.fetchInFlight = true
	q := m.currentQuery()
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		entries, err := source.FetchRange(ctx, q)
		return batchLoadedMsg{seq: seq, entries: entries, err: err}
	}
}

func (m *DashboardModel) fetchTasksCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), tasksTimeout)
		defer cancel()
		stats, err := source.Tasks(ctx)
		return tasksLoadedMsg{stats: stats, err: err}
	}
}

// waitForLive pumps one live entry off the shared channel. The handler
// re-arms it after every delivery.
func (m *DashboardModel) waitForLive() tea.Cmd {
	ch := m.liveCh
	return func() tea.Msg {
		se := <-ch
		return liveEntryMsg{session: se.session, entry: se.entry}
	}
}

func (m *DashboardModel) waitForStreamState() tea.Cmd {
	ch := m.stateCh
	return func() tea.Msg {
		ss := <-ch
		return streamStateMsg{session: ss.session, state: ss.state}
	}
}

// startStream opens a fresh live session resuming after since. Closed
// effective ranges have nothing live to show, so the stream stays down
// until the view returns to the live edge.
func (m *DashboardModel) startStream(since time.Time) {
	m.stopStream()
	if !m.ranges.Live() {
		m.recon = nil
		m.streamState = stream.State{}
		return
	}

	m.session++
	session := m.session
	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel

	q := m.currentQuery()
	q.Start = since
	q.End = time.Time{}

	push := func(e model.LogEntry) {
		select {
		case m.liveCh <- sessionEntry{session: session, entry: e}:
		case <-ctx.Done():
		}
	}
	notify := func(s stream.State) {
		select {
		case m.stateCh <- sessionState{session: session, state: s}:
		default:
		}
	}

	rec := stream.NewReconnector(m.source, push, notify)
	m.recon = rec
	go rec.Run(ctx, q)
}

func (m *DashboardModel) stopStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

// refetchCmd reloads the batch; the stream restarts once the new batch
// lands so its resume cursor lines up with the batch tail.
func (m *DashboardModel) refetchCmd() tea.Cmd {
	return m.fetchBatchCmd()
}

func (m *DashboardModel) applyBatch(msg batchLoadedMsg) {
	if msg.seq != m.fetchSeq {
		return
	}
	m.fetchInFlight = false
	if msg.err != nil {
		m.reportError(msg.err)
		return
	}
	m.lastError = ""
	m.batch = msg.entries
	m.liveBuf = nil
	m.rebuild()
	m.startStream(lastTimestamp(m.batch))
}

// applyLive appends one live entry plus whatever else is already
// queued, then rebuilds once.
func (m *DashboardModel) applyLive(msg liveEntryMsg) {
	if msg.session != m.session {
		return
	}
	m.liveBuf = append(m.liveBuf, msg.entry)
drain:
	for i := 0; i < liveDrainLimit; i++ {
		select {
		case se := <-m.liveCh:
			if se.session == m.session {
				m.liveBuf = append(m.liveBuf, se.entry)
			}
		default:
			break drain
		}
	}
	m.rebuild()
}

// rebuild runs the merge, filter, flatten pipeline and refreshes
// everything derived from it.
func (m *DashboardModel) rebuild() {
	m.entries = m.feed.Merge(m.batch, m.liveBuf)
	m.applyFilter()
	m.items = m.flattener.Flatten(m.visible, m.viewGen)
	m.indexEntryItems()
	m.feedPatterns()
	m.clampScroll()
	if m.followTail {
		m.scrollToBottom()
	}
	m.clampCursor()
	m.refreshModals()
}

// applyFilter projects the merged entries through the text filter. The
// view generation bumps whenever the underlying feed resets or the
// filter changes, which retires selections and cached measurements
// built against the old indices. Appends under an unchanged generation
// extend the projection in place.
func (m *DashboardModel) applyFilter() {
	gen := m.feed.Generation()
	if gen != m.lastFeedGen || m.filterDirty {
		m.viewGen++
		m.lastFeedGen = gen
		m.filterDirty = false
		m.filtered = nil
		m.filteredUpto = 0
	}

	if m.filterRegex == nil {
		m.visible = m.entries
		m.filteredUpto = len(m.entries)
		return
	}

	for _, entry := range m.entries[m.filteredUpto:] {
		if m.matchesFilter(entry) {
			m.filtered = append(m.filtered, entry)
		}
	}
	m.filteredUpto = len(m.entries)
	m.visible = m.filtered
}

func (m *DashboardModel) matchesFilter(entry model.LogEntry) bool {
	re := m.filterRegex
	if re == nil {
		return true
	}
	if re.MatchString(entry.Message) || re.MatchString(entry.Task) || re.MatchString(entry.Origin) {
		return true
	}
	for k, v := range entry.Attributes {
		if re.MatchString(k) || re.MatchString(v) {
			return true
		}
	}
	return false
}

func (m *DashboardModel) indexEntryItems() {
	m.entryItems = m.entryItems[:0]
	for i, item := range m.items {
		if item.Kind == flatten.KindEntry {
			m.entryItems = append(m.entryItems, i)
		}
	}
}

// feedPatterns streams newly merged entries into the template miner.
// A feed reset restarts mining so the patterns always describe the
// entries currently on screen, never a previous range.
func (m *DashboardModel) feedPatterns() {
	if gen := m.feed.Generation(); gen != m.patternsGen {
		m.drain3Manager.Reset()
		m.patternsSeen = 0
		m.patternsGen = gen
	}
	for _, entry := range m.entries[m.patternsSeen:] {
		m.drain3Manager.AddLogMessage(entry.Message)
	}
	m.patternsSeen = len(m.entries)
}

func (m *DashboardModel) reportError(err error) {
	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
}

func lastTimestamp(entries []model.LogEntry) time.Time {
	var last time.Time
	for _, e := range entries {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	return last
}
