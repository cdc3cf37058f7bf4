package tui

import (
	"context"
	"regexp"
	"time"

	"github.com/tasklight/tasklight/internal/flatten"
	"github.com/tasklight/tasklight/internal/logfeed"
	"github.com/tasklight/tasklight/internal/model"
	"github.com/tasklight/tasklight/internal/selection"
	"github.com/tasklight/tasklight/internal/stream"
	"github.com/tasklight/tasklight/internal/timerange"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	DefaultUpdateInterval = 2 * time.Second
	DefaultLogBuffer      = 1000
	DefaultSkin           = "default"

	sidebarWidth = 22

	// Task stats refresh every tasksRefreshTicks status ticks.
	tasksRefreshTicks = 5
)

// Section identifies the panel that owns keyboard navigation.
type Section int

const (
	SectionTimeline Section = iota
	SectionChart
	SectionSidebar
)

// DataSource is the server surface the dashboard consumes: one-shot
// range fetches, the live subscription, and task aggregates.
type DataSource interface {
	model.HistoryFetcher
	model.LiveSource
	Tasks(ctx context.Context) ([]model.TaskStat, error)
}

// DashboardConfig carries the optional knobs the CLI exposes.
type DashboardConfig struct {
	UpdateInterval     time.Duration
	LogBuffer          int
	ReverseScrollWheel bool
}

// DashboardModel is the timeline page: a merged historical+live log
// feed rendered as a virtualized, date-grouped timeline with a
// severity histogram above it. All state mutation happens on the
// bubbletea update loop.
type DashboardModel struct {
	keys   KeyMap
	source DataSource

	width  int
	height int

	updateInterval time.Duration
	logBuffer      int
	reverseScroll  bool

	// Merge and render engine.
	feed      *logfeed.Feed
	flattener *flatten.Flattener
	window    *flatten.Window
	sel       *selection.Model
	ranges    *timerange.Machine
	gesture   timerange.Gesture

	batch   []model.LogEntry
	liveBuf []model.LogEntry

	entries      []model.LogEntry // merged feed snapshot
	visible      []model.LogEntry // entries after the text filter
	filtered     []model.LogEntry
	filteredUpto int
	items        []flatten.Item
	entryItems   []int // visible entry index -> item index
	viewGen      uint64
	lastFeedGen  uint64

	// Fetch and stream plumbing.
	liveCh       chan sessionEntry
	stateCh      chan sessionState
	recon        *stream.Reconnector
	streamState  stream.State
	streamCancel context.CancelFunc
	session      int

	fetchSeq      int
	fetchInFlight bool

	// Navigation.
	activeSection Section
	scrollTop     int
	followTail    bool
	cursor        int // index into visible, -1 when unset
	dragSelecting bool

	// Chart drag mapping, frozen at gesture start.
	dragWinStart time.Time
	dragWinEnd   time.Time
	dragWinCols  int

	// Text filter.
	filterInput  textinput.Model
	filterActive bool
	filterRegex  *regexp.Regexp
	filterDirty  bool

	// Server-side filters.
	levelFilter  map[string]bool // nil means all levels
	selectedTask string          // "" means all tasks

	// Sidebar.
	showSidebar   bool
	taskStats     []model.TaskStat
	sidebarCursor int

	// Modal stack.
	modals []Modal

	// Pattern mining over the current feed.
	drain3Manager *Drain3Manager
	patternsSeen  int
	patternsGen   uint64

	// Status.
	lastError    string
	lastErrorAt  time.Time
	copyNotice   string
	copyNoticeAt time.Time
	tickInFlight bool
	ticks        int
	startTime    time.Time
}

// NewDashboard builds the timeline page against the given data source.
func NewDashboard(source DataSource, conf ...DashboardConfig) *DashboardModel {
	cfg := DashboardConfig{}
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.LogBuffer <= 0 {
		cfg.LogBuffer = DefaultLogBuffer
	}

	window := flatten.NewWindow(flatten.DefaultSizer())

	m := &DashboardModel{
		keys:           DefaultKeyMap(),
		source:         source,
		updateInterval: cfg.UpdateInterval,
		logBuffer:      cfg.LogBuffer,
		reverseScroll:  cfg.ReverseScrollWheel,
		feed:           logfeed.NewFeed(),
		window:         window,
		flattener:      flatten.NewFlattener(window),
		sel:            selection.NewModel(),
		ranges:         timerange.NewMachine(nil),
		liveCh:         make(chan sessionEntry, 256),
		stateCh:        make(chan sessionState, 16),
		drain3Manager:  NewDrain3Manager(),
		activeSection:  SectionTimeline,
		followTail:     true,
		cursor:         -1,
		startTime:      time.Now(),
	}

	m.filterInput = textinput.New()
	m.filterInput.Prompt = "/ "
	m.filterInput.Placeholder = "regex over message, task and attributes"
	m.filterInput.CharLimit = 200

	return m
}

func (m *DashboardModel) ID() string { return "timeline" }

func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		m.fetchBatchCmd(),
		m.fetchTasksCmd(),
		m.waitForLive(),
		m.waitForStreamState(),
		m.tickCmd(),
	)
}

// PushModal opens a modal unless one with the same ID is already open.
func (m *DashboardModel) PushModal(modal Modal) {
	for _, open := range m.modals {
		if open.ID() == modal.ID() {
			return
		}
	}
	m.modals = append(m.modals, modal)
}

func (m *DashboardModel) PopModal() {
	if len(m.modals) == 0 {
		return
	}
	m.modals = m.modals[:len(m.modals)-1]
}

func (m *DashboardModel) TopModal() Modal {
	if len(m.modals) == 0 {
		return nil
	}
	return m.modals[len(m.modals)-1]
}

func (m *DashboardModel) HasModal() bool { return len(m.modals) > 0 }

// refreshModals lets open modals re-pull their data after the feed
// changed.
func (m *DashboardModel) refreshModals() {
	for _, open := range m.modals {
		if r, ok := open.(Refreshable); ok {
			r.Refresh()
		}
	}
}

// sections returns the cycling order for tab navigation; the sidebar
// participates only while shown.
func (m *DashboardModel) sections() []Section {
	s := []Section{SectionTimeline, SectionChart}
	if m.showSidebar {
		s = append(s, SectionSidebar)
	}
	return s
}

func (m *DashboardModel) nextSection() {
	order := m.sections()
	for i, s := range order {
		if s == m.activeSection {
			m.activeSection = order[(i+1)%len(order)]
			return
		}
	}
	m.activeSection = order[0]
}

func (m *DashboardModel) prevSection() {
	order := m.sections()
	for i, s := range order {
		if s == m.activeSection {
			m.activeSection = order[(i+len(order)-1)%len(order)]
			return
		}
	}
	m.activeSection = order[0]
}

// contentWidth is the width left of the panels once the sidebar is
// carved off.
func (m *DashboardModel) contentWidth() int {
	if m.sidebarVisible() {
		return m.width - sidebarWidth
	}
	return m.width
}

func (m *DashboardModel) sidebarVisible() bool {
	return m.showSidebar && m.width >= 60
}

// enabledLevels returns the level filter as a query parameter, nil when
// every level is enabled.
func (m *DashboardModel) enabledLevels() []string {
	if m.levelFilter == nil {
		return nil
	}
	all := true
	for _, enabled := range m.levelFilter {
		if !enabled {
			all = false
			break
		}
	}
	if all {
		return nil
	}
	var levels []string
	for _, level := range filterableLevels() {
		if m.levelFilter[level] {
			levels = append(levels, level)
		}
	}
	return levels
}

func (m *DashboardModel) currentQuery() model.Query {
	start, end := m.ranges.Effective()
	return model.Query{
		Start:  start,
		End:    end,
		Task:   m.selectedTask,
		Levels: m.enabledLevels(),
		Limit:  m.logBuffer,
	}
}

// selectTask switches the task scope, reframes the chart on the task's
// lifecycle, and reports whether the scope actually changed.
func (m *DashboardModel) selectTask(task string) bool {
	if task == m.selectedTask {
		return false
	}
	m.selectedTask = task
	m.ranges.SeedLifecycle(m.taskLifecycle(task))
	return true
}

// taskLifecycle resolves the seed bounds for a task, or for the whole
// corpus when task is empty. The end stays open so the view lands live.
func (m *DashboardModel) taskLifecycle(task string) (time.Time, time.Time) {
	var first time.Time
	for _, stat := range m.taskStats {
		if task != "" && stat.Task != task {
			continue
		}
		if first.IsZero() || (!stat.First.IsZero() && stat.First.Before(first)) {
			first = stat.First
		}
	}
	return first, time.Time{}
}
