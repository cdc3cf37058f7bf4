package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/histogram"
	"github.com/tasklight/tasklight/internal/logparse"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

// chartWindow is the plotted span: the machine's display window,
// stretched to now while live so fresh entries never fall off the
// right edge.
func (m *DashboardModel) chartWindow() (time.Time, time.Time) {
	start, end := m.ranges.Display()
	if m.ranges.Live() {
		if now := time.Now(); now.After(end) {
			end = now
		}
	}
	return start, end
}

func (m *DashboardModel) chartCols(g layoutGeom) int {
	return g.chartInnerW
}

// chartColAt maps a screen x to a chart column, rejecting clicks
// outside the plot.
func (m *DashboardModel) chartColAt(x int, g layoutGeom) (int, bool) {
	col := x - g.chartInnerX
	if col < 0 || col >= m.chartCols(g) {
		return 0, false
	}
	return col, true
}

func (m *DashboardModel) clampChartCol(x int, g layoutGeom) int {
	col := x - g.chartInnerX
	if col < 0 {
		col = 0
	}
	if max := m.chartCols(g) - 1; col > max {
		col = max
	}
	return col
}

// beginChartDrag freezes the column-to-time mapping for the length of
// the drag. Proposals recenter the display window, so mapping against
// the live window would shift the scale under the pointer mid drag.
func (m *DashboardModel) beginChartDrag(col int, g layoutGeom) {
	m.dragWinStart, m.dragWinEnd = m.chartWindow()
	m.dragWinCols = m.chartCols(g)
	m.gesture.Begin(col)
}

// proposeCols stages the dragged span. Columns address buckets, so the
// span runs from the left edge of the first to the right edge of the
// last.
func (m *DashboardModel) proposeCols(x0, x1 int, g layoutGeom) {
	cols := m.dragWinCols
	if cols <= 0 {
		cols = m.chartCols(g)
	}
	t0 := colInstant(m.dragWinStart, m.dragWinEnd, cols, x0)
	t1 := colInstant(m.dragWinStart, m.dragWinEnd, cols, x1+1)
	m.ranges.Propose(t0, t1)
}

func (m *DashboardModel) previewGesture(g layoutGeom) {
	if x0, x1, ok := m.gesture.Span(); ok {
		m.proposeCols(x0, x1, g)
	}
}

// colInstant converts a column boundary to its instant on a plot of
// cols columns spanning [start, end).
func colInstant(start, end time.Time, cols, col int) time.Time {
	if cols <= 0 || !end.After(start) {
		return start
	}
	return start.Add(time.Duration(int64(end.Sub(start)) * int64(col) / int64(cols)))
}

// renderChart draws the stacked per-level histogram. Buckets outside
// the effective range render dimmed; while a proposal is staged the
// dimming tracks the proposal instead, which is the drag preview.
func (m *DashboardModel) renderChart(g layoutGeom) string {
	innerW := g.chartInnerW
	plotH := g.chartInnerH

	start, end := m.chartWindow()
	effStart, effEnd := m.ranges.Effective()
	if ps, pe, ok := m.ranges.Pending(); ok {
		effStart, effEnd = ps, pe
	}

	buckets := histogram.Compute(m.visible, histogram.Options{
		NumBuckets:     innerW,
		DisplayStart:   start,
		DisplayEnd:     end,
		EffectiveStart: effStart,
		EffectiveEnd:   effEnd,
	})

	var plot string
	if len(buckets) == 0 || histogram.MaxTotal(buckets) == 0 {
		empty := make([]string, plotH)
		if plotH > 0 {
			empty[plotH-1] = helpStyle.Render("no entries in the chart window")
		}
		plot = strings.Join(empty, "\n")
	} else {
		bc := barchart.New(innerW, plotH,
			barchart.WithBarWidth(1),
			barchart.WithBarGap(0),
			barchart.WithNoAxis())
		for _, b := range buckets {
			bc.Push(barchart.BarData{Label: "", Values: bucketValues(b)})
		}
		bc.Draw()
		plot = bc.View()
	}

	borderColor := ColorGray
	if m.activeSection == SectionChart {
		borderColor = ColorBlue
	}
	content := lipgloss.JoinVertical(lipgloss.Left, m.chartTitle(innerW), plot)
	return lipgloss.NewStyle().
		Width(innerW).
		Height(g.chartH - 2).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(content)
}

// bucketValues stacks one bucket's counts most severe first, so errors
// sit anchored to the baseline.
func bucketValues(b histogram.Bucket) []barchart.BarValue {
	levels := logparse.KnownLevels
	values := make([]barchart.BarValue, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		count := b.CountsByLevel[level]
		if count == 0 {
			continue
		}
		values = append(values, barchart.BarValue{
			Name:  level,
			Value: float64(count),
			Style: barStyle(level, !b.InEffectiveRange),
		})
	}
	return values
}

func barStyle(level string, dimmed bool) lipgloss.Style {
	c := getSeverityColor(level)
	if dimmed {
		c = lipgloss.Color("240")
	}
	return lipgloss.NewStyle().Foreground(c).Background(c)
}

func (m *DashboardModel) chartTitle(width int) string {
	start, end := m.chartWindow()
	span := end.Sub(start)

	left := chartTitleStyle.Render("Histogram")

	var right string
	if ps, pe, ok := m.ranges.Pending(); ok {
		right = lipgloss.NewStyle().Foreground(ColorYellow).Render(fmt.Sprintf(
			"select %s - %s | enter: apply | esc: cancel",
			formatRangeBound(ps, span), formatRangeBound(pe, span)))
	} else {
		effStart, effEnd := m.ranges.Effective()
		switch {
		case m.ranges.Live() && effStart.IsZero():
			right = lipgloss.NewStyle().Foreground(ColorGreen).Render("all time | LIVE")
		case m.ranges.Live():
			right = lipgloss.NewStyle().Foreground(ColorGreen).Render(
				fmt.Sprintf("since %s | LIVE", formatRangeBound(effStart, span)))
		default:
			right = helpStyle.Render(fmt.Sprintf("%s - %s",
				formatRangeBound(effStart, span), formatRangeBound(effEnd, span)))
		}
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func formatRangeBound(t time.Time, span time.Duration) string {
	if t.IsZero() {
		return "start"
	}
	if span >= 48*time.Hour {
		return t.Local().Format("Jan 02 15:04")
	}
	return t.Local().Format("15:04:05")
}
