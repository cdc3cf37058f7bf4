package timerange

// GesturePhase tracks a pointer drag on the chart.
type GesturePhase int

const (
	GestureIdle GesturePhase = iota
	GestureDragging
	GestureReleased
)

// Gesture is the explicit drag state machine behind brush selection on
// the histogram: press begins, motion extends, release yields the
// final column extent. Column-to-time mapping is the caller's job.
type Gesture struct {
	phase  GesturePhase
	startX int
	lastX  int
}

// Begin starts a drag at column x.
func (g *Gesture) Begin(x int) {
	g.phase = GestureDragging
	g.startX = x
	g.lastX = x
}

// Move extends an active drag to column x. Motion in any other phase
// is ignored; reports whether the extent changed.
func (g *Gesture) Move(x int) bool {
	if g.phase != GestureDragging || x == g.lastX {
		return false
	}
	g.lastX = x
	return true
}

// Release ends an active drag at column x and returns the ordered
// extent. Releases in other phases report ok = false.
func (g *Gesture) Release(x int) (x0, x1 int, ok bool) {
	if g.phase != GestureDragging {
		return 0, 0, false
	}
	g.lastX = x
	g.phase = GestureReleased
	x0, x1 = orderCols(g.startX, g.lastX)
	return x0, x1, true
}

// Span returns the current ordered extent of a drag in progress or
// just released.
func (g *Gesture) Span() (x0, x1 int, ok bool) {
	if g.phase == GestureIdle {
		return 0, 0, false
	}
	x0, x1 = orderCols(g.startX, g.lastX)
	return x0, x1, true
}

// Reset returns the gesture to idle.
func (g *Gesture) Reset() {
	*g = Gesture{}
}

func (g *Gesture) Phase() GesturePhase {
	return g.phase
}

func (g *Gesture) Dragging() bool {
	return g.phase == GestureDragging
}

func orderCols(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}
