package timerange

import "testing"

func TestGestureLifecycle(t *testing.T) {
	t.Parallel()

	var g Gesture
	if g.Phase() != GestureIdle {
		t.Fatalf("phase = %v, want idle", g.Phase())
	}

	g.Begin(10)
	if !g.Dragging() {
		t.Fatal("Dragging() = false after Begin")
	}
	if changed := g.Move(14); !changed {
		t.Fatal("Move(14) = false, want extent change")
	}
	if changed := g.Move(14); changed {
		t.Fatal("Move to same column reported a change")
	}

	x0, x1, ok := g.Span()
	if !ok || x0 != 10 || x1 != 14 {
		t.Fatalf("Span() = (%d, %d, %v), want (10, 14, true)", x0, x1, ok)
	}

	x0, x1, ok = g.Release(18)
	if !ok || x0 != 10 || x1 != 18 {
		t.Fatalf("Release(18) = (%d, %d, %v), want (10, 18, true)", x0, x1, ok)
	}
	if g.Phase() != GestureReleased {
		t.Fatalf("phase = %v, want released", g.Phase())
	}

	g.Reset()
	if g.Phase() != GestureIdle {
		t.Fatalf("phase after Reset = %v, want idle", g.Phase())
	}
}

func TestGestureBackwardDragOrdersExtent(t *testing.T) {
	t.Parallel()

	var g Gesture
	g.Begin(20)
	g.Move(5)
	x0, x1, ok := g.Release(3)
	if !ok || x0 != 3 || x1 != 20 {
		t.Fatalf("Release = (%d, %d, %v), want (3, 20, true)", x0, x1, ok)
	}
}

func TestGestureIgnoresInputOutsideDrag(t *testing.T) {
	t.Parallel()

	var g Gesture
	if g.Move(5) {
		t.Fatal("Move while idle reported a change")
	}
	if _, _, ok := g.Release(5); ok {
		t.Fatal("Release while idle reported ok")
	}

	g.Begin(1)
	g.Release(2)
	if g.Move(9) {
		t.Fatal("Move after release reported a change")
	}
	if _, _, ok := g.Release(9); ok {
		t.Fatal("second Release reported ok")
	}
}
