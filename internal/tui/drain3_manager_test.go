package tui

import (
	"fmt"
	"testing"
)

func TestDrain3ManagerMinesRepeatedShape(t *testing.T) {
	t.Parallel()
	dm := NewDrain3Manager()

	dm.AddLogMessage("upload failed for chunk 17")
	dm.AddLogMessage("upload failed for chunk 42")
	dm.AddLogMessage("upload failed for chunk 103")

	top := dm.GetTopPatterns(10)
	if len(top) == 0 {
		t.Fatal("three same-shape messages should mine at least one pattern")
	}
	if _, total := dm.GetStats(); total != 3 {
		t.Fatalf("total mined = %d, want 3", total)
	}
}

func TestDrain3ManagerSkipsBlankMessages(t *testing.T) {
	t.Parallel()
	dm := NewDrain3Manager()

	dm.AddLogMessage("")
	dm.AddLogMessage("   ")
	dm.AddLogMessage("\t")

	if n, total := dm.GetStats(); n != 0 || total != 0 {
		t.Fatalf("stats after blanks = (%d, %d), want (0, 0)", n, total)
	}
}

func TestDrain3ManagerResetDropsEverything(t *testing.T) {
	t.Parallel()
	dm := NewDrain3Manager()

	dm.AddLogMessage("worker heartbeat ok")
	dm.Reset()

	if got := dm.GetTopPatterns(10); len(got) != 0 {
		t.Fatalf("patterns after reset = %d, want 0", len(got))
	}
	if n, total := dm.GetStats(); n != 0 || total != 0 {
		t.Fatalf("stats after reset = (%d, %d), want (0, 0)", n, total)
	}
}

func TestDrain3ManagerOrdersByCount(t *testing.T) {
	t.Parallel()
	dm := NewDrain3Manager()

	for i := 0; i < 9; i++ {
		dm.AddLogMessage("retry scheduled for task payments")
	}
	for i := 0; i < 2; i++ {
		dm.AddLogMessage("checkpoint written to disk")
	}

	top := dm.GetTopPatterns(10)
	if len(top) < 2 {
		t.Skipf("miner merged the fixtures into %d pattern(s)", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Count > top[i-1].Count {
			t.Fatalf("top[%d].Count=%d exceeds top[%d].Count=%d",
				i, top[i].Count, i-1, top[i-1].Count)
		}
	}
	if top[0].Count != 9 {
		t.Fatalf("top pattern count = %d, want 9", top[0].Count)
	}
}

func TestDrain3ManagerHonorsLimit(t *testing.T) {
	t.Parallel()
	dm := NewDrain3Manager()

	for i := 0; i < 40; i++ {
		dm.AddLogMessage(fmt.Sprintf("distinct-%d event shape number %d", i, i*7))
	}

	if got := dm.GetTopPatterns(3); len(got) > 3 {
		t.Fatalf("limit 3 returned %d patterns", len(got))
	}
	if got := dm.GetTopPatterns(0); got != nil {
		t.Fatalf("limit 0 should return nil, got %d patterns", len(got))
	}
}

func TestDrain3ManagerPercentagesCoverFeed(t *testing.T) {
	t.Parallel()
	dm := NewDrain3Manager()

	for i := 0; i < 10; i++ {
		dm.AddLogMessage("deploy step completed")
	}

	top := dm.GetTopPatterns(10)
	if len(top) == 0 {
		t.Fatal("expected mined patterns")
	}
	var sum float64
	for _, p := range top {
		sum += p.Percentage
	}
	if sum < 99.0 || sum > 101.0 {
		t.Fatalf("percentage sum = %.1f, want ~100", sum)
	}
}
