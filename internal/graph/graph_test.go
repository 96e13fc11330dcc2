package graph

import (
	"testing"

	"github.com/dhaslem/armada/pkg/models"
)

func task(id string, status models.Status, blockedBy ...string) *models.Task {
	return &models.Task{ID: id, Status: status, BlockedBy: blockedBy}
}

func TestBuildBlocksIndex(t *testing.T) {
	g := Build([]*models.Task{
		task("t1", models.StatusDone),
		task("t2", models.StatusNotStarted, "t1"),
		task("t3", models.StatusNotStarted, "t1", "t2"),
	})

	if g.Size() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.Size())
	}

	blocks := g.Blocks("t1")
	if len(blocks) != 2 {
		t.Fatalf("expected t1 to block 2 tasks, got %v", blocks)
	}
	if blocks[0] != "t2" || blocks[1] != "t3" {
		t.Errorf("expected sorted blocks [t2 t3], got %v", blocks)
	}
}

func TestBuildNormalizesIDs(t *testing.T) {
	g := Build([]*models.Task{
		task(" T1 ", models.StatusDone),
		task("t2", models.StatusNotStarted, "T1"),
	})

	if g.Task("t1") == nil {
		t.Fatal("expected lookup by normalized id to succeed")
	}
	if !g.BlockersResolved(g.Task("t2")) {
		t.Error("expected case-insensitive blocker to resolve")
	}
}

func TestBlockersResolvedUnknownFailsClosed(t *testing.T) {
	g := Build([]*models.Task{
		task("t1", models.StatusNotStarted, "ghost"),
	})

	if g.BlockersResolved(g.Task("t1")) {
		t.Error("unknown blocker must be treated as unresolved")
	}
}

func TestBlockersResolvedStatuses(t *testing.T) {
	cases := []struct {
		status models.Status
		want   bool
	}{
		{models.StatusDone, true},
		{models.StatusCancelled, true},
		{models.StatusAutoDone, false},
		{models.StatusInProgress, false},
		{models.StatusBlocked, false},
		{models.StatusNotStarted, false},
	}

	for _, tc := range cases {
		g := Build([]*models.Task{
			task("dep", tc.status),
			task("t1", models.StatusNotStarted, "dep"),
		})
		if got := g.BlockersResolved(g.Task("t1")); got != tc.want {
			t.Errorf("blocker status %s: resolved = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestDetectCyclesEmptyForDAG(t *testing.T) {
	g := Build([]*models.Task{
		task("a", models.StatusNotStarted),
		task("b", models.StatusNotStarted, "a"),
		task("c", models.StatusNotStarted, "a", "b"),
	})

	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles in DAG, got %v", cycles)
	}
}

func TestDetectCyclesTwoNode(t *testing.T) {
	g := Build([]*models.Task{
		task("t1", models.StatusNotStarted, "t2"),
		task("t2", models.StatusNotStarted, "t1"),
	})

	cycles := g.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected exactly one cycle, got %v", cycles)
	}

	found := map[string]bool{}
	for _, id := range cycles[0] {
		found[id] = true
	}
	if !found["t1"] || !found["t2"] {
		t.Errorf("cycle must contain both t1 and t2, got %v", cycles[0])
	}
}

func TestDetectCyclesSelfLoop(t *testing.T) {
	g := Build([]*models.Task{
		task("a", models.StatusNotStarted, "a"),
	})

	cycles := g.DetectCycles()
	if len(cycles) != 1 || len(cycles[0]) != 1 || cycles[0][0] != "a" {
		t.Errorf("expected single self-loop cycle [a], got %v", cycles)
	}
}

func TestDetectCyclesMultipleComponents(t *testing.T) {
	// Two independent cyclic components plus an acyclic chain.
	g := Build([]*models.Task{
		task("a", models.StatusNotStarted, "b"),
		task("b", models.StatusNotStarted, "a"),
		task("x", models.StatusNotStarted, "y"),
		task("y", models.StatusNotStarted, "z"),
		task("z", models.StatusNotStarted, "x"),
		task("free", models.StatusNotStarted),
		task("chained", models.StatusNotStarted, "free"),
	})

	cycles := g.DetectCycles()
	if len(cycles) != 2 {
		t.Fatalf("expected one cycle per cyclic component, got %v", cycles)
	}

	members := map[string]bool{}
	for _, cycle := range cycles {
		for _, id := range cycle {
			members[id] = true
		}
	}
	for _, id := range []string{"a", "b", "x", "y", "z"} {
		if !members[id] {
			t.Errorf("node %s participates in a cycle but appears in none", id)
		}
	}
	if members["free"] || members["chained"] {
		t.Error("acyclic nodes must not appear in any reported cycle")
	}
}

func TestLongestPath(t *testing.T) {
	// chain: d blocks c blocks b blocks a, plus a short branch.
	g := Build([]*models.Task{
		task("a", models.StatusNotStarted, "b"),
		task("b", models.StatusNotStarted, "c"),
		task("c", models.StatusNotStarted, "d"),
		task("d", models.StatusNotStarted),
		task("side", models.StatusNotStarted, "d"),
	})

	cases := map[string]int{"d": 3, "c": 2, "b": 1, "a": 0, "side": 0}
	for id, want := range cases {
		if got := g.LongestPath(id); got != want {
			t.Errorf("LongestPath(%s) = %d, want %d", id, got, want)
		}
	}
}

func TestImpact(t *testing.T) {
	// root blocks mid1 and mid2; mid1 blocks leaf. Diamond-free counts.
	g := Build([]*models.Task{
		task("root", models.StatusNotStarted),
		task("mid1", models.StatusNotStarted, "root"),
		task("mid2", models.StatusNotStarted, "root"),
		task("leaf", models.StatusNotStarted, "mid1"),
	})

	if got := g.Impact("root"); got != 3 {
		t.Errorf("Impact(root) = %d, want 3", got)
	}
	if got := g.Impact("mid1"); got != 1 {
		t.Errorf("Impact(mid1) = %d, want 1", got)
	}
	if got := g.Impact("leaf"); got != 0 {
		t.Errorf("Impact(leaf) = %d, want 0", got)
	}

	// Strict superset of unblocked work implies strictly greater impact.
	if g.Impact("root") <= g.Impact("mid1") {
		t.Error("expected impact(root) > impact(mid1)")
	}
}

func TestImpactCountsSharedDescendantsOnce(t *testing.T) {
	// Diamond: root blocks m1 and m2, both block leaf.
	g := Build([]*models.Task{
		task("root", models.StatusNotStarted),
		task("m1", models.StatusNotStarted, "root"),
		task("m2", models.StatusNotStarted, "root"),
		task("leaf", models.StatusNotStarted, "m1", "m2"),
	})

	if got := g.Impact("root"); got != 3 {
		t.Errorf("Impact(root) = %d, want 3 (leaf counted once)", got)
	}
}

func TestReadyFiltersBlockedTasks(t *testing.T) {
	g := Build([]*models.Task{
		task("done", models.StatusDone),
		task("open", models.StatusNotStarted, "done"),
		task("waiting", models.StatusNotStarted, "open"),
		task("orphan", models.StatusNotStarted, "ghost"),
		task("active", models.StatusInProgress),
	})

	ready := g.Ready(ReadyOptions{})
	if len(ready) != 1 || ready[0].ID != "open" {
		t.Fatalf("expected only [open] ready, got %v", readyIDs(ready))
	}

	withInProgress := g.Ready(ReadyOptions{IncludeInProgress: true})
	if len(withInProgress) != 2 {
		t.Fatalf("expected [open active] with in-progress included, got %v", readyIDs(withInProgress))
	}
}

func TestReadyNeverIncludesUnresolvedBlockers(t *testing.T) {
	g := Build([]*models.Task{
		task("t1", models.StatusInProgress),
		task("t2", models.StatusNotStarted, "t1"),
		task("t3", models.StatusNotStarted, "missing"),
	})

	for _, r := range g.Ready(ReadyOptions{}) {
		if r.ID == "t2" || r.ID == "t3" {
			t.Errorf("task %s has unresolved blockers and must not be ready", r.ID)
		}
	}
}

func TestReadyOrdering(t *testing.T) {
	// big unblocks three tasks, small unblocks one, lone unblocks none.
	g := Build([]*models.Task{
		task("big", models.StatusNotStarted),
		task("b1", models.StatusNotStarted, "big"),
		task("b2", models.StatusNotStarted, "big"),
		task("b3", models.StatusNotStarted, "b1"),
		task("small", models.StatusNotStarted),
		task("s1", models.StatusNotStarted, "small"),
		task("lone", models.StatusNotStarted),
	})

	ready := g.Ready(ReadyOptions{})
	ids := readyIDs(ready)
	if ids[0] != "big" || ids[1] != "small" {
		t.Errorf("expected impact-descending order starting [big small], got %v", ids)
	}
	if ids[len(ids)-1] != "lone" {
		t.Errorf("expected lone (impact 0) last, got %v", ids)
	}
}

func TestReadyTieBreakByCriticalPath(t *testing.T) {
	// Both roots have impact 2, but deep has the longer downstream chain.
	g := Build([]*models.Task{
		task("deep", models.StatusNotStarted),
		task("d1", models.StatusNotStarted, "deep"),
		task("d2", models.StatusNotStarted, "d1"),
		task("wide", models.StatusNotStarted),
		task("w1", models.StatusNotStarted, "wide"),
		task("w2", models.StatusNotStarted, "wide"),
	})

	ids := readyIDs(g.Ready(ReadyOptions{}))
	if ids[0] != "deep" || ids[1] != "wide" {
		t.Errorf("expected critical-path tie-break to favor deep, got %v", ids)
	}
}

func TestValidateReportsDanglingAndSelfRefs(t *testing.T) {
	g := Build([]*models.Task{
		task("a", models.StatusNotStarted, "ghost"),
		task("b", models.StatusNotStarted, "b"),
	})

	issues := g.Validate()

	var unknown, self, cycles int
	for _, issue := range issues {
		switch issue.Kind {
		case IssueUnknownBlocker:
			unknown++
			if issue.TaskID != "a" || issue.Ref != "ghost" {
				t.Errorf("unexpected unknown-blocker issue: %+v", issue)
			}
		case IssueSelfBlocker:
			self++
		case IssueCycle:
			cycles++
		}
	}
	if unknown != 1 {
		t.Errorf("expected 1 unknown-blocker issue, got %d", unknown)
	}
	if self != 1 {
		t.Errorf("expected 1 self-blocker issue, got %d", self)
	}
	if cycles != 1 {
		t.Errorf("expected self-loop to also surface as a cycle, got %d", cycles)
	}
}

func readyIDs(tasks []*models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
