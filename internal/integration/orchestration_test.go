package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dhaslem/armada/internal/artefacts"
	"github.com/dhaslem/armada/internal/cascade"
	"github.com/dhaslem/armada/internal/events"
	"github.com/dhaslem/armada/internal/exec"
	"github.com/dhaslem/armada/internal/git"
	"github.com/dhaslem/armada/internal/graph"
	"github.com/dhaslem/armada/internal/haven"
	"github.com/dhaslem/armada/internal/lifecycle"
	"github.com/dhaslem/armada/internal/store"
	"github.com/dhaslem/armada/pkg/models"
)

const testBacklog = `prds:
  - id: PRD-001
    title: Test product
    status: approved
epics:
  - id: E1
    prd: PRD-001
    title: Test epic
    status: not_started
tasks:
  - id: T1
    epic: E1
    prd: PRD-001
    title: First task
    status: not_started
  - id: T2
    epic: E1
    prd: PRD-001
    title: Second task
    status: not_started
    blocked_by: [T1]
`

// completeScript is an agent that immediately reports success.
const completeScript = `printf '{"status":"completed","summary":"did the work"}' > "$ARMADA_SENTINEL"`

// blockedScript is an agent that reports it could not finish.
const blockedScript = `printf '{"status":"blocked","blockers":["missing credentials"]}' > "$ARMADA_SENTINEL"`

// sleepScript is an agent that never finishes on its own.
const sleepScript = `sleep 60`

type harness struct {
	haven   *haven.Haven
	backlog *artefacts.Backlog
	records *store.DB
	bus     *events.Bus
	machine *lifecycle.Machine

	mu   sync.Mutex
	seen []events.Type
}

// newHarness wires a full orchestration stack in a temp directory with
// the given shell script as the agent. Worktree mode is off.
func newHarness(t *testing.T, script string) *harness {
	t.Helper()
	root := t.TempDir()

	h := haven.New(root)
	if err := h.Ensure(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(h.BacklogPath(), []byte(testBacklog), 0644); err != nil {
		t.Fatal(err)
	}

	backlog, err := artefacts.Load(h.BacklogPath())
	if err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(h.RecordDBPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	bus := events.NewBus()
	hn := &harness{haven: h, backlog: backlog, records: db, bus: bus}
	bus.Subscribe(func(ev events.Event) {
		hn.mu.Lock()
		hn.seen = append(hn.seen, ev.Type)
		hn.mu.Unlock()
	})

	hn.machine = lifecycle.NewMachine(db, backlog, cascade.NewEngine(backlog), nil,
		exec.NewLauncher(), git.NewRunner(root), h, bus, lifecycle.Options{
			WorktreeMode: false,
			PollInterval: 20 * time.Millisecond,
			KillGrace:    2 * time.Second,
			AgentCommand: "sh",
			AgentArgs:    []string{"-c", script},
		})
	return hn
}

func (h *harness) sawEvent(typ events.Type) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.seen {
		if t == typ {
			return true
		}
	}
	return false
}

// runTask spawns, waits for, and reaps one task, failing on any refusal.
func (h *harness) runTask(t *testing.T, taskID string) lifecycle.ReapResult {
	t.Helper()
	if _, esc, err := h.machine.Spawn(taskID); err != nil || esc != nil {
		t.Fatalf("Spawn(%s) esc=%+v err=%v", taskID, esc, err)
	}
	result, esc, err := h.machine.Reap(context.Background(), taskID, lifecycle.ReapOptions{
		Timeout: 5 * time.Second,
	})
	if err != nil || esc != nil {
		t.Fatalf("Reap(%s) esc=%+v err=%v", taskID, esc, err)
	}
	return result
}

func TestAgentRunToCompletion(t *testing.T) {
	h := newHarness(t, completeScript)

	record, esc, err := h.machine.Spawn("T1")
	if err != nil || esc != nil {
		t.Fatalf("Spawn() esc=%+v err=%v", esc, err)
	}
	if record.PID <= 0 {
		t.Errorf("spawned record should carry a pid, got %d", record.PID)
	}

	// Spawning starts the hierarchy: epic and PRD leave their initial
	// states before the agent finishes.
	epic, _ := h.backlog.GetEpic("E1")
	if epic.Status != models.StatusInProgress {
		t.Errorf("epic status = %s, want in_progress", epic.Status)
	}
	prd, _ := h.backlog.GetPrd("PRD-001")
	if prd.Status != models.StatusInProgress {
		t.Errorf("prd status = %s, want in_progress", prd.Status)
	}

	waitResult, err := h.machine.Wait(context.Background(), "T1", 5*time.Second)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if waitResult.TimedOut || waitResult.Result != models.ResultCompleted {
		t.Fatalf("Wait() = %+v, want completed", waitResult)
	}
	if waitResult.Sentinel == nil || waitResult.Sentinel.Summary != "did the work" {
		t.Errorf("sentinel summary not carried through: %+v", waitResult.Sentinel)
	}

	reapResult, esc, err := h.machine.Reap(context.Background(), "T1", lifecycle.ReapOptions{})
	if err != nil || esc != nil {
		t.Fatalf("Reap() esc=%+v err=%v", esc, err)
	}
	if reapResult.TaskStatus != models.StatusDone {
		t.Errorf("task status = %s, want done", reapResult.TaskStatus)
	}
	if reapResult.Cascade.EpicAutoDone {
		t.Error("epic should not be auto-done while T2 is pending")
	}

	for _, typ := range []events.Type{events.AgentSpawned, events.AgentCompleted, events.AgentReaped} {
		if !h.sawEvent(typ) {
			t.Errorf("event %s never fired", typ)
		}
	}

	// The status change survives a fresh read of the backlog file.
	reloaded, err := artefacts.Load(h.haven.BacklogPath())
	if err != nil {
		t.Fatal(err)
	}
	task, err := reloaded.GetTask("T1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != models.StatusDone {
		t.Errorf("persisted task status = %s, want done", task.Status)
	}
}

func TestCascadeReachesAutoDone(t *testing.T) {
	h := newHarness(t, completeScript)

	// T2 is not schedulable until T1 is done.
	g := graph.Build(h.backlog.Tasks())
	ready := g.Ready(graph.ReadyOptions{})
	if len(ready) != 1 || ready[0].ID != "T1" {
		t.Fatalf("ready = %v, want [T1]", ready)
	}

	h.runTask(t, "T1")

	g = graph.Build(h.backlog.Tasks())
	ready = g.Ready(graph.ReadyOptions{})
	if len(ready) != 1 || ready[0].ID != "T2" {
		t.Fatalf("after T1, ready = %v, want [T2]", ready)
	}

	result := h.runTask(t, "T2")
	if !result.Cascade.EpicAutoDone {
		t.Error("finishing every task should auto-done the epic")
	}
	if !result.Cascade.PrdAutoDone {
		t.Error("finishing the only epic should auto-done the PRD")
	}

	epic, _ := h.backlog.GetEpic("E1")
	if epic.Status != models.StatusAutoDone {
		t.Errorf("epic status = %s, want auto_done", epic.Status)
	}
	prd, _ := h.backlog.GetPrd("PRD-001")
	if prd.Status != models.StatusAutoDone {
		t.Errorf("prd status = %s, want auto_done", prd.Status)
	}
}

func TestBlockedAgentBlocksTask(t *testing.T) {
	h := newHarness(t, blockedScript)

	if _, esc, err := h.machine.Spawn("T1"); err != nil || esc != nil {
		t.Fatalf("Spawn() esc=%+v err=%v", esc, err)
	}

	result, esc, err := h.machine.Reap(context.Background(), "T1", lifecycle.ReapOptions{
		Timeout: 5 * time.Second,
	})
	if err != nil || esc != nil {
		t.Fatalf("Reap() esc=%+v err=%v", esc, err)
	}
	if result.TaskStatus != models.StatusBlocked {
		t.Errorf("task status = %s, want blocked", result.TaskStatus)
	}

	// A blocked task does not satisfy its dependents.
	g := graph.Build(h.backlog.Tasks())
	for _, task := range g.Ready(graph.ReadyOptions{}) {
		if task.ID == "T2" {
			t.Error("T2 should stay unready behind a blocked T1")
		}
	}
}

func TestKillStopsLongRunningAgent(t *testing.T) {
	h := newHarness(t, sleepScript)

	record, esc, err := h.machine.Spawn("T1")
	if err != nil || esc != nil {
		t.Fatalf("Spawn() esc=%+v err=%v", esc, err)
	}

	// A second spawn on an occupied task is refused.
	if _, esc, err := h.machine.Spawn("T1"); err != nil || esc == nil {
		t.Fatalf("second Spawn() should escalate, esc=%+v err=%v", esc, err)
	}

	if esc, err := h.machine.Kill("T1"); err != nil || esc != nil {
		t.Fatalf("Kill() esc=%+v err=%v", esc, err)
	}

	rec, err := h.records.Get("T1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.AgentStatusKilled {
		t.Errorf("record status = %s, want killed", rec.Status)
	}
	if rec.PID != 0 {
		t.Errorf("killed record should not carry a pid, got %d", rec.PID)
	}

	// Killing again, with the process long gone, is still success.
	if esc, err := h.machine.Kill("T1"); err != nil || esc != nil {
		t.Fatalf("repeated Kill() esc=%+v err=%v", esc, err)
	}

	if esc, err := h.machine.Clear("T1"); err != nil || esc != nil {
		t.Fatalf("Clear() esc=%+v err=%v", esc, err)
	}
	if _, err := h.records.Get("T1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("record should be gone after clear, got %v", err)
	}

	// The pid really is dead.
	if record.PID > 0 && exec.NewLauncher().Alive(record.PID) {
		t.Errorf("pid %d still alive after kill", record.PID)
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	h := newHarness(t, completeScript)
	h.runTask(t, "T1")

	if err := h.records.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := store.Open(h.haven.RecordDBPath())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if err := reopened.Migrate(); err != nil {
		t.Fatal(err)
	}

	rec, err := reopened.Get("T1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if rec.Status != models.AgentStatusReaped {
		t.Errorf("record status = %s, want reaped", rec.Status)
	}
	if rec.Result != models.ResultCompleted {
		t.Errorf("record result = %s, want completed", rec.Result)
	}
}
