package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhaslem/armada/internal/cascade"
	"github.com/dhaslem/armada/internal/events"
	"github.com/dhaslem/armada/internal/exec"
	"github.com/dhaslem/armada/internal/git"
	"github.com/dhaslem/armada/internal/haven"
	"github.com/dhaslem/armada/internal/isolation"
	"github.com/dhaslem/armada/internal/store"
	"github.com/dhaslem/armada/pkg/models"
)

// Isolator is the slice of the isolation layer the lifecycle machine
// depends on.
type Isolator interface {
	EnsureBranchHierarchy(ctx isolation.Context) error
	SyncParentBranch(ctx isolation.Context) error
	CreateWorktree(taskID string, ctx isolation.Context) (*models.WorktreeRef, error)
	CleanupWorktree(ref *models.WorktreeRef) error
	MergeWork(ref *models.WorktreeRef, taskID string, strategy isolation.MergeStrategy) (isolation.MergeResult, error)
	SyncUpwardHierarchy(level string, ctx isolation.Context) error
	VerifyWorktree(ref *models.WorktreeRef) error
}

var _ Isolator = (*isolation.Manager)(nil)

// Options configures the lifecycle machine.
type Options struct {
	// WorktreeMode isolates each agent in its own worktree. When off,
	// agents run directly in the project root.
	WorktreeMode bool
	// Branching is the branch hierarchy strategy.
	Branching isolation.Strategy
	// MergeStrategy is how reaped work lands on the parent branch.
	MergeStrategy isolation.MergeStrategy
	// SyncParent refreshes the task's parent branch before spawn.
	SyncParent bool
	// PollInterval is the sentinel polling cadence.
	PollInterval time.Duration
	// KillGrace is how long SIGTERM gets before SIGKILL.
	KillGrace time.Duration
	// AgentCommand is the executable launched per task.
	AgentCommand string
	// AgentArgs are passed ahead of the mission path.
	AgentArgs []string
}

func (o *Options) withDefaults() {
	if o.Branching == "" {
		o.Branching = isolation.StrategyFlat
	}
	if o.MergeStrategy == "" {
		o.MergeStrategy = isolation.MergeStrategyMerge
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.KillGrace <= 0 {
		o.KillGrace = 10 * time.Second
	}
}

// Machine is the agent lifecycle state machine. It owns the per-task
// agent record and composes the graph-adjacent layers: isolation,
// cascade, process control, and the event bus.
type Machine struct {
	records  store.RecordStore
	repo     cascade.ArtefactRepository
	cascade  *cascade.Engine
	isolator Isolator
	launcher exec.Launcher
	git      git.Runner
	haven    *haven.Haven
	bus      *events.Bus
	opts     Options
}

// NewMachine wires a lifecycle machine from its collaborators.
func NewMachine(records store.RecordStore, repo cascade.ArtefactRepository, eng *cascade.Engine,
	iso Isolator, launcher exec.Launcher, g git.Runner, h *haven.Haven, bus *events.Bus, opts Options) *Machine {
	opts.withDefaults()
	return &Machine{
		records:  records,
		repo:     repo,
		cascade:  eng,
		isolator: iso,
		launcher: launcher,
		git:      g,
		haven:    h,
		bus:      bus,
		opts:     opts,
	}
}

// Spawn launches an agent for the task. Precondition failures come back
// as escalations with no partial mutation; only infrastructure failures
// are errors.
func (m *Machine) Spawn(taskID string) (*models.AgentRecord, *Escalation, error) {
	task, err := m.repo.GetTask(taskID)
	if err != nil {
		return nil, escalate(
			fmt.Sprintf("task %s is not in the backlog", taskID),
			"check the task id against `armada status`",
		), nil
	}

	esc, err := m.checkOccupied(taskID)
	if err != nil {
		return nil, nil, err
	}
	if esc != nil {
		return nil, esc, nil
	}

	var ref *models.WorktreeRef
	isoCtx := isolation.Context{PrdID: task.PrdID, EpicID: task.EpicID, Strategy: m.opts.Branching}

	if m.opts.WorktreeMode {
		if esc := m.checkRepoPreconditions(); esc != nil {
			return nil, esc, nil
		}
		if err := m.isolator.EnsureBranchHierarchy(isoCtx); err != nil {
			return nil, nil, err
		}
		if m.opts.SyncParent {
			if err := m.isolator.SyncParentBranch(isoCtx); err != nil {
				return nil, nil, err
			}
		}
		ref, err = m.isolator.CreateWorktree(task.ID, isoCtx)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := m.haven.Ensure(); err != nil {
		return nil, nil, err
	}

	id := models.NormalizeID(task.ID)
	sentinelPath := m.haven.SentinelPath(id)
	// A leftover sentinel from an earlier run would complete the new
	// agent instantly.
	os.Remove(sentinelPath)

	agentID := uuid.NewString()
	workDir := m.git.Path()
	branch := ""
	if ref != nil {
		workDir = ref.Path
		branch = ref.Branch
	}

	logPath := m.haven.AgentLogPath(id)
	mission := NewMission(task, agentID, workDir, branch, sentinelPath, logPath)
	missionPath := m.haven.MissionPath(id)
	if err := mission.Write(missionPath); err != nil {
		return nil, nil, err
	}

	pid, err := m.launcher.Start(exec.LaunchSpec{
		Command: m.opts.AgentCommand,
		Args:    append(append([]string{}, m.opts.AgentArgs...), missionPath),
		Dir:     workDir,
		Env: []string{
			"ARMADA_TASK_ID=" + task.ID,
			"ARMADA_MISSION=" + missionPath,
			"ARMADA_SENTINEL=" + sentinelPath,
		},
		LogPath: logPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("launch agent for %s: %w", task.ID, err)
	}

	record := &models.AgentRecord{
		TaskID:    task.ID,
		AgentID:   agentID,
		Status:    models.AgentStatusSpawned,
		PID:       pid,
		Worktree:  ref,
		SpawnedAt: time.Now().UTC(),
	}
	if err := m.records.Put(record); err != nil {
		return nil, nil, err
	}

	if err := m.cascade.EscalateOnTaskStart(task); err != nil {
		return record, nil, err
	}
	if err := m.repo.UpdateTaskStatus(task.ID, models.StatusInProgress); err != nil {
		return record, nil, err
	}

	m.publish(events.AgentSpawned, record, fmt.Sprintf("agent %s spawned (pid %d)", agentID, pid), nil)
	return record, nil, nil
}

// checkOccupied refuses spawn while any record exists for the task. A
// running agent is never silently replaced; finished records must be
// reaped or cleared first. A store failure propagates as an error: an
// unreadable record is not an absent one.
func (m *Machine) checkOccupied(taskID string) (*Escalation, error) {
	rec, err := m.records.Get(taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check record for %s: %w", taskID, err)
	}

	switch {
	case rec.Status.Live() && m.launcher.Alive(rec.PID):
		return escalate(
			fmt.Sprintf("an agent is already running for %s (pid %d)", taskID, rec.PID),
			fmt.Sprintf("wait for it: armada wait %s", taskID),
			fmt.Sprintf("or stop it: armada kill %s", taskID),
		), nil
	case rec.Status.Live():
		return escalate(
			fmt.Sprintf("a stale record for %s points at dead pid %d", taskID, rec.PID),
			fmt.Sprintf("clear it: armada clear %s", taskID),
		), nil
	case rec.Status == models.AgentStatusCompleted || rec.Status == models.AgentStatusError:
		return escalate(
			fmt.Sprintf("a finished agent for %s has not been reaped", taskID),
			fmt.Sprintf("reap it: armada reap %s", taskID),
			fmt.Sprintf("or discard it: armada reject %s", taskID),
		), nil
	default:
		return escalate(
			fmt.Sprintf("a %s record for %s is still present", rec.Status, taskID),
			fmt.Sprintf("clear it: armada clear %s", taskID),
		), nil
	}
}

// checkRepoPreconditions verifies the base repository can host worktrees.
func (m *Machine) checkRepoPreconditions() *Escalation {
	if !m.git.IsRepo() {
		return escalate(
			fmt.Sprintf("%s is not a git repository", m.git.Path()),
			"run `git init` or point armada at a repository",
		)
	}
	dirty, err := m.git.HasChanges()
	if err != nil || dirty {
		return escalate(
			"the base repository has uncommitted changes",
			"commit or stash them before spawning agents",
		)
	}
	count, err := m.git.CommitCount()
	if err != nil || count == 0 {
		return escalate(
			"the base repository has no commits; worktrees need a branch point",
			"create an initial commit first",
		)
	}
	return nil
}

// WaitResult is the outcome of a Wait call.
type WaitResult struct {
	// TimedOut is true if the deadline passed; the agent keeps running.
	TimedOut bool
	// AgentDied is true if the process exited without writing a sentinel.
	AgentDied bool
	// Result is the sentinel outcome, when one appeared.
	Result models.ResultStatus
	// Sentinel is the full descriptor, when one appeared.
	Sentinel *Sentinel
}

// Wait blocks until the task's agent writes its completion sentinel, the
// timeout passes, or the context ends. A timeout never kills the agent.
func (m *Machine) Wait(ctx context.Context, taskID string, timeout time.Duration) (WaitResult, error) {
	rec, err := m.records.Get(taskID)
	if err != nil {
		return WaitResult{}, fmt.Errorf("wait for %s: %w", taskID, err)
	}

	sentinelPath := m.haven.SentinelPath(models.NormalizeID(taskID))

	if rec.Status == models.AgentStatusCompleted {
		s, err := ReadSentinel(sentinelPath)
		if err != nil {
			return WaitResult{Result: rec.Result}, nil
		}
		return WaitResult{Result: s.Status, Sentinel: s}, nil
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		waitCtx, cancelTimeout = context.WithTimeout(waitCtx, timeout)
		defer cancelTimeout()
	}

	// A crashed agent never writes its sentinel. Watch the process and
	// stop waiting the moment it disappears, so an unbounded wait cannot
	// hang on a dead agent.
	if rec.Status.Live() {
		go func(pid int) {
			ticker := time.NewTicker(m.opts.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-waitCtx.Done():
					return
				case <-ticker.C:
					if !m.launcher.Alive(pid) {
						cancel()
						return
					}
				}
			}
		}(rec.PID)
	}

	found, err := WaitForSentinel(waitCtx, sentinelPath, m.opts.PollInterval)
	if err != nil {
		return WaitResult{}, err
	}
	if !found {
		if rec.Status.Live() && !m.launcher.Alive(rec.PID) {
			now := time.Now().UTC()
			rec.Status = models.AgentStatusError
			rec.EndedAt = &now
			if err := m.records.Put(rec); err != nil {
				return WaitResult{}, err
			}
			return WaitResult{AgentDied: true}, nil
		}
		return WaitResult{TimedOut: true}, nil
	}

	s, err := ReadSentinel(sentinelPath)
	if err != nil {
		return WaitResult{}, err
	}

	now := time.Now().UTC()
	rec.Status = models.AgentStatusCompleted
	rec.Result = s.Status
	rec.EndedAt = &now
	if err := m.records.Put(rec); err != nil {
		return WaitResult{}, err
	}

	m.publish(events.AgentCompleted, rec, fmt.Sprintf("agent finished with result %s", s.Status), nil)
	return WaitResult{Result: s.Status, Sentinel: s}, nil
}

// ReapOptions configures a Reap call.
type ReapOptions struct {
	// NonBlocking refuses to wait for a still-running agent.
	NonBlocking bool
	// KeepWorktree leaves the worktree and branch in place after merging.
	KeepWorktree bool
	// Timeout bounds the implicit wait on a running agent.
	Timeout time.Duration
}

// ReapResult reports what a Reap call did.
type ReapResult struct {
	// AlreadyReaped is true for the idempotent repeat call.
	AlreadyReaped bool
	// Merged is true if the agent's work landed on the parent branch.
	Merged bool
	// TaskStatus is the task's status after the reap.
	TaskStatus models.Status
	// Cascade reports parent transitions performed by the cascade engine.
	Cascade cascade.Result
}

// Reap collects a finished agent: reads its result, merges its work per
// the configured strategy, advances the task status through the cascade
// engine, and marks the record reaped. Conflicts block the task and come
// back as an escalation; they are never auto-resolved. Reaping an
// already-reaped task is a no-op success.
func (m *Machine) Reap(ctx context.Context, taskID string, opts ReapOptions) (ReapResult, *Escalation, error) {
	rec, err := m.records.Get(taskID)
	if err != nil {
		return ReapResult{}, nil, fmt.Errorf("reap %s: %w", taskID, err)
	}

	if rec.Status == models.AgentStatusReaped {
		return ReapResult{AlreadyReaped: true}, nil, nil
	}
	if rec.Status == models.AgentStatusKilled || rec.Status == models.AgentStatusRejected {
		return ReapResult{}, escalate(
			fmt.Sprintf("the agent for %s was %s; there is nothing to merge", taskID, rec.Status),
			fmt.Sprintf("clear the record: armada clear %s", taskID),
		), nil
	}

	if rec.Status.Live() {
		if m.launcher.Alive(rec.PID) && opts.NonBlocking {
			return ReapResult{}, escalate(
				fmt.Sprintf("the agent for %s is still running (pid %d)", taskID, rec.PID),
				fmt.Sprintf("wait for it: armada wait %s", taskID),
				fmt.Sprintf("or stop it: armada kill %s", taskID),
			), nil
		}

		result, err := m.Wait(ctx, taskID, opts.Timeout)
		if err != nil {
			return ReapResult{}, nil, err
		}
		if result.TimedOut {
			return ReapResult{}, escalate(
				fmt.Sprintf("the agent for %s did not finish within the wait deadline", taskID),
				fmt.Sprintf("wait longer: armada wait %s", taskID),
				fmt.Sprintf("or stop it: armada kill %s", taskID),
			), nil
		}
		if result.AgentDied {
			return ReapResult{}, escalate(
				fmt.Sprintf("the agent for %s exited without reporting a result", taskID),
				fmt.Sprintf("inspect its log: armada status %s", taskID),
				fmt.Sprintf("discard the attempt: armada reject %s", taskID),
			), nil
		}

		rec, err = m.records.Get(taskID)
		if err != nil {
			return ReapResult{}, nil, fmt.Errorf("reap %s: %w", taskID, err)
		}
	}

	if rec.Result == "" {
		s, err := ReadSentinel(m.haven.SentinelPath(models.NormalizeID(taskID)))
		if err != nil {
			return ReapResult{}, escalate(
				fmt.Sprintf("the agent for %s left no readable result", taskID),
				fmt.Sprintf("discard the attempt: armada reject %s", taskID),
			), nil
		}
		rec.Result = s.Status
	}

	var result ReapResult

	if rec.Worktree != nil {
		if err := m.isolator.VerifyWorktree(rec.Worktree); err != nil {
			return ReapResult{}, nil, err
		}

		mergeResult, err := m.isolator.MergeWork(rec.Worktree, taskID, m.opts.MergeStrategy)
		if err != nil {
			if errors.Is(err, isolation.ErrMergeConflicts) {
				if uerr := m.repo.UpdateTaskStatus(taskID, models.StatusBlocked); uerr != nil {
					return ReapResult{}, nil, uerr
				}
				return ReapResult{TaskStatus: models.StatusBlocked}, conflictEscalation(taskID, rec.Worktree, mergeResult.Conflicts), nil
			}
			return ReapResult{}, nil, err
		}
		result.Merged = mergeResult.Merged

		if !opts.KeepWorktree {
			if err := m.isolator.CleanupWorktree(rec.Worktree); err != nil {
				return result, nil, err
			}
			rec.Worktree = nil
		}
	}

	task, err := m.repo.GetTask(taskID)
	if err != nil {
		return result, nil, err
	}

	status := models.StatusBlocked
	if rec.Result == models.ResultCompleted {
		status = models.StatusDone
	}
	if err := m.repo.UpdateTaskStatus(task.ID, status); err != nil {
		return result, nil, err
	}
	task.Status = status
	result.TaskStatus = status

	if status == models.StatusDone {
		cascadeResult, err := m.cascade.CascadeTaskCompletion(task)
		if err != nil {
			return result, nil, err
		}
		result.Cascade = cascadeResult
		if err := m.promoteCompletedLevels(task, cascadeResult); err != nil {
			return result, nil, err
		}
	}

	rec.Status = models.AgentStatusReaped
	rec.PID = 0
	if err := m.records.Put(rec); err != nil {
		return result, nil, err
	}

	m.publish(events.AgentReaped, rec, fmt.Sprintf("task %s reaped as %s", taskID, status), nil)
	return result, nil, nil
}

// promoteCompletedLevels pushes a finished epic's or PRD's branch one
// level up once the cascade declares it auto-done. Only meaningful when
// the strategy keeps branches at that level.
func (m *Machine) promoteCompletedLevels(task *models.Task, res cascade.Result) error {
	if !m.opts.WorktreeMode || m.opts.Branching == isolation.StrategyFlat {
		return nil
	}
	isoCtx := isolation.Context{PrdID: task.PrdID, EpicID: task.EpicID, Strategy: m.opts.Branching}

	if res.EpicAutoDone && task.EpicID != "" {
		if err := m.isolator.SyncUpwardHierarchy("epic", isoCtx); err != nil {
			return fmt.Errorf("promote epic %s: %w", task.EpicID, err)
		}
	}
	if res.PrdAutoDone && m.opts.Branching == isolation.StrategyPRD && task.PrdID != "" {
		if err := m.isolator.SyncUpwardHierarchy("prd", isoCtx); err != nil {
			return fmt.Errorf("promote prd %s: %w", task.PrdID, err)
		}
	}
	return nil
}

// conflictEscalation builds the manual-resolution escalation for a
// refused merge.
func conflictEscalation(taskID string, ref *models.WorktreeRef, report isolation.ConflictReport) *Escalation {
	return escalate(
		fmt.Sprintf("merging %s into %s would conflict in: %s",
			ref.Branch, ref.BaseBranch, strings.Join(report.Files, ", ")),
		fmt.Sprintf("git checkout %s", ref.BaseBranch),
		fmt.Sprintf("git merge %s", ref.Branch),
		"resolve the conflicts and commit",
		fmt.Sprintf("then retry: armada reap %s", taskID),
	)
}

// Kill terminates the task's agent: SIGTERM, a grace period, then
// SIGKILL. A pid that already exited is success, not an error.
func (m *Machine) Kill(taskID string) (*Escalation, error) {
	rec, err := m.records.Get(taskID)
	if err != nil {
		return nil, fmt.Errorf("kill %s: %w", taskID, err)
	}

	if rec.Status == models.AgentStatusKilled {
		return nil, nil
	}
	if rec.Status.Terminal() {
		return escalate(
			fmt.Sprintf("the agent for %s is already %s", taskID, rec.Status),
			fmt.Sprintf("clear the record: armada clear %s", taskID),
		), nil
	}

	if rec.PID > 0 {
		if err := m.launcher.Terminate(rec.PID, m.opts.KillGrace); err != nil {
			return nil, fmt.Errorf("kill %s: %w", taskID, err)
		}
	}

	now := time.Now().UTC()
	rec.Status = models.AgentStatusKilled
	rec.PID = 0
	rec.EndedAt = &now
	if err := m.records.Put(rec); err != nil {
		return nil, err
	}

	m.publish(events.AgentKilled, rec, fmt.Sprintf("agent for %s killed", taskID), nil)
	return nil, nil
}

// Reject abandons an agent's work without merging: the process is
// stopped if needed, the worktree is discarded, and the record is marked
// rejected.
func (m *Machine) Reject(taskID, reason string) error {
	rec, err := m.records.Get(taskID)
	if err != nil {
		return fmt.Errorf("reject %s: %w", taskID, err)
	}

	if rec.Status.Live() && m.launcher.Alive(rec.PID) {
		if err := m.launcher.Terminate(rec.PID, m.opts.KillGrace); err != nil {
			return fmt.Errorf("reject %s: %w", taskID, err)
		}
	}

	if rec.Worktree != nil {
		if err := m.isolator.CleanupWorktree(rec.Worktree); err != nil {
			return fmt.Errorf("reject %s: %w", taskID, err)
		}
		rec.Worktree = nil
	}

	now := time.Now().UTC()
	rec.Status = models.AgentStatusRejected
	rec.PID = 0
	rec.EndedAt = &now
	if err := m.records.Put(rec); err != nil {
		return err
	}

	message := fmt.Sprintf("work on %s rejected", taskID)
	if reason != "" {
		message += ": " + reason
	}
	m.publish(events.AgentRejected, rec, message, nil)
	return nil
}

// Clear deletes the task's agent record, returning it to absent. A task
// with a live agent must be killed first. Clearing an absent record is a
// no-op.
func (m *Machine) Clear(taskID string) (*Escalation, error) {
	rec, err := m.records.Get(taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("clear %s: %w", taskID, err)
	}

	if rec.Status.Live() && m.launcher.Alive(rec.PID) {
		return escalate(
			fmt.Sprintf("the agent for %s is still running (pid %d)", taskID, rec.PID),
			fmt.Sprintf("stop it first: armada kill %s", taskID),
		), nil
	}

	if err := m.records.Delete(taskID); err != nil {
		return nil, err
	}
	return nil, nil
}

// Status returns the task's record with liveness re-verified: a spawned
// record whose process is confirmed alive is promoted to running, and a
// live record whose process is gone is demoted to error.
func (m *Machine) Status(taskID string) (*models.AgentRecord, error) {
	rec, err := m.records.Get(taskID)
	if err != nil {
		return nil, err
	}

	if rec.Status.Live() {
		if m.launcher.Alive(rec.PID) {
			if rec.Status == models.AgentStatusSpawned {
				rec.Status = models.AgentStatusRunning
				if err := m.records.Put(rec); err != nil {
					return nil, err
				}
			}
		} else {
			now := time.Now().UTC()
			rec.Status = models.AgentStatusError
			rec.EndedAt = &now
			if err := m.records.Put(rec); err != nil {
				return nil, err
			}
		}
	}
	return rec, nil
}

// RecoverStaleRecords scans for live-status records whose process is
// gone, marks them errored, and returns them. Run at startup so a crash
// of the orchestrator does not leave phantom agents behind.
func (m *Machine) RecoverStaleRecords() ([]*models.AgentRecord, error) {
	records, err := m.records.List()
	if err != nil {
		return nil, err
	}

	var stale []*models.AgentRecord
	for _, rec := range records {
		if !rec.Status.Live() || m.launcher.Alive(rec.PID) {
			continue
		}
		now := time.Now().UTC()
		rec.Status = models.AgentStatusError
		rec.EndedAt = &now
		if err := m.records.Put(rec); err != nil {
			return stale, err
		}
		stale = append(stale, rec)
	}
	return stale, nil
}

func (m *Machine) publish(typ events.Type, rec *models.AgentRecord, message string, err error) {
	if m.bus == nil {
		return
	}
	branch := ""
	if rec.Worktree != nil {
		branch = rec.Worktree.Branch
	}
	m.bus.Publish(events.Event{
		Type:    typ,
		TaskID:  rec.TaskID,
		AgentID: rec.AgentID,
		Message: message,
		Branch:  branch,
		Err:     err,
	})
}
