package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/dhaslem/armada/internal/exec"
	"github.com/dhaslem/armada/internal/git"
	"github.com/dhaslem/armada/internal/isolation"
	"github.com/dhaslem/armada/internal/store"
	"github.com/dhaslem/armada/pkg/models"
)

// fakeStore is an in-memory RecordStore.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*models.AgentRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.AgentRecord)}
}

func (s *fakeStore) Get(taskID string) (*models.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[models.NormalizeID(taskID)]; ok {
		clone := *rec
		return &clone, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) Put(rec *models.AgentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.records[models.NormalizeID(rec.TaskID)] = &clone
	return nil
}

func (s *fakeStore) Delete(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, models.NormalizeID(taskID))
	return nil
}

func (s *fakeStore) List() ([]*models.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AgentRecord
	for _, rec := range s.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

var _ store.RecordStore = (*fakeStore)(nil)

// failingStore wraps a fakeStore so Get fails like a broken disk would.
type failingStore struct {
	*fakeStore
	getErr error
}

func (s *failingStore) Get(taskID string) (*models.AgentRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.fakeStore.Get(taskID)
}

var _ store.RecordStore = (*failingStore)(nil)

// fakeLauncher controls subprocess liveness without real processes.
type fakeLauncher struct {
	nextPid    int
	alive      map[int]bool
	terminated []int
	startErr   error
	lastSpec   exec.LaunchSpec
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPid: 1000, alive: make(map[int]bool)}
}

func (l *fakeLauncher) Start(spec exec.LaunchSpec) (int, error) {
	if l.startErr != nil {
		return 0, l.startErr
	}
	l.nextPid++
	l.alive[l.nextPid] = true
	l.lastSpec = spec
	return l.nextPid, nil
}

func (l *fakeLauncher) Alive(pid int) bool { return l.alive[pid] }

func (l *fakeLauncher) Terminate(pid int, grace time.Duration) error {
	l.terminated = append(l.terminated, pid)
	delete(l.alive, pid)
	return nil
}

var _ exec.Launcher = (*fakeLauncher)(nil)

// fakeIsolator records isolation calls and hands out synthetic worktrees.
type fakeIsolator struct {
	calls        []string
	worktreeBase string
	mergeResult  isolation.MergeResult
	mergeErr     error
}

func (f *fakeIsolator) EnsureBranchHierarchy(ctx isolation.Context) error {
	f.calls = append(f.calls, "ensure")
	return nil
}

func (f *fakeIsolator) SyncParentBranch(ctx isolation.Context) error {
	f.calls = append(f.calls, "sync")
	return nil
}

func (f *fakeIsolator) CreateWorktree(taskID string, ctx isolation.Context) (*models.WorktreeRef, error) {
	f.calls = append(f.calls, "create "+taskID)
	return &models.WorktreeRef{
		Path:       f.worktreeBase + "/" + taskID,
		Branch:     isolation.TaskBranch(taskID),
		BaseBranch: "main",
	}, nil
}

func (f *fakeIsolator) CleanupWorktree(ref *models.WorktreeRef) error {
	f.calls = append(f.calls, "cleanup "+ref.Branch)
	return nil
}

func (f *fakeIsolator) MergeWork(ref *models.WorktreeRef, taskID string, strategy isolation.MergeStrategy) (isolation.MergeResult, error) {
	f.calls = append(f.calls, fmt.Sprintf("merge %s %s", taskID, strategy))
	return f.mergeResult, f.mergeErr
}

func (f *fakeIsolator) SyncUpwardHierarchy(level string, ctx isolation.Context) error {
	f.calls = append(f.calls, "promote "+level)
	return nil
}

func (f *fakeIsolator) VerifyWorktree(ref *models.WorktreeRef) error {
	return nil
}

var _ Isolator = (*fakeIsolator)(nil)

// fakeArtefacts is an in-memory artefact repository.
type fakeArtefacts struct {
	tasks map[string]*models.Task
	epics map[string]*models.Epic
	prds  map[string]*models.PRD
}

func newFakeArtefacts() *fakeArtefacts {
	return &fakeArtefacts{
		tasks: make(map[string]*models.Task),
		epics: make(map[string]*models.Epic),
		prds:  make(map[string]*models.PRD),
	}
}

func (r *fakeArtefacts) GetTask(id string) (*models.Task, error) {
	if t, ok := r.tasks[models.NormalizeID(id)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("task %s not found", id)
}

func (r *fakeArtefacts) GetEpic(id string) (*models.Epic, error) {
	if e, ok := r.epics[models.NormalizeID(id)]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("epic %s not found", id)
}

func (r *fakeArtefacts) GetPrd(id string) (*models.PRD, error) {
	if p, ok := r.prds[models.NormalizeID(id)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prd %s not found", id)
}

func (r *fakeArtefacts) TasksForEpic(epicID string) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range r.tasks {
		if t.EpicID == epicID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeArtefacts) EpicsForPrd(prdID string) ([]*models.Epic, error) {
	var out []*models.Epic
	for _, e := range r.epics {
		if e.PrdID == prdID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeArtefacts) UpdateTaskStatus(id string, status models.Status) error {
	t, err := r.GetTask(id)
	if err != nil {
		return err
	}
	t.Status = status
	return nil
}

func (r *fakeArtefacts) UpdateEpicStatus(id string, status models.Status) error {
	e, err := r.GetEpic(id)
	if err != nil {
		return err
	}
	e.Status = status
	return nil
}

func (r *fakeArtefacts) UpdatePrdStatus(id string, status models.Status) error {
	p, err := r.GetPrd(id)
	if err != nil {
		return err
	}
	p.Status = status
	return nil
}

// fakeRepoGit fakes the repository precondition checks. The embedded
// interface panics on anything the machine should not be calling.
type fakeRepoGit struct {
	git.Runner
	path        string
	isRepo      bool
	dirty       bool
	commitCount int
}

func (g *fakeRepoGit) IsRepo() bool              { return g.isRepo }
func (g *fakeRepoGit) HasChanges() (bool, error) { return g.dirty, nil }
func (g *fakeRepoGit) CommitCount() (int, error) { return g.commitCount, nil }
func (g *fakeRepoGit) Path() string              { return g.path }
