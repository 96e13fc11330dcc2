// Package artefacts provides the file-backed backlog: the PRD, epic, and
// task snapshot the graph and cascade layers operate on.
package artefacts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dhaslem/armada/internal/cascade"
	"github.com/dhaslem/armada/pkg/models"
)

// ErrNotFound is returned when a requested artefact does not exist.
var ErrNotFound = errors.New("artefact not found")

// backlogFile is the on-disk YAML shape of the backlog.
type backlogFile struct {
	Prds  []*models.PRD  `yaml:"prds,omitempty"`
	Epics []*models.Epic `yaml:"epics,omitempty"`
	Tasks []*models.Task `yaml:"tasks,omitempty"`
}

// Backlog is the YAML-file-backed artefact repository. It is constructed
// once per process and passed by reference wherever artefact data is
// needed; there is no implicit global index. Status updates are written
// through to disk immediately.
type Backlog struct {
	path  string
	mu    sync.RWMutex
	prds  map[string]*models.PRD
	epics map[string]*models.Epic
	tasks map[string]*models.Task
}

// Load reads the backlog file. A missing file yields an empty backlog.
func Load(path string) (*Backlog, error) {
	b := &Backlog{
		path:  path,
		prds:  make(map[string]*models.PRD),
		epics: make(map[string]*models.Epic),
		tasks: make(map[string]*models.Task),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("read backlog %s: %w", path, err)
	}

	var file backlogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse backlog %s: %w", path, err)
	}

	for _, p := range file.Prds {
		b.prds[models.NormalizeID(p.ID)] = p
	}
	for _, e := range file.Epics {
		b.epics[models.NormalizeID(e.ID)] = e
	}
	for _, t := range file.Tasks {
		b.tasks[models.NormalizeID(t.ID)] = t
	}
	return b, nil
}

// Path returns the backing file path.
func (b *Backlog) Path() string {
	return b.path
}

// save writes the backlog back to disk in a stable order. Caller holds
// the write lock.
func (b *Backlog) save() error {
	var file backlogFile
	for _, p := range b.prds {
		file.Prds = append(file.Prds, p)
	}
	for _, e := range b.epics {
		file.Epics = append(file.Epics, e)
	}
	for _, t := range b.tasks {
		file.Tasks = append(file.Tasks, t)
	}
	sort.Slice(file.Prds, func(i, j int) bool { return file.Prds[i].ID < file.Prds[j].ID })
	sort.Slice(file.Epics, func(i, j int) bool { return file.Epics[i].ID < file.Epics[j].ID })
	sort.Slice(file.Tasks, func(i, j int) bool { return file.Tasks[i].ID < file.Tasks[j].ID })

	raw, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("encode backlog: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write backlog: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace backlog: %w", err)
	}
	return nil
}

// GetTask returns the task for the id, or ErrNotFound.
func (b *Backlog) GetTask(id string) (*models.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if t, ok := b.tasks[models.NormalizeID(id)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
}

// GetEpic returns the epic for the id, or ErrNotFound.
func (b *Backlog) GetEpic(id string) (*models.Epic, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.epics[models.NormalizeID(id)]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("epic %s: %w", id, ErrNotFound)
}

// GetPrd returns the PRD for the id, or ErrNotFound.
func (b *Backlog) GetPrd(id string) (*models.PRD, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if p, ok := b.prds[models.NormalizeID(id)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prd %s: %w", id, ErrNotFound)
}

// Tasks returns every task, sorted by id.
func (b *Backlog) Tasks() []*models.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Prds returns every PRD, sorted by id.
func (b *Backlog) Prds() []*models.PRD {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.PRD, 0, len(b.prds))
	for _, p := range b.prds {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Epics returns every epic, sorted by id.
func (b *Backlog) Epics() []*models.Epic {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Epic, 0, len(b.epics))
	for _, e := range b.epics {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TasksForEpic returns every task under the epic, sorted by id.
func (b *Backlog) TasksForEpic(epicID string) ([]*models.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	key := models.NormalizeID(epicID)
	var out []*models.Task
	for _, t := range b.tasks {
		if models.NormalizeID(t.EpicID) == key {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EpicsForPrd returns every epic under the PRD, sorted by id.
func (b *Backlog) EpicsForPrd(prdID string) ([]*models.Epic, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	key := models.NormalizeID(prdID)
	var out []*models.Epic
	for _, e := range b.epics {
		if models.NormalizeID(e.PrdID) == key {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateTaskStatus persists a task status change.
func (b *Backlog) UpdateTaskStatus(id string, status models.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[models.NormalizeID(id)]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if t.Status == status {
		return nil
	}
	t.Status = status
	return b.save()
}

// UpdateEpicStatus persists an epic status change.
func (b *Backlog) UpdateEpicStatus(id string, status models.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.epics[models.NormalizeID(id)]
	if !ok {
		return fmt.Errorf("epic %s: %w", id, ErrNotFound)
	}
	if e.Status == status {
		return nil
	}
	e.Status = status
	return b.save()
}

// UpdatePrdStatus persists a PRD status change.
func (b *Backlog) UpdatePrdStatus(id string, status models.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.prds[models.NormalizeID(id)]
	if !ok {
		return fmt.Errorf("prd %s: %w", id, ErrNotFound)
	}
	if p.Status == status {
		return nil
	}
	p.Status = status
	return b.save()
}

// Verify Backlog satisfies the cascade repository contract.
var _ cascade.ArtefactRepository = (*Backlog)(nil)
