package lifecycle

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dhaslem/armada/pkg/models"
)

// Mission is the descriptor handed to an agent subprocess: everything it
// needs to know about its assignment and where to report back.
type Mission struct {
	// TaskID is the task the agent is assigned.
	TaskID string `yaml:"task_id"`
	// AgentID is the id assigned at spawn.
	AgentID string `yaml:"agent_id"`
	// Title is the task's short description.
	Title string `yaml:"title,omitempty"`
	// Branch is the task branch the agent works on, if isolated.
	Branch string `yaml:"branch,omitempty"`
	// WorkDir is the directory the agent runs in.
	WorkDir string `yaml:"work_dir"`
	// SentinelPath is where the agent must write its result descriptor.
	SentinelPath string `yaml:"sentinel_path"`
	// LogPath is where the agent's output is captured.
	LogPath string `yaml:"log_path"`
	// BlockedBy lists the dependency task ids, for the agent's context.
	BlockedBy []string `yaml:"blocked_by,omitempty"`
	// CreatedAt is when the mission was issued.
	CreatedAt time.Time `yaml:"created_at"`
}

// NewMission builds the descriptor for a task assignment.
func NewMission(task *models.Task, agentID, workDir, branch, sentinelPath, logPath string) *Mission {
	return &Mission{
		TaskID:       task.ID,
		AgentID:      agentID,
		Title:        task.Title,
		Branch:       branch,
		WorkDir:      workDir,
		SentinelPath: sentinelPath,
		LogPath:      logPath,
		BlockedBy:    task.BlockedBy,
		CreatedAt:    time.Now().UTC(),
	}
}

// Write serializes the mission to path as YAML.
func (m *Mission) Write(path string) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mission %s: %w", m.TaskID, err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write mission %s: %w", m.TaskID, err)
	}
	return nil
}

// LoadMission reads a mission descriptor back from path.
func LoadMission(path string) (*Mission, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission %s: %w", path, err)
	}
	var m Mission
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse mission %s: %w", path, err)
	}
	return &m, nil
}
