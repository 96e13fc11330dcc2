// Package config handles configuration loading for armada. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/dhaslem/armada/internal/isolation"
)

// Config holds all configuration for armada.
type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Git      GitConfig      `mapstructure:"git"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	TUI      TUIConfig      `mapstructure:"tui"`
}

// AgentConfig holds subprocess launch settings.
type AgentConfig struct {
	// Command is the executable launched per task.
	Command string `mapstructure:"command"`
	// Args are passed ahead of the mission descriptor path.
	Args []string `mapstructure:"args"`
}

// GitConfig holds isolation and merge settings.
type GitConfig struct {
	// MainBranch is the repository's main branch name.
	MainBranch string `mapstructure:"main_branch"`
	// Branching selects the branch hierarchy strategy: flat, epic, prd.
	Branching string `mapstructure:"branching"`
	// MergeStrategy selects how reaped work lands: merge, squash, rebase.
	MergeStrategy string `mapstructure:"merge_strategy"`
	// SyncParent refreshes the task's parent branch before spawn.
	SyncParent bool `mapstructure:"sync_parent"`
	// Worktrees isolates each agent in its own worktree.
	Worktrees bool `mapstructure:"worktrees"`
}

// TimeoutsConfig holds polling and termination timing.
type TimeoutsConfig struct {
	// Poll is the sentinel polling cadence.
	Poll time.Duration `mapstructure:"poll"`
	// KillGrace is how long SIGTERM gets before SIGKILL.
	KillGrace time.Duration `mapstructure:"kill_grace"`
	// Wait is the default wait deadline; zero waits forever.
	Wait time.Duration `mapstructure:"wait"`
}

// TUIConfig holds dashboard display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Validate checks that enum-valued settings hold known values.
func (c *Config) Validate() error {
	if !isolation.Strategy(c.Git.Branching).Valid() {
		return fmt.Errorf("unknown branching strategy %q", c.Git.Branching)
	}
	if !isolation.MergeStrategy(c.Git.MergeStrategy).Valid() {
		return fmt.Errorf("unknown merge strategy %q", c.Git.MergeStrategy)
	}
	return nil
}

// Load loads configuration with the following precedence, highest first:
// environment variables (ARMADA_*), project config (.armada/config.yaml
// in the current directory or a parent), user config
// (~/.config/armada/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ARMADA")
	v.AutomaticEnv()
	v.BindEnv("agent.command", "ARMADA_AGENT_COMMAND")
	v.BindEnv("git.branching", "ARMADA_BRANCHING")
	v.BindEnv("git.merge_strategy", "ARMADA_MERGE_STRATEGY")
	v.BindEnv("git.main_branch", "ARMADA_MAIN_BRANCH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("agent.command", cfg.Agent.Command)
	v.Set("agent.args", cfg.Agent.Args)
	v.Set("git.main_branch", cfg.Git.MainBranch)
	v.Set("git.branching", cfg.Git.Branching)
	v.Set("git.merge_strategy", cfg.Git.MergeStrategy)
	v.Set("git.sync_parent", cfg.Git.SyncParent)
	v.Set("git.worktrees", cfg.Git.Worktrees)
	v.Set("timeouts.poll", cfg.Timeouts.Poll.String())
	v.Set("timeouts.kill_grace", cfg.Timeouts.KillGrace.String())
	v.Set("timeouts.wait", cfg.Timeouts.Wait.String())
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.command", "agent")
	v.SetDefault("agent.args", []string{})

	v.SetDefault("git.main_branch", "main")
	v.SetDefault("git.branching", "flat")
	v.SetDefault("git.merge_strategy", "merge")
	v.SetDefault("git.sync_parent", true)
	v.SetDefault("git.worktrees", true)

	v.SetDefault("timeouts.poll", "1s")
	v.SetDefault("timeouts.kill_grace", "10s")
	v.SetDefault("timeouts.wait", "0s")

	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for armada.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "armada")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "armada")
	}
	return filepath.Join(home, ".config", "armada")
}

// findProjectConfig searches for .armada/config.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".armada", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Command: "agent",
		},
		Git: GitConfig{
			MainBranch:    "main",
			Branching:     "flat",
			MergeStrategy: "merge",
			SyncParent:    true,
			Worktrees:     true,
		},
		Timeouts: TimeoutsConfig{
			Poll:      time.Second,
			KillGrace: 10 * time.Second,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
