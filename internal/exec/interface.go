// Package exec provides command execution and subprocess lifecycle control.
package exec

import (
	"context"
	"time"
)

// CommandRunner defines the interface for running external commands to
// completion. This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a shell command through "sh -c".
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)
}

// LaunchSpec describes a subprocess to start.
type LaunchSpec struct {
	// Command is the executable to run.
	Command string
	// Args are the command arguments.
	Args []string
	// Dir is the working directory.
	Dir string
	// Env is appended to the parent environment.
	Env []string
	// LogPath, if set, receives the subprocess's combined output.
	LogPath string
}

// Launcher starts detached subprocesses and controls them by pid.
// Whether execution is sandboxed is the launcher's concern, not the
// orchestrator's.
type Launcher interface {
	// Start launches the subprocess and returns its pid. The process
	// outlives the caller; it is not waited on.
	Start(spec LaunchSpec) (pid int, err error)

	// Alive reports whether the pid refers to a live process, verified by
	// signaling it. Never answered from cached state.
	Alive(pid int) bool

	// Terminate sends SIGTERM, waits up to grace for the process to exit,
	// then escalates to SIGKILL. Signaling an already-dead process is
	// success, not an error.
	Terminate(pid int, grace time.Duration) error
}
