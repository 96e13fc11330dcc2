package exec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// OSLauncher implements Launcher using os/exec and POSIX signals.
type OSLauncher struct {
	// pollInterval is how often Terminate re-checks liveness during grace.
	pollInterval time.Duration
}

// NewLauncher creates a launcher with the default liveness poll interval.
func NewLauncher() *OSLauncher {
	return &OSLauncher{pollInterval: 100 * time.Millisecond}
}

// Start launches the subprocess detached and returns its pid.
func (l *OSLauncher) Start(spec LaunchSpec) (int, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	cmd.Env = append(os.Environ(), spec.Env...)

	if spec.LogPath != "" {
		logFile, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return 0, fmt.Errorf("open agent log %s: %w", spec.LogPath, err)
		}
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		defer logFile.Close()
	}

	// Own process group so a later Terminate doesn't hit the orchestrator.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", spec.Command, err)
	}

	pid := cmd.Process.Pid

	// Reap the child in the background so it never becomes a zombie.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// Alive reports whether the pid refers to a live process.
func (l *OSLauncher) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}

// Terminate sends SIGTERM, waits up to grace, then escalates to SIGKILL.
// An already-dead process is treated as success.
func (l *OSLauncher) Terminate(pid int, grace time.Duration) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if processGone(err) {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !l.Alive(pid) {
			return nil
		}
		time.Sleep(l.pollInterval)
	}

	if err := proc.Signal(syscall.SIGKILL); err != nil && !processGone(err) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

// processGone returns true for errors meaning the process no longer exists.
func processGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}

// Verify OSLauncher implements Launcher at compile time.
var _ Launcher = (*OSLauncher)(nil)
