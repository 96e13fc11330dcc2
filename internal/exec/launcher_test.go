package exec

import (
	"testing"
	"time"
)

func TestAliveNonPositivePid(t *testing.T) {
	l := NewLauncher()
	if l.Alive(0) || l.Alive(-1) {
		t.Error("non-positive pids must never report alive")
	}
}

func TestTerminateDeadPidIsSuccess(t *testing.T) {
	l := NewLauncher()
	// Pid 1 is init and unsignalable from an unprivileged test; a huge pid
	// is simply gone. Either way Terminate must not return an error for a
	// process it cannot find.
	if err := l.Terminate(999999999, 10*time.Millisecond); err != nil {
		t.Errorf("terminate of nonexistent pid should be success, got %v", err)
	}
}

func TestStartAndTerminate(t *testing.T) {
	l := NewLauncher()
	pid, err := l.Start(LaunchSpec{Command: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !l.Alive(pid) {
		t.Fatal("expected freshly started process to be alive")
	}
	if err := l.Terminate(pid, 2*time.Second); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	// Give the background reaper a moment.
	deadline := time.Now().Add(2 * time.Second)
	for l.Alive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if l.Alive(pid) {
		t.Error("process still alive after terminate")
	}
}
