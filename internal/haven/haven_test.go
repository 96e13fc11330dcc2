package haven

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureCreatesLayout(t *testing.T) {
	root := t.TempDir()
	h := New(root)

	if err := h.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	for _, dir := range []string{h.Root(), h.SentinelDir(), h.MissionDir(), h.LogDir(), h.WorktreeDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", dir)
		}
	}
}

func TestPathsAreUnderHavenRoot(t *testing.T) {
	h := New("/project")

	paths := []string{
		h.RecordDBPath(),
		h.BacklogPath(),
		h.SentinelPath("t1"),
		h.MissionPath("t1"),
		h.AgentLogPath("t1"),
		h.WorktreePath("t1"),
	}
	want := filepath.Join("/project", DirName)
	for _, p := range paths {
		if !strings.HasPrefix(p, want) {
			t.Errorf("expected %s under %s", p, want)
		}
	}
}

func TestSentinelPathPerTask(t *testing.T) {
	h := New("/project")
	if h.SentinelPath("a") == h.SentinelPath("b") {
		t.Error("sentinel paths must be distinct per task")
	}
}
