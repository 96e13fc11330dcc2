package isolation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dhaslem/armada/internal/git"
)

// ConflictReport is the outcome of a non-mutating conflict probe.
type ConflictReport struct {
	// HasConflicts is true if merging source into target would conflict.
	HasConflicts bool
	// Files lists the conflicting paths, sorted and deduplicated.
	Files []string
}

// ConflictDetector probes whether two branches would conflict on merge.
// Abstracting the git merge-tree mechanism keeps the lifecycle machine
// independent of the version-control backend.
type ConflictDetector interface {
	// DetectConflicts probes target vs source with zero side effects.
	DetectConflicts(target, source string) (ConflictReport, error)
}

// MergeTreeDetector implements ConflictDetector with git's merge-tree
// dry run: compute the merge base, run the three-way comparison, and look
// for conflict markers in the output. Nothing is ever written.
type MergeTreeDetector struct {
	git git.Runner
}

// NewMergeTreeDetector creates a detector over the given git runner.
func NewMergeTreeDetector(g git.Runner) *MergeTreeDetector {
	return &MergeTreeDetector{git: g}
}

// fileHeaderRe matches merge-tree entry headers, e.g.
// "  our    100644 9daeafb task.go".
var fileHeaderRe = regexp.MustCompile(`^\s+(?:base|our|their|result)\s+\d{6}\s+[0-9a-f]+\s+(.+)$`)

// DetectConflicts probes target vs source with zero side effects.
func (d *MergeTreeDetector) DetectConflicts(target, source string) (ConflictReport, error) {
	base, err := d.git.MergeBase(target, source)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("merge base of %s and %s: %w", target, source, err)
	}

	out, err := d.git.MergeTree(base, target, source)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("merge-tree probe %s vs %s: %w", target, source, err)
	}

	files := parseConflictFiles(out)
	return ConflictReport{HasConflicts: len(files) > 0, Files: files}, nil
}

// parseConflictFiles extracts the paths whose merged content contains
// conflict markers from raw merge-tree output.
func parseConflictFiles(out string) []string {
	conflicted := make(map[string]bool)
	currentFile := ""

	for _, line := range strings.Split(out, "\n") {
		if m := fileHeaderRe.FindStringSubmatch(line); m != nil {
			currentFile = m[1]
			continue
		}
		trimmed := strings.TrimPrefix(line, "+")
		if strings.HasPrefix(trimmed, "<<<<<<<") && currentFile != "" {
			conflicted[currentFile] = true
		}
	}

	if len(conflicted) == 0 {
		return nil
	}
	files := make([]string, 0, len(conflicted))
	for f := range conflicted {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Verify MergeTreeDetector implements ConflictDetector at compile time.
var _ ConflictDetector = (*MergeTreeDetector)(nil)
