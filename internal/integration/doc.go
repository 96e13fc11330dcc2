// Package integration holds cross-package tests that run the lifecycle
// machine against the real SQLite record store, the YAML backlog, and
// real agent subprocesses. Worktree isolation stays off so the tests do
// not depend on a git installation; the isolation layer has its own
// coverage against a scripted git runner.
package integration
