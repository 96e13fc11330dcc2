// Package lifecycle owns the per-task agent record and the state machine
// that moves it through spawn, wait, reap, kill, reject, and clear.
package lifecycle

// Escalation is a condition the lifecycle machine cannot resolve on its
// own, surfaced as a value with actionable remediation instead of an
// error. A caller renders Reason and NextSteps; nothing was mutated
// beyond what the operation reports.
type Escalation struct {
	// Reason says what stopped the operation.
	Reason string
	// NextSteps lists concrete operator actions, in order.
	NextSteps []string
}

// escalate builds an escalation value.
func escalate(reason string, nextSteps ...string) *Escalation {
	return &Escalation{Reason: reason, NextSteps: nextSteps}
}
