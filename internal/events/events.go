// Package events provides in-process fan-out of lifecycle transitions to
// observers: CLI rendering, dashboards, and tool-call response builders.
package events

import "time"

// Type identifies the kind of lifecycle event.
type Type string

const (
	// AgentSpawned fires when a subprocess has been launched for a task.
	AgentSpawned Type = "agent:spawned"
	// AgentCompleted fires when an agent's completion sentinel appears.
	AgentCompleted Type = "agent:completed"
	// AgentReaped fires when an agent's work has been merged and recorded.
	AgentReaped Type = "agent:reaped"
	// AgentKilled fires when an agent subprocess was terminated.
	AgentKilled Type = "agent:killed"
	// AgentRejected fires when an agent's work was discarded unmerged.
	AgentRejected Type = "agent:rejected"
	// AgentLog carries a line of agent output for log followers.
	AgentLog Type = "agent:log"
)

// Event is a single lifecycle notification.
type Event struct {
	// Type is the kind of event.
	Type Type
	// TaskID is the task the event concerns.
	TaskID string
	// AgentID is the agent the event concerns, if any.
	AgentID string
	// Message is a human-readable summary, or a log line for AgentLog.
	Message string
	// Branch is the task branch involved, if any.
	Branch string
	// Err carries failure detail for error outcomes.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
