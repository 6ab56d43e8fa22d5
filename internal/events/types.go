// Package events provides the in-process event bus used for observability
// of policy decisions and the learning loop.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Policy events
	EventPolicyComputed EventType = "policy.computed"
	EventPolicyDeferred EventType = "policy.deferred"

	// Outcome events
	EventOutcomeRecorded  EventType = "outcome.recorded"
	EventOutcomeFinalized EventType = "outcome.finalized"

	// Client events
	EventClientSeeded       EventType = "client.seeded"
	EventClientRecalibrated EventType = "client.recalibrated"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"
	EventOutcomePruned EventType = "outcome.pruned"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event)

// EventStats holds counters exposed by the bus
type EventStats struct {
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
	Subscribers int   `json:"subscribers"`
}
