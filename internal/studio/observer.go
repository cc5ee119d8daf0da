package studio

import "time"

// EventKind names a run state change.
type EventKind string

const (
	EventPlanning     EventKind = "planning"
	EventPlanReady    EventKind = "plan_ready"
	EventPlanFailed   EventKind = "plan_failed"
	EventAssetStarted EventKind = "asset_started"
	EventAssetReady   EventKind = "asset_ready"
	EventAssetFailed  EventKind = "asset_failed"
	EventCompleted    EventKind = "completed"
)

// Event is delivered to observers in the order the run produced it.
type Event struct {
	Kind      EventKind `json:"kind"`
	RunID     string    `json:"run_id"`
	Workspace string    `json:"workspace"`
	Label     string    `json:"label,omitempty"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Terminal reports whether no further events follow for the run.
func (e Event) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventPlanFailed
}

// Observer receives run events. Notify is called from a single goroutine per
// run and must not block for long.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Notify(Event) {}
