package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventSessionEnd    EventType = "session_end"
	EventTransition    EventType = "transition"
	EventInputRejected EventType = "input_rejected"
	EventHookCall      EventType = "hook_call"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent is emitted when a dialog starts or ends.
type SessionEvent struct {
	EventBase
	StateID string `json:"state_id"`
	Expired bool   `json:"expired,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// TransitionEvent is emitted for every transition taken.
type TransitionEvent struct {
	EventBase
	From     string `json:"from"`
	To       string `json:"to"`
	Trigger  string `json:"trigger"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    bool   `json:"error,omitempty"`
}

// RejectionEvent is emitted when input is refused on a state.
type RejectionEvent struct {
	EventBase
	StateID string `json:"state_id"`
	Reason  string `json:"reason"` // "no_match", "validation", "fallback"
	Tag     string `json:"tag,omitempty"`
	Retries int    `json:"retries"`
}

// HookEvent represents a business hook execution.
type HookEvent struct {
	EventBase
	StateID  string        `json:"state_id"`
	Hook     string        `json:"hook"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for dialog observability.
type LifecycleHooks struct {
	OnSessionStart  func(context.Context, *SessionEvent)
	OnSessionEnd    func(context.Context, *SessionEvent)
	OnTransition    func(context.Context, *TransitionEvent)
	OnInputRejected func(context.Context, *RejectionEvent)
	OnHookCall      func(context.Context, *HookEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionStart:  chain(h.OnSessionStart, other.OnSessionStart),
		OnSessionEnd:    chain(h.OnSessionEnd, other.OnSessionEnd),
		OnTransition:    chain(h.OnTransition, other.OnTransition),
		OnInputRejected: chain(h.OnInputRejected, other.OnInputRejected),
		OnHookCall:      chain(h.OnHookCall, other.OnHookCall),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
