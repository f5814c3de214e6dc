package domain

import (
	"fmt"
	"strings"
)

// Action is a side effect attached to a transition.
// It is a closed set: StoreInSession or LogEvent.
type Action interface {
	fmt.Stringer
	isAction()
}

// StoreInSession merges Key=Value into the session answers.
// A Value of "$input" stores the trimmed raw input instead.
type StoreInSession struct {
	Key   string
	Value string
}

// LogEvent emits a named dialog event to the operational log.
type LogEvent struct {
	Name string
}

func (StoreInSession) isAction() {}
func (LogEvent) isAction()       {}

func (a StoreInSession) String() string { return "storeInSession:" + a.Key + "=" + a.Value }
func (a LogEvent) String() string       { return "logEvent:" + a.Name }

// Resolve returns the value to store for the given raw input.
func (a StoreInSession) Resolve(input string) string {
	if a.Value == KeyInput {
		return strings.TrimSpace(input)
	}
	return a.Value
}

// ParseAction parses a "verb:payload" directive.
func ParseAction(raw string) (Action, error) {
	verb, payload, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return nil, fmt.Errorf("action %q: expected verb:payload", raw)
	}

	switch verb {
	case "storeInSession":
		key, value, ok := strings.Cut(payload, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("action %q: expected storeInSession:key=value", raw)
		}
		return StoreInSession{Key: key, Value: strings.TrimSpace(value)}, nil
	case "logEvent":
		name := strings.TrimSpace(payload)
		if name == "" {
			return nil, fmt.Errorf("action %q: event name is empty", raw)
		}
		return LogEvent{Name: name}, nil
	default:
		return nil, fmt.Errorf("action %q: unknown verb %q", raw, verb)
	}
}
