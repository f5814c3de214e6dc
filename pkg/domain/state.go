package domain

import (
	"strings"
	"text/template"
)

// StateKind classifies a state inside the automaton.
type StateKind string

const (
	KindInitial StateKind = "INITIAL"
	KindNormal  StateKind = "NORMAL"
	KindFinal   StateKind = "FINAL"
)

// ParseStateKind maps a configuration value to a StateKind. Empty means Normal.
func ParseStateKind(s string) (StateKind, bool) {
	switch StateKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindInitial:
		return KindInitial, true
	case KindNormal, "":
		return KindNormal, true
	case KindFinal:
		return KindFinal, true
	}
	return "", false
}

// MenuOption is one numbered line of a menu screen.
type MenuOption struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Trigger string `json:"trigger,omitempty"`
}

// State represents a screen of the dialog.
// States are built once at graph-load time and never mutated afterwards.
type State struct {
	ID          string    `json:"id"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Kind        StateKind `json:"kind"`

	// Message is the raw display message. It may contain text/template
	// placeholders over the answer map (e.g. {{.shipmentSummary}}).
	Message string `json:"message"`

	// ValidationType is the validator tag applied to input typed on this state
	// when the chosen transition does not declare its own.
	ValidationType string `json:"validation_type,omitempty"`

	// Hook is the business hook invoked when a dialog lands on this state.
	Hook string `json:"hook,omitempty"`

	// StorageKey stores the raw input typed on this state under answers[StorageKey].
	StorageKey string `json:"storage_key,omitempty"`

	TerminatesSession bool         `json:"terminates_session,omitempty"`
	Menu              []MenuOption `json:"menu,omitempty"`

	tmpl *template.Template
}

// IsFinal reports whether the state was declared FINAL.
func (s *State) IsFinal() bool {
	return s.Kind == KindFinal
}

// IsTerminal reports whether landing on the state ends the dialog.
func (s *State) IsTerminal() bool {
	return s.IsFinal() || s.TerminatesSession
}

// IsMenu reports whether the state renders menu lines.
func (s *State) IsMenu() bool {
	return len(s.Menu) > 0
}

// Compile prepares the message template. States without placeholders skip it.
func (s *State) Compile() error {
	if !strings.Contains(s.Message, "{{") {
		s.tmpl = nil
		return nil
	}
	t, err := template.New(s.ID).Option("missingkey=zero").Parse(s.Message)
	if err != nil {
		return err
	}
	s.tmpl = t
	return nil
}

// Render produces the full screen text: the interpolated message followed by
// one "key. label" line per menu option, in declaration order.
func (s *State) Render(answers map[string]string) string {
	msg := s.Message
	if s.tmpl != nil {
		data := answers
		if data == nil {
			data = map[string]string{}
		}
		var sb strings.Builder
		if err := s.tmpl.Execute(&sb, data); err == nil {
			msg = sb.String()
		}
	}

	if !s.IsMenu() {
		return msg
	}

	var sb strings.Builder
	sb.WriteString(msg)
	for _, opt := range s.Menu {
		sb.WriteString("\n")
		sb.WriteString(opt.Key)
		sb.WriteString(". ")
		sb.WriteString(opt.Label)
	}
	return sb.String()
}
