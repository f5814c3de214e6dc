package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/domain"
)

// Overlay marks the state a session currently sits on.
type Overlay struct {
	CurrentState string
}

// GenerateMermaid produces a Mermaid flowchart of the automaton.
// State shapes:
// - Initial: ((Circle))
// - Terminal: ([Stadium])
// - Hook: [[Subroutine]]
// - Input (validated or stored): [/Parallelogram/]
// - Menu: {Rhombus}
// - Default: [Rectangle]
// Fallback and error routes are drawn dotted.
func GenerateMermaid(g *automaton.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	initial := g.InitialState()
	for _, st := range g.States() {
		safeID := sanitizeMermaidID(st.ID)

		opener, closer := "[", "]"
		switch {
		case initial != nil && st.ID == initial.ID:
			opener, closer = "((", "))"
		case st.IsTerminal() || g.IsFinal(st.ID):
			opener, closer = "([", "])"
		case st.Hook != "":
			opener, closer = "[[", "]]"
		case st.ValidationType != "" || st.StorageKey != "":
			opener, closer = "[/", "/]"
		case st.IsMenu():
			opener, closer = "{", "}"
		}

		label := st.ID
		if st.Hook != "" {
			label += " <br/> ⚙️ " + st.Hook
		}
		if st.ValidationType != "" {
			label += " <br/> ✔ " + st.ValidationType
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, t := range g.TransitionsFrom(st.ID) {
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow(t), sanitizeMermaidID(t.To))
		}
	}

	if overlay != nil && overlay.CurrentState != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the highlight readable on light and dark themes.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
	}

	return sb.String()
}

func arrow(t *domain.Transition) string {
	if t.Error {
		return "-. \"⚠ retries\" .->"
	}
	label := t.Trigger
	if t.Trigger == "*" {
		label = "any"
	}
	if len(t.Guards) > 0 {
		guards := make([]string, len(t.Guards))
		for i, c := range t.Guards {
			guards[i] = c.String()
		}
		label = strings.TrimSpace(label + " [" + strings.Join(guards, ", ") + "]")
	}
	label = strings.ReplaceAll(label, "\"", "'")

	switch {
	case t.Fallback && label == "":
		return "-.->"
	case t.Fallback:
		return fmt.Sprintf("-. \"%s\" .->", label)
	case label == "":
		return "-->"
	default:
		return fmt.Sprintf("-- \"%s\" -->", label)
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
