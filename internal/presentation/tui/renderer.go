package tui

import (
	"strings"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// Renderer draws USSD screens for a terminal.
type Renderer struct {
	md *glamour.TermRenderer
}

// NewRenderer returns a glamour-backed renderer when styled is true.
// A plain renderer prints directives in their wire form.
func NewRenderer(styled bool) *Renderer {
	if !styled {
		return &Renderer{}
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(40),
	)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{md: md}
}

// Screen formats d as the handset would show it.
func (r *Renderer) Screen(d domain.Directive) string {
	if r.md == nil {
		return d.String() + "\n"
	}

	var sb strings.Builder
	for _, line := range strings.Split(d.Message, "\n") {
		// Hard line breaks keep menu lines apart.
		sb.WriteString("> " + escapeMarkdown(line) + "  \n")
	}
	if d.IsEnd() {
		sb.WriteString("\n*session ended*\n")
	}

	out, err := r.md.Render(sb.String())
	if err != nil {
		return d.String() + "\n"
	}
	return out
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "#", `\#`, "`", "\\`", "[", `\[`, "]", `\]`,
)

func escapeMarkdown(s string) string {
	s = markdownEscaper.Replace(s)
	// "1. Send" would otherwise start an ordered list.
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[:i], "0123456789") == "" {
		s = s[:i] + `\` + s[i:]
	}
	return s
}
