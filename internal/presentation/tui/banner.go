package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the simulator banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"  _   _ ___ ___ ___   ___ _      __", "#818cf8"},
		{" | | | / __/ __|   \\ / __| \\    / /", "#a78bfa"},
		{" | |_| \\__ \\__ \\ |) | (_ |\\ \\/\\/ / ", "#c084fc"},
		{"  \\___/|___/___/___/ \\___| \\_/\\_/  ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  simulator "+version).Faint())
	fmt.Fprintln(w)
}
