package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/ussdgw"
	"github.com/aretw0/ussdgw/internal/presentation/graph"
	"github.com/aretw0/ussdgw/internal/presentation/tui"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/session"
	"golang.org/x/term"
)

// SimulateOptions configures the interactive handset simulator.
type SimulateOptions struct {
	AutomatonPath string
	Phone         string
	Debug         bool
	Watch         bool
	Styled        bool
	Quiet         bool
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type simulator struct {
	gw        *ussdgw.Gateway
	out       io.Writer
	renderer  *tui.Renderer
	phone     string
	sessionID string
	ended     bool
}

// Simulate runs a REPL that plays the handset against in-memory stores.
// Lines starting with ":" are simulator commands.
func Simulate(ctx context.Context, opts SimulateOptions, in io.Reader, out io.Writer) error {
	logger := createLogger(opts.Debug)

	gwOpts := []ussdgw.Option{ussdgw.WithLogger(logger)}
	if opts.Debug {
		gwOpts = append(gwOpts, ussdgw.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if opts.AutomatonPath != "" {
		gwOpts = append(gwOpts, ussdgw.WithAutomatonFile(opts.AutomatonPath))
	}
	gw, err := ussdgw.New(gwOpts...)
	if err != nil {
		return err
	}

	if opts.Watch && opts.AutomatonPath != "" {
		go func() {
			if err := gw.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("automaton watcher stopped", "error", err)
			}
		}()
	}

	phone := opts.Phone
	if phone == "" {
		phone = "+237600000000"
	}
	sim := &simulator{gw: gw, out: out, renderer: tui.NewRenderer(opts.Styled), phone: phone}

	if !opts.Quiet {
		tui.PrintBanner(out, ussdgw.Version)
		printSystemMessage(out, "Dialing as %s. Commands: :state, :graph, :new, :quit", phone)
	}
	sim.dial(ctx)

	scanner := bufio.NewScanner(NewInterruptibleReader(in, ctx.Done()))
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = ctx.Err()
			}
			fmt.Fprintln(out)
			return handleExecutionError(err)
		}
		line := scanner.Text()

		switch strings.TrimSpace(line) {
		case ":q", ":quit", ":exit":
			return nil
		case ":new":
			sim.dial(ctx)
			continue
		case ":state":
			sim.printState(ctx)
			continue
		case ":graph":
			fmt.Fprintln(out, graph.GenerateMermaid(gw.Graph(), &graph.Overlay{CurrentState: sim.currentState(ctx)}))
			continue
		}

		if sim.ended {
			sim.dial(ctx)
			continue
		}
		sim.send(ctx, line)
	}
}

func (s *simulator) dial(ctx context.Context) {
	s.sessionID = session.NewID()
	s.ended = false
	s.send(ctx, "")
}

func (s *simulator) send(ctx context.Context, input string) {
	d := s.gw.Handle(ctx, domain.Request{SessionID: s.sessionID, Phone: s.phone, Input: input})
	fmt.Fprint(s.out, s.renderer.Screen(d))
	if d.IsEnd() {
		s.ended = true
		printSystemMessage(s.out, "Session closed. Press Enter to dial again.")
	}
}

func (s *simulator) currentState(ctx context.Context) string {
	sess, err := s.gw.Sessions().Store().Load(ctx, s.sessionID)
	if err != nil {
		return ""
	}
	return sess.CurrentStateID
}

func (s *simulator) printState(ctx context.Context) {
	sess, err := s.gw.Sessions().Store().Load(ctx, s.sessionID)
	if err != nil {
		printSystemMessage(s.out, "No active session (%v).", err)
		return
	}
	printSystemMessage(s.out, "Session %s at %q, retries %d", sess.ID, sess.CurrentStateID, sess.Retries)
	for k, v := range sess.Answers {
		printSystemMessage(s.out, "  %s = %s", k, v)
	}
}
