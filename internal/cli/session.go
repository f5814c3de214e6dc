package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
)

// ListSessions prints the stored sessions as a table.
func ListSessions(ctx context.Context, store ports.SessionStore, out io.Writer, now time.Time, timeout time.Duration) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	slices.Sort(ids)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tPHONE\tSTATE\tIDLE\tEXPIRED")
	for _, id := range ids {
		s, err := store.Load(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load session %s: %w", id, err)
		}
		idle := now.Sub(s.LastActivity).Truncate(time.Second)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", s.ID, s.Phone, s.CurrentStateID, idle, s.Expired(now, timeout))
	}
	return tw.Flush()
}

// InspectSession prints one session as indented JSON.
func InspectSession(ctx context.Context, store ports.SessionStore, id string, out io.Writer) error {
	s, err := store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RemoveSession deletes a session. Unknown ids are reported.
func RemoveSession(ctx context.Context, store ports.SessionStore, id string) error {
	if _, err := store.Load(ctx, id); err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	return store.Delete(ctx, id)
}
