package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxMessageLength is the number of characters a handset shows on one screen.
// Longer messages are logged, not truncated.
const MaxMessageLength = 182

// Rejection reasons reported through OnInputRejected.
const (
	RejectNoMatch    = "no_match"
	RejectValidation = "validation"
	RejectFallback   = "fallback"
)

// Session end reasons reported through OnSessionEnd.
const (
	EndFinal      = "final"
	EndTerminated = "terminated"
	EndExpired    = "expired"
	EndMaxRetries = "max_retries"
)

// Orchestrator drives a dialog one callback at a time.
type Orchestrator struct {
	graph    GraphSource
	sessions *session.Manager

	validator Validator
	executor  HookExecutor
	auth      Authenticator

	lifecycle  domain.LifecycleHooks
	maxRetries int
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New creates an Orchestrator over the given automaton and session manager.
func New(graph GraphSource, sessions *session.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		graph:      graph,
		sessions:   sessions,
		maxRetries: domain.DefaultMaxRetries,
		logger:     logging.NewNop(),
		tracer:     otel.Tracer("ussdgw/dialog"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sessions exposes the session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// Handle processes one request and always answers with a directive.
// Unexpected failures end the dialog with a generic system error; the stored
// session is left as it was before the request.
func (o *Orchestrator) Handle(ctx context.Context, req domain.Request) domain.Directive {
	ctx, span := o.tracer.Start(ctx, "dialog.Handle",
		trace.WithAttributes(attribute.String("ussd.session_id", req.SessionID)),
	)
	defer span.End()

	var d domain.Directive
	err := o.sessions.WithLock(ctx, req.SessionID, func(ctx context.Context) error {
		if req.SessionID == "" {
			return errors.New("session id is required")
		}
		var err error
		d, err = o.handle(ctx, req)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error("Dialog request failed",
			"session_id", req.SessionID,
			"phone", logging.MaskPhone(req.Phone),
			"err", err,
		)
		return domain.EndWith(domain.MsgSystemError)
	}

	span.SetAttributes(attribute.String("ussd.directive", string(d.Kind)))
	if n := utf8.RuneCountInString(d.Message); n > MaxMessageLength {
		o.logger.Warn("Message exceeds USSD screen length",
			"session_id", req.SessionID,
			"length", n,
			"max", MaxMessageLength,
		)
	}
	return d
}

func (o *Orchestrator) handle(ctx context.Context, req domain.Request) (domain.Directive, error) {
	g := o.graph.Graph()

	s, err := o.sessions.Get(ctx, req.SessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return o.start(ctx, g, req, "")
	case errors.Is(err, domain.ErrSessionExpired):
		o.emitEnd(ctx, req.SessionID, "", EndExpired)
		return o.start(ctx, g, req, domain.MsgSessionExpired)
	case err != nil:
		return domain.Directive{}, fmt.Errorf("load session: %w", err)
	}

	current, err := g.State(s.CurrentStateID)
	if err != nil {
		// The session points at a state that is gone (interrupted start or
		// an automaton reload); begin again.
		o.logger.Warn("Session state unknown, restarting dialog",
			"session_id", s.ID,
			"state_id", s.CurrentStateID,
		)
		return o.start(ctx, g, req, "")
	}

	return o.advance(ctx, g, s, current, req.Input)
}

// start creates the session on the initial state.
func (o *Orchestrator) start(ctx context.Context, g *automaton.Graph, req domain.Request, notice string) (domain.Directive, error) {
	s, err := o.sessions.Create(ctx, req.Phone, session.WithSessionID(req.SessionID))
	if err != nil {
		return domain.Directive{}, err
	}

	o.authenticate(ctx, s)

	initial := g.InitialState()
	if o.lifecycle.OnSessionStart != nil {
		o.lifecycle.OnSessionStart(ctx, &domain.SessionEvent{
			EventBase: o.base(domain.EventSessionStart, s.ID),
			StateID:   initial.ID,
			Expired:   notice != "",
		})
	}
	o.logger.Debug("Session started",
		"session_id", s.ID,
		"phone", logging.MaskPhone(s.Phone),
		"authenticated", s.Authenticated,
	)

	return o.land(ctx, s, initial, notice, true)
}

// authenticate is best-effort: an unknown or unreachable user directory
// leaves the session anonymous.
func (o *Orchestrator) authenticate(ctx context.Context, s *domain.Session) {
	if o.auth == nil {
		return
	}
	u, err := o.auth.Authenticate(ctx, s.Phone)
	if err != nil {
		o.logger.Warn("User lookup failed", "session_id", s.ID, "err", err)
		return
	}
	if u == nil {
		return
	}
	s.UserID = u.ID
	s.Authenticated = true
	s.Metadata[domain.KeyUserName] = u.Name
}

// advance applies one input to a live session.
func (o *Orchestrator) advance(ctx context.Context, g *automaton.Graph, s *domain.Session, current *domain.State, input string) (domain.Directive, error) {
	t, err := g.Resolve(current.ID, input, s)
	if errors.Is(err, domain.ErrNoMatchingTransition) {
		return o.reject(ctx, g, s, current, nil, RejectNoMatch, "", domain.MsgInvalidOption)
	}
	if err != nil {
		return domain.Directive{}, err
	}

	if t.Fallback {
		return o.fallback(ctx, g, s, current, t, input)
	}

	if tag := effectiveTag(t, current); t.RequiresValidation && tag != "" && o.validator != nil {
		if err := o.validator.Validate(tag, input); err != nil {
			reason := err.Error()
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				reason = verr.Reason
			}
			return o.reject(ctx, g, s, current, t, RejectValidation, tag, reason)
		}
	}

	o.applyActions(ctx, s, t, input)
	if current.StorageKey != "" {
		s.StoreAnswer(current.StorageKey, strings.TrimSpace(input))
	}
	s.Retries = 0
	o.emitTransition(ctx, s, t, input)

	next, err := g.State(t.To)
	if err != nil {
		return domain.Directive{}, err
	}
	return o.land(ctx, s, next, "", true)
}

// reject records a failed attempt and shows the current state again.
func (o *Orchestrator) reject(ctx context.Context, g *automaton.Graph, s *domain.Session, current *domain.State, t *domain.Transition, reason, tag, text string) (domain.Directive, error) {
	s.Retries++
	o.emitRejection(ctx, s, current.ID, reason, tag)

	if s.Retries > o.retryLimit(g, current.ID, t) {
		return o.exhausted(ctx, g, s, current)
	}
	if err := o.sessions.Save(ctx, s); err != nil {
		return domain.Directive{}, err
	}
	return domain.ContinueWith(join(text, current.Render(view(s)))), nil
}

// fallback takes a catch-all transition. It counts as a failed attempt.
func (o *Orchestrator) fallback(ctx context.Context, g *automaton.Graph, s *domain.Session, current *domain.State, t *domain.Transition, input string) (domain.Directive, error) {
	s.Retries++
	o.emitRejection(ctx, s, current.ID, RejectFallback, "")

	if s.Retries > o.retryLimit(g, current.ID, t) {
		return o.exhausted(ctx, g, s, current)
	}

	o.applyActions(ctx, s, t, input)
	o.emitTransition(ctx, s, t, input)

	next, err := g.State(t.To)
	if err != nil {
		return domain.Directive{}, err
	}
	prefix := t.ErrorMessage
	if prefix == "" {
		prefix = domain.MsgInvalidOption
	}
	return o.land(ctx, s, next, prefix, next.ID != current.ID)
}

// exhausted follows the error route of current, or ends the dialog.
func (o *Orchestrator) exhausted(ctx context.Context, g *automaton.Graph, s *domain.Session, current *domain.State) (domain.Directive, error) {
	et := g.ErrorTransition(current.ID)
	if et == nil {
		if err := o.sessions.Delete(ctx, s.ID); err != nil {
			return domain.Directive{}, err
		}
		o.logger.Info("Retry limit reached, ending dialog",
			"session_id", s.ID,
			"state_id", current.ID,
			"retries", s.Retries,
		)
		o.emitEnd(ctx, s.ID, current.ID, EndMaxRetries)
		return domain.EndWith(domain.MsgTooManyAttempts), nil
	}

	s.Retries = 0
	o.applyActions(ctx, s, et, "")
	o.emitTransition(ctx, s, et, "")

	next, err := g.State(et.To)
	if err != nil {
		return domain.Directive{}, err
	}
	return o.land(ctx, s, next, et.ErrorMessage, true)
}

// land moves the session onto st, runs its hook and answers with its screen.
func (o *Orchestrator) land(ctx context.Context, s *domain.Session, st *domain.State, prefix string, runHook bool) (domain.Directive, error) {
	s.CurrentStateID = st.ID

	if runHook && st.Hook != "" {
		if err := o.runHook(ctx, s, st); err != nil {
			return domain.Directive{}, err
		}
	}

	msg := join(prefix, st.Render(view(s)))

	if st.IsTerminal() {
		if err := o.sessions.Delete(ctx, s.ID); err != nil {
			return domain.Directive{}, err
		}
		reason := EndTerminated
		if st.IsFinal() {
			reason = EndFinal
		}
		o.emitEnd(ctx, s.ID, st.ID, reason)
		return domain.EndWith(msg), nil
	}

	if err := o.sessions.Save(ctx, s); err != nil {
		return domain.Directive{}, err
	}
	return domain.ContinueWith(msg), nil
}

// runHook calls the state's business hook with the answers plus the caller
// identity and merges what it returns.
func (o *Orchestrator) runHook(ctx context.Context, s *domain.Session, st *domain.State) error {
	if o.executor == nil {
		return &domain.HookError{Hook: st.Hook, Err: domain.ErrUnknownHook}
	}

	in := maps.Clone(s.Answers)
	if in == nil {
		in = make(map[string]string)
	}
	in[domain.KeyPhone] = s.Phone
	if s.UserID != "" {
		in[domain.KeyUserID] = s.UserID
	}

	ctx, span := o.tracer.Start(ctx, "dialog.hook",
		trace.WithAttributes(attribute.String("ussd.hook", st.Hook)),
	)
	defer span.End()

	started := time.Now()
	out, err := o.executor.Execute(ctx, st.Hook, in)
	elapsed := time.Since(started)

	if o.lifecycle.OnHookCall != nil {
		o.lifecycle.OnHookCall(ctx, &domain.HookEvent{
			EventBase: o.base(domain.EventHookCall, s.ID),
			StateID:   st.ID,
			Hook:      st.Hook,
			Duration:  elapsed,
			IsError:   err != nil,
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	delete(out, domain.KeyPhone)
	delete(out, domain.KeyUserID)
	s.MergeAnswers(out)
	return nil
}

func (o *Orchestrator) applyActions(ctx context.Context, s *domain.Session, t *domain.Transition, input string) {
	for _, a := range t.Actions {
		switch a := a.(type) {
		case domain.StoreInSession:
			s.MergeAnswers(map[string]string{a.Key: a.Resolve(input)})
		case domain.LogEvent:
			o.logger.InfoContext(ctx, "dialog event",
				"event", a.Name,
				"session_id", s.ID,
				"from", t.From,
				"to", t.To,
			)
		}
	}
}

func (o *Orchestrator) retryLimit(g *automaton.Graph, stateID string, t *domain.Transition) int {
	if t != nil {
		return t.MaxRetries
	}
	if et := g.ErrorTransition(stateID); et != nil {
		return et.MaxRetries
	}
	return o.maxRetries
}

func (o *Orchestrator) base(typ domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: o.sessions.Now(),
		Type:      typ,
		SessionID: sessionID,
	}
}

func (o *Orchestrator) emitEnd(ctx context.Context, sessionID, stateID, reason string) {
	if o.lifecycle.OnSessionEnd == nil {
		return
	}
	o.lifecycle.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase: o.base(domain.EventSessionEnd, sessionID),
		StateID:   stateID,
		Expired:   reason == EndExpired,
		Reason:    reason,
	})
}

func (o *Orchestrator) emitTransition(ctx context.Context, s *domain.Session, t *domain.Transition, input string) {
	o.logger.Debug("Transition",
		"session_id", s.ID,
		"from", t.From,
		"to", t.To,
	)
	if o.lifecycle.OnTransition == nil {
		return
	}
	o.lifecycle.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: o.base(domain.EventTransition, s.ID),
		From:      t.From,
		To:        t.To,
		Trigger:   strings.TrimSpace(input),
		Fallback:  t.Fallback,
		Error:     t.Error,
	})
}

func (o *Orchestrator) emitRejection(ctx context.Context, s *domain.Session, stateID, reason, tag string) {
	o.logger.Debug("Input rejected",
		"session_id", s.ID,
		"state_id", stateID,
		"reason", reason,
		"retries", s.Retries,
	)
	if o.lifecycle.OnInputRejected == nil {
		return
	}
	o.lifecycle.OnInputRejected(ctx, &domain.RejectionEvent{
		EventBase: o.base(domain.EventInputRejected, s.ID),
		StateID:   stateID,
		Reason:    reason,
		Tag:       tag,
		Retries:   s.Retries,
	})
}

// effectiveTag is the transition's validation tag, else the state's.
func effectiveTag(t *domain.Transition, st *domain.State) string {
	if t.ValidationType != "" {
		return t.ValidationType
	}
	return st.ValidationType
}

// view is the data rendered into message templates: metadata overlaid by answers.
func view(s *domain.Session) map[string]string {
	out := make(map[string]string, len(s.Answers)+len(s.Metadata))
	for k, v := range s.Metadata {
		if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	maps.Copy(out, s.Answers)
	return out
}

func join(prefix, msg string) string {
	if prefix == "" {
		return msg
	}
	return prefix + "\n\n" + msg
}
