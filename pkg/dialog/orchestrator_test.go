package dialog_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ussdgw/automata"
	"github.com/aretw0/ussdgw/pkg/adapters/memory"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/delivery"
	"github.com/aretw0/ussdgw/pkg/dialog"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/registry"
	"github.com/aretw0/ussdgw/pkg/session"
	"github.com/aretw0/ussdgw/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	phone    = "+237600000000"
	mainMenu = "Welcome to PackND\n1. Send a package\n2. Track a package\n3. Register\n4. Help"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	o     *dialog.Orchestrator
	m     *session.Manager
	repo  *memory.Repository
	clock *clock
}

func (h *harness) send(t *testing.T, sessionID, input string) domain.Directive {
	t.Helper()
	return h.o.Handle(context.Background(), domain.Request{SessionID: sessionID, Phone: phone, Input: input})
}

func (h *harness) session(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := h.m.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func loadGraph(t *testing.T, doc []byte) *automaton.Holder {
	t.Helper()
	def, err := automaton.Parse(doc)
	require.NoError(t, err)
	g, err := automaton.Load(def)
	require.NoError(t, err)
	return automaton.NewHolder(g, "")
}

func newHarness(t *testing.T, opts ...dialog.Option) *harness {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := session.NewManager(memory.NewStore(),
		session.WithTimeout(10*time.Minute),
		session.WithClock(c.Now),
	)
	repo := memory.NewRepository()
	svc := delivery.NewService(repo, repo, delivery.WithClock(c.Now))
	reg := registry.NewRegistry()
	svc.Register(reg)

	base := []dialog.Option{
		dialog.WithValidator(validation.Default()),
		dialog.WithHookExecutor(reg),
		dialog.WithAuthenticator(svc),
	}
	o := dialog.New(loadGraph(t, automata.Delivery), m, append(base, opts...)...)
	return &harness{o: o, m: m, repo: repo, clock: c}
}

func TestHandle_NewSession(t *testing.T) {
	h := newHarness(t)

	d := h.send(t, "s1", "")

	assert.Equal(t, domain.Continue, d.Kind)
	assert.Equal(t, mainMenu, d.Message)

	s := h.session(t, "s1")
	assert.Equal(t, "MAIN_MENU", s.CurrentStateID)
	assert.Equal(t, phone, s.Phone)
	assert.False(t, s.Authenticated)
}

func TestHandle_ValidationFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	h.send(t, "s1", "1")

	d := h.send(t, "s1", "1234")

	assert.Equal(t, domain.Continue, d.Kind)
	assert.True(t, strings.HasPrefix(d.Message, "Invalid name format."), d.Message)
	assert.True(t, strings.HasSuffix(d.Message, "\n\nEnter recipient name:"), d.Message)

	s := h.session(t, "s1")
	assert.Equal(t, "ENTER_RECIPIENT_NAME", s.CurrentStateID)
	assert.Equal(t, 1, s.Retries)
	assert.NotContains(t, s.Answers, "recipientName")
}

func TestHandle_ValidInputAdvancesAndResetsRetries(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	h.send(t, "s1", "1")
	h.send(t, "s1", "1234")

	d := h.send(t, "s1", "John Doe")

	assert.Equal(t, domain.ContinueWith("Enter recipient phone number:"), d)
	s := h.session(t, "s1")
	assert.Equal(t, "ENTER_RECIPIENT_PHONE", s.CurrentStateID)
	assert.Equal(t, "John Doe", s.Answers["recipientName"])
	assert.Equal(t, "send", s.Answers["flow"])
	assert.Equal(t, 0, s.Retries)
}

func TestHandle_SendPackageFlow(t *testing.T) {
	h := newHarness(t)

	steps := []struct {
		input string
		want  string
	}{
		{"", mainMenu},
		{"1", "Enter recipient name:"},
		{"John Doe", "Enter recipient phone number:"},
		{"+237611111111", "Enter destination city:"},
		{"Douala", "Enter delivery address:"},
		{"12 Rue de la Joie", "Describe the package:"},
		{"Shoes", "Enter weight in kg (0.5 - 500):"},
		{"2.5", "Choose transport:\n1. Bicycle\n2. Motorcycle\n3. Tricycle\n4. Car\n5. Truck"},
		{"4", "Choose delivery speed:\n1. Standard (3 days)\n2. Express 48h\n3. Express 24h"},
		{"1", "Choose payment:\n1. Cash\n2. Mobile Money\n3. Orange Money\n4. Paid by recipient"},
	}
	for _, step := range steps {
		d := h.send(t, "s1", step.input)
		require.Equal(t, domain.ContinueWith(step.want), d, "input %q", step.input)
	}

	d := h.send(t, "s1", "2")
	require.Equal(t, domain.Continue, d.Kind)
	assert.True(t, strings.HasPrefix(d.Message, "SUMMARY:\n\nRecipient: John Doe\n"), d.Message)
	assert.True(t, strings.HasSuffix(d.Message, "Price: 3375.00 XAF\n1. Confirm\n2. Cancel"), d.Message)

	d = h.send(t, "s1", "1")
	require.Equal(t, domain.End, d.Kind)
	assert.Contains(t, d.Message, "Tracking ID: PKND-20260101-00001")

	_, err := h.m.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sh, err := h.repo.FindShipmentByTrackingID(context.Background(), "PKND-20260101-00001")
	require.NoError(t, err)
	assert.Equal(t, phone, sh.SenderPhone)
	assert.Equal(t, "CAR", sh.TransportMode)
	assert.Equal(t, "MOBILE_MONEY", sh.PaymentMethod)
}

func TestHandle_ExpiredSessionRestartsWithNotice(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	h.send(t, "s1", "1")

	h.clock.Advance(11 * time.Minute)
	d := h.send(t, "s1", "John Doe")

	assert.Equal(t, domain.ContinueWith(domain.MsgSessionExpired+"\n\n"+mainMenu), d)
	s := h.session(t, "s1")
	assert.Equal(t, "MAIN_MENU", s.CurrentStateID)
	assert.Empty(t, s.Answers)
}

func TestHandle_FallbackCountsAsFailure(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")

	d := h.send(t, "s1", "9")

	assert.Equal(t, domain.ContinueWith(domain.MsgInvalidOption+"\n\n"+mainMenu), d)
	assert.Equal(t, 1, h.session(t, "s1").Retries)
}

func TestHandle_RetryExhaustionFollowsErrorTransition(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	h.send(t, "s1", "1")

	for i := 1; i <= domain.DefaultMaxRetries; i++ {
		d := h.send(t, "s1", "1234")
		require.Equal(t, domain.Continue, d.Kind)
		require.Equal(t, i, h.session(t, "s1").Retries)
	}

	d := h.send(t, "s1", "1234")

	assert.Equal(t, domain.ContinueWith("Too many invalid names.\n\n"+mainMenu), d)
	s := h.session(t, "s1")
	assert.Equal(t, "MAIN_MENU", s.CurrentStateID)
	assert.Equal(t, 0, s.Retries)
}

const noErrorRoute = `
automatonId: strict
initialStateId: START
states:
  - stateId: START
    displayMessage: Pick one
    menuOptions:
      - { optionKey: "1", optionText: Go }
  - stateId: DONE
    stateType: FINAL
    displayMessage: Bye
transitions:
  - { fromStateId: START, toStateId: DONE, trigger: "1" }
`

func TestHandle_RetryExhaustionEndsDialog(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := session.NewManager(memory.NewStore(), session.WithClock(c.Now))
	o := dialog.New(loadGraph(t, []byte(noErrorRoute)), m, dialog.WithMaxRetries(1))
	ctx := context.Background()
	req := domain.Request{SessionID: "s1", Phone: phone}

	assert.Equal(t, domain.ContinueWith("Pick one\n1. Go"), o.Handle(ctx, req))

	req.Input = "7"
	assert.Equal(t, domain.ContinueWith(domain.MsgInvalidOption+"\n\nPick one\n1. Go"), o.Handle(ctx, req))
	assert.Equal(t, domain.EndWith(domain.MsgTooManyAttempts), o.Handle(ctx, req))

	_, err := m.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHandle_FinalStateDeletesSession(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")

	d := h.send(t, "s1", "4")

	assert.Equal(t, domain.End, d.Kind)
	assert.True(t, strings.HasPrefix(d.Message, "PackND sends and tracks packages"))
	exists, err := h.m.Exists(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHandle_AuthenticatedUser(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.CreateUser(context.Background(), &domain.User{
		ID:    "u-1",
		Name:  "Ada",
		Phone: phone,
	}))

	d := h.send(t, "s1", "")
	assert.True(t, strings.HasPrefix(d.Message, "Welcome to PackND, Ada\n"), d.Message)

	s := h.session(t, "s1")
	assert.True(t, s.Authenticated)
	assert.Equal(t, "u-1", s.UserID)

	d = h.send(t, "s1", "3")
	assert.Equal(t, domain.EndWith("You are already registered. Dial again to send a package."), d)
}

func TestHandle_RegistrationFlow(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	assert.Equal(t, domain.ContinueWith("Enter your full name:"), h.send(t, "s1", "3"))
	assert.Equal(t, domain.ContinueWith("Enter your email (0 to skip):"), h.send(t, "s1", "Ada Lovelace"))
	h.send(t, "s1", "0")

	d := h.send(t, "s1", "weak")
	assert.Equal(t, domain.Continue, d.Kind)
	assert.Equal(t, 1, h.session(t, "s1").Retries)

	d = h.send(t, "s1", "Secr3t!pass")
	assert.Equal(t, domain.EndWith("Registration successful. Welcome, Ada Lovelace!"), d)

	u, err := h.repo.FindUserByPhone(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)
}

func TestHandle_TrackUnknownShipment(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	h.send(t, "s1", "2")

	d := h.send(t, "s1", "PKND-20260101-00042")

	assert.Equal(t, domain.EndWith("No shipment found for PKND-20260101-00042"), d)
}

const hooked = `
automatonId: hooked
initialStateId: START
states:
  - stateId: START
    displayMessage: Pick one
    menuOptions:
      - { optionKey: "1", optionText: Go }
  - stateId: WORK
    displayMessage: "Result {{.result}}"
    businessServiceMethod: work
  - stateId: DONE
    stateType: FINAL
    displayMessage: Bye
transitions:
  - { fromStateId: START, toStateId: WORK, trigger: "1" }
  - { fromStateId: WORK, toStateId: DONE, trigger: "*" }
`

func TestHandle_HookFailureLeavesSessionIntact(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	reg := registry.NewRegistry()
	reg.Register("work", func(ctx context.Context, answers map[string]string) (map[string]string, error) {
		return nil, errors.New("backend down")
	})
	o := dialog.New(loadGraph(t, []byte(hooked)), m, dialog.WithHookExecutor(reg))
	ctx := context.Background()

	o.Handle(ctx, domain.Request{SessionID: "s1", Phone: phone})
	d := o.Handle(ctx, domain.Request{SessionID: "s1", Phone: phone, Input: "1"})

	assert.Equal(t, domain.EndWith(domain.MsgSystemError), d)
	s, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "START", s.CurrentStateID)
}

func TestHandle_HookSeesCallerIdentity(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	reg := registry.NewRegistry()
	var seen map[string]string
	reg.Register("work", func(ctx context.Context, answers map[string]string) (map[string]string, error) {
		seen = answers
		return map[string]string{"result": "42", domain.KeyPhone: "spoofed"}, nil
	})
	o := dialog.New(loadGraph(t, []byte(hooked)), m, dialog.WithHookExecutor(reg))
	ctx := context.Background()

	o.Handle(ctx, domain.Request{SessionID: "s1", Phone: phone})
	d := o.Handle(ctx, domain.Request{SessionID: "s1", Phone: phone, Input: "1"})

	assert.Equal(t, domain.ContinueWith("Result 42"), d)
	assert.Equal(t, phone, seen[domain.KeyPhone])

	s, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "42", s.Answers["result"])
	assert.NotContains(t, s.Answers, domain.KeyPhone)
}

func TestHandle_LifecycleHooks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}

	h := newHarness(t, dialog.WithLifecycleHooks(domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) { record("start:" + e.StateID) },
		OnSessionEnd:   func(_ context.Context, e *domain.SessionEvent) { record("end:" + e.Reason) },
		OnTransition:   func(_ context.Context, e *domain.TransitionEvent) { record("move:" + e.To) },
		OnInputRejected: func(_ context.Context, e *domain.RejectionEvent) {
			record("reject:" + e.Reason)
		},
	}))

	h.send(t, "s1", "")
	h.send(t, "s1", "1")
	h.send(t, "s1", "")
	h.send(t, "s1", "42")

	h.clock.Advance(time.Hour)
	h.send(t, "s1", "4")
	h.send(t, "s1", "4")

	assert.Equal(t, []string{
		"start:MAIN_MENU",
		"move:ENTER_RECIPIENT_NAME",
		"reject:no_match",
		"reject:validation",
		"end:expired",
		"start:MAIN_MENU",
		"move:HELP",
		"end:terminated",
	}, events)
}

func TestHandle_MissingSessionID(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, domain.EndWith(domain.MsgSystemError), h.send(t, "", ""))
}

func TestHandle_ConcurrentRequestsSameSession(t *testing.T) {
	h := newHarness(t)
	h.send(t, "s1", "")
	h.send(t, "s1", "1")

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.send(t, "s1", "1234")
		}()
	}
	wg.Wait()

	s := h.session(t, "s1")
	// Three failures stay on the state, the fourth takes the error route and
	// the fifth hits the menu fallback. No update is lost.
	assert.Equal(t, "MAIN_MENU", s.CurrentStateID)
	assert.Equal(t, 1, s.Retries)
}
