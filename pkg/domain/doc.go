/*
Package domain contains the core dialog model of the USSD gateway.

It defines the states and transitions of a dialog automaton, the per-session
context that travels between stateless aggregator callbacks, and the directive
returned to the transport layer. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - State: a screen of the dialog (message, menu, validation tag, hook, storage key).
  - Transition: a rule moving from one state to another (trigger, priority, guards, actions).
  - Action: a side effect attached to a transition (StoreInSession or LogEvent).
  - Session: the mutable per-conversation context (current state, answers, retries).
  - Directive: what the transport must answer (CON or END plus the rendered text).
*/
package domain
