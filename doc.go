/*
Package ussdgw is a USSD session gateway for package delivery.

A USSD dialog is a sequence of short, stateless HTTP callbacks from a mobile
network aggregator. The gateway keeps the conversation in a session store,
walks a configurable automaton (states, transitions, validation tags and
business hooks) and answers every callback with a "CON ..." or "END ..."
directive.

# Usage

	gw, err := ussdgw.New(
		ussdgw.WithAutomatonFile("automata/delivery.yaml"),
		ussdgw.WithSessionTimeout(5*time.Minute),
	)
	if err != nil {
		log.Fatal(err)
	}

	d := gw.Handle(ctx, domain.Request{
		SessionID: "ATUid_1",
		Phone:     "+237600000000",
		Input:     "",
	})
	fmt.Println(d) // CON Welcome to PackND ...

Without options the gateway serves the embedded delivery automaton and keeps
sessions, users and shipments in memory. Production deployments pass a Redis
session store and a relational repository.

# Packages

  - pkg/automaton: configuration parsing, validation, graph queries and the resolver
  - pkg/session: session lifecycle with per-session locking and expiry
  - pkg/dialog: the request orchestrator
  - pkg/validation and pkg/registry: validation tags and business hooks
  - pkg/delivery: pricing, shipments, tracking and registration hooks
*/
package ussdgw
