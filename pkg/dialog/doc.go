// Package dialog implements the per-request control loop of the gateway.
//
// An Orchestrator receives one aggregator callback at a time, loads or starts
// the session, resolves the transition for the typed input, validates it,
// runs business hooks on the landed state and answers with a CON or END
// directive. Every request for a given session id runs inside the session
// lock, so the load-mutate-save cycle is a single critical section.
package dialog
