/*
Package session implements the session context store of the gateway.

The Manager layers the dialog rules on top of a raw ports.SessionStore:
idle expiry enforced on every read, per-session mutual exclusion (in process,
and across replicas when a DistributedLocker is configured) and a background
sweep that removes abandoned dialogs.
*/
package session
