/*
Package automaton loads, validates and queries the dialog graph.

A Graph is built once from a Definition (JSON or YAML) and is read-only
afterwards. Every structural problem found while loading is reported at once
through a *domain.GraphLoadError. Resolve picks the transition for a piece of
user input, and Holder publishes new graphs atomically for hot reload.
*/
package automaton
