package automaton

import (
	"errors"
	"sync/atomic"
)

// ErrNoSource is returned by Reload when the holder was not built from a file.
var ErrNoSource = errors.New("automaton has no source file to reload from")

// Holder publishes the current graph to concurrent readers.
// Readers keep the snapshot they got; Swap never exposes a half-built graph.
type Holder struct {
	current atomic.Pointer[Graph]
	path    string
	opts    []LoadOption
}

// NewHolder wraps an already loaded graph. path may be empty for embedded graphs.
func NewHolder(g *Graph, path string, opts ...LoadOption) *Holder {
	h := &Holder{path: path, opts: opts}
	h.current.Store(g)
	return h
}

// OpenFile loads the graph at path and returns a holder able to reload it.
func OpenFile(path string, opts ...LoadOption) (*Holder, error) {
	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Load(def, opts...)
	if err != nil {
		return nil, err
	}
	return NewHolder(g, path, opts...), nil
}

// Graph returns the current snapshot.
func (h *Holder) Graph() *Graph {
	return h.current.Load()
}

// Path returns the source file, or "" for embedded graphs.
func (h *Holder) Path() string {
	return h.path
}

// Swap publishes g as the current graph.
func (h *Holder) Swap(g *Graph) {
	h.current.Store(g)
}

// ReloadDefinition builds a new graph from def and publishes it.
// On error the current graph stays in place.
func (h *Holder) ReloadDefinition(def *Definition) (*Graph, error) {
	g, err := Load(def, h.opts...)
	if err != nil {
		return nil, err
	}
	h.Swap(g)
	return g, nil
}

// Reload re-reads the source file and publishes the result.
func (h *Holder) Reload() (*Graph, error) {
	if h.path == "" {
		return nil, ErrNoSource
	}
	def, err := LoadFile(h.path)
	if err != nil {
		return nil, err
	}
	return h.ReloadDefinition(def)
}
