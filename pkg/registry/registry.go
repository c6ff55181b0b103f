// Package registry is the process wide table of live matches, live
// connections and the bindings between them.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/game"
	"github.com/tecu23/pairing-server/pkg/messages"
)

// Recipient is a live connection that outbound events can be sent to.
// Send must not block.
type Recipient interface {
	ID() string
	Identity() game.Identity
	Send(msg messages.OutboundMessage)
}

// Binding associates a connection with a match and the color it plays.
type Binding struct {
	MatchID uuid.UUID
	Color   color.Color
	BoundAt time.Time
}

// Registry holds shared state behind one lock per table. Match state itself
// is guarded by each match.
type Registry struct {
	matchesMu sync.RWMutex
	matches   map[uuid.UUID]*game.Match

	connsMu    sync.RWMutex
	conns      map[string]Recipient
	byIdentity map[game.Identity]map[string]Recipient

	bindMu      sync.RWMutex
	bindings    map[string]map[uuid.UUID]Binding
	subscribers map[uuid.UUID]map[string]Recipient

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithClock replaces the wall clock used for bindings and sweeps
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates an empty registry
func New(logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		matches:     make(map[uuid.UUID]*game.Match),
		conns:       make(map[string]Recipient),
		byIdentity:  make(map[game.Identity]map[string]Recipient),
		bindings:    make(map[string]map[uuid.UUID]Binding),
		subscribers: make(map[uuid.UUID]map[string]Recipient),
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add stores a match
func (r *Registry) Add(m *game.Match) {
	r.matchesMu.Lock()
	defer r.matchesMu.Unlock()

	r.matches[m.ID] = m
}

// Get retrieves a match by ID
func (r *Registry) Get(id uuid.UUID) (*game.Match, error) {
	r.matchesMu.RLock()
	defer r.matchesMu.RUnlock()

	m, ok := r.matches[id]
	if !ok {
		return nil, game.ErrGameNotFound
	}

	return m, nil
}

// Remove drops a match and every binding to it
func (r *Registry) Remove(id uuid.UUID) {
	r.matchesMu.Lock()
	delete(r.matches, id)
	r.matchesMu.Unlock()

	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	for connID := range r.subscribers[id] {
		delete(r.bindings[connID], id)
		if len(r.bindings[connID]) == 0 {
			delete(r.bindings, connID)
		}
	}
	delete(r.subscribers, id)
}

// MatchesFor returns every live match identity plays in. Nothing prevents an
// identity from being in more than one.
func (r *Registry) MatchesFor(identity game.Identity) []*game.Match {
	r.matchesMu.RLock()
	all := make([]*game.Match, 0, len(r.matches))
	for _, m := range r.matches {
		all = append(all, m)
	}
	r.matchesMu.RUnlock()

	var out []*game.Match
	for _, m := range all {
		if m.HasPlayer(identity) {
			out = append(out, m)
		}
	}

	return out
}

// Count returns the number of stored matches
func (r *Registry) Count() int {
	r.matchesMu.RLock()
	defer r.matchesMu.RUnlock()

	return len(r.matches)
}

// Sweep removes matches that ended more than retention ago, with their
// bindings. It returns how many were removed.
func (r *Registry) Sweep(retention time.Duration) int {
	cutoff := r.now().Add(-retention)

	r.matchesMu.RLock()
	var stale []uuid.UUID
	for id, m := range r.matches {
		if endedAt, ended := m.EndedAt(); ended && !endedAt.After(cutoff) {
			stale = append(stale, id)
		}
	}
	r.matchesMu.RUnlock()

	for _, id := range stale {
		r.Remove(id)
	}

	if len(stale) > 0 {
		r.logger.Info("swept ended matches", zap.Int("count", len(stale)))
	}

	return len(stale)
}

// Connect registers a live connection
func (r *Registry) Connect(rc Recipient) {
	r.connsMu.Lock()
	defer r.connsMu.Unlock()

	r.conns[rc.ID()] = rc
	set, ok := r.byIdentity[rc.Identity()]
	if !ok {
		set = make(map[string]Recipient)
		r.byIdentity[rc.Identity()] = set
	}
	set[rc.ID()] = rc
}

// Disconnect forgets a connection and its bindings. It returns the bindings
// the connection held and how many other connections its identity still has.
func (r *Registry) Disconnect(rc Recipient) ([]Binding, int) {
	r.connsMu.Lock()
	delete(r.conns, rc.ID())
	set := r.byIdentity[rc.Identity()]
	delete(set, rc.ID())
	remaining := len(set)
	if remaining == 0 {
		delete(r.byIdentity, rc.Identity())
	}
	r.connsMu.Unlock()

	return r.UnbindAll(rc.ID()), remaining
}

// Connections returns the live connections of identity
func (r *Registry) Connections(identity game.Identity) []Recipient {
	r.connsMu.RLock()
	defer r.connsMu.RUnlock()

	out := make([]Recipient, 0, len(r.byIdentity[identity]))
	for _, rc := range r.byIdentity[identity] {
		out = append(out, rc)
	}

	return out
}

// ConnectionCount returns the number of live connections
func (r *Registry) ConnectionCount() int {
	r.connsMu.RLock()
	defer r.connsMu.RUnlock()

	return len(r.conns)
}

// Bind subscribes rc to a match as c. Binding again refreshes the binding.
func (r *Registry) Bind(rc Recipient, matchID uuid.UUID, c color.Color) Binding {
	b := Binding{MatchID: matchID, Color: c, BoundAt: r.now()}

	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	set, ok := r.bindings[rc.ID()]
	if !ok {
		set = make(map[uuid.UUID]Binding)
		r.bindings[rc.ID()] = set
	}
	set[matchID] = b

	subs, ok := r.subscribers[matchID]
	if !ok {
		subs = make(map[string]Recipient)
		r.subscribers[matchID] = subs
	}
	subs[rc.ID()] = rc

	return b
}

// Unbind removes the binding of connID to matchID and reports whether one
// existed.
func (r *Registry) Unbind(connID string, matchID uuid.UUID) bool {
	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	return r.unbindLocked(connID, matchID)
}

// UnbindAll removes every binding of connID and returns them
func (r *Registry) UnbindAll(connID string) []Binding {
	r.bindMu.Lock()
	defer r.bindMu.Unlock()

	out := make([]Binding, 0, len(r.bindings[connID]))
	for matchID, b := range r.bindings[connID] {
		out = append(out, b)
		r.unbindLocked(connID, matchID)
	}

	return out
}

func (r *Registry) unbindLocked(connID string, matchID uuid.UUID) bool {
	set, ok := r.bindings[connID]
	if !ok {
		return false
	}
	if _, ok := set[matchID]; !ok {
		return false
	}

	delete(set, matchID)
	if len(set) == 0 {
		delete(r.bindings, connID)
	}

	delete(r.subscribers[matchID], connID)
	if len(r.subscribers[matchID]) == 0 {
		delete(r.subscribers, matchID)
	}

	return true
}

// Subscribers returns the connections bound to a match
func (r *Registry) Subscribers(matchID uuid.UUID) []Recipient {
	r.bindMu.RLock()
	defer r.bindMu.RUnlock()

	out := make([]Recipient, 0, len(r.subscribers[matchID]))
	for _, rc := range r.subscribers[matchID] {
		out = append(out, rc)
	}

	return out
}

// BindingsFor returns the bindings held by connID
func (r *Registry) BindingsFor(connID string) []Binding {
	r.bindMu.RLock()
	defer r.bindMu.RUnlock()

	out := make([]Binding, 0, len(r.bindings[connID]))
	for _, b := range r.bindings[connID] {
		out = append(out, b)
	}

	return out
}

// BoundMatch returns the most recently bound match of connID
func (r *Registry) BoundMatch(connID string) (uuid.UUID, bool) {
	r.bindMu.RLock()
	defer r.bindMu.RUnlock()

	var (
		latest Binding
		found  bool
	)
	for _, b := range r.bindings[connID] {
		if !found || b.BoundAt.After(latest.BoundAt) {
			latest, found = b, true
		}
	}

	return latest.MatchID, found
}
