// Package matchmaker pairs waiting players that asked for the same time
// control.
package matchmaker

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/chess"
	"github.com/tecu23/pairing-server/pkg/game"
)

// ErrQueueEntryAbsent is returned by Cancel when the identity was not queued.
// Callers treat it as a no-op.
var ErrQueueEntryAbsent = errors.New("no queue entry for player")

// QueueEntry is one waiting search request
type QueueEntry struct {
	Identity    game.Identity
	TimeControl int // minutes
	Increment   int // seconds
	EnqueuedAt  time.Time
}

// Pairing is the result of a successful search
type Pairing struct {
	Match *game.Match
	White game.Identity
	Black game.Identity
}

// MatchFactory builds the match for a pairing. Colors are already decided.
type MatchFactory func(white, black game.Identity, tc chess.TimeControl) (*game.Match, error)

// CoinFlip reports whether the newcomer plays white.
type CoinFlip func() bool

// Matchmaker is a FIFO queue scanned for the first entry with identical
// criteria. Enqueue, Cancel and the pairing scan share one lock.
type Matchmaker struct {
	mu    sync.Mutex
	queue []QueueEntry

	newMatch MatchFactory
	flip     CoinFlip
	now      func() time.Time
	logger   *zap.Logger
}

// Option customizes a Matchmaker
type Option func(*Matchmaker)

// WithCoinFlip replaces the crypto/rand coin flip
func WithCoinFlip(f CoinFlip) Option {
	return func(m *Matchmaker) { m.flip = f }
}

// WithClock replaces time.Now for enqueue timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Matchmaker) { m.now = now }
}

// New creates an empty matchmaker
func New(factory MatchFactory, logger *zap.Logger, opts ...Option) *Matchmaker {
	m := &Matchmaker{
		newMatch: factory,
		flip:     randomFlip,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Enqueue either pairs identity with the oldest compatible entry or queues
// it. A nil Pairing means the caller keeps waiting. Duplicate requests from
// the same identity create duplicate entries; an identity is never paired
// with itself.
func (m *Matchmaker) Enqueue(identity game.Identity, timeControl, increment int) (*Pairing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, e := range m.queue {
		if e.Identity == identity {
			continue
		}
		if e.TimeControl == timeControl && e.Increment == increment {
			idx = i
			break
		}
	}

	if idx == -1 {
		m.queue = append(m.queue, QueueEntry{
			Identity:    identity,
			TimeControl: timeControl,
			Increment:   increment,
			EnqueuedAt:  m.now(),
		})
		m.logger.Info(
			"player added to queue",
			zap.String("identity", string(identity)),
			zap.Int("time_control", timeControl),
			zap.Int("increment", increment),
			zap.Int("queue_size", len(m.queue)),
		)
		return nil, nil
	}

	opponent := m.queue[idx]
	white, black := identity, opponent.Identity
	if !m.flip() {
		white, black = black, white
	}

	match, err := m.newMatch(white, black, chess.NewTimeControl(timeControl, increment))
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)

	m.logger.Info(
		"players paired",
		zap.String("match_id", match.ID.String()),
		zap.String("white", string(white)),
		zap.String("black", string(black)),
		zap.Duration("waited", m.now().Sub(opponent.EnqueuedAt)),
	)

	return &Pairing{Match: match, White: white, Black: black}, nil
}

// Cancel removes the oldest entry of identity
func (m *Matchmaker) Cancel(identity game.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.queue {
		if e.Identity == identity {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			m.logger.Info(
				"player removed from queue",
				zap.String("identity", string(identity)),
				zap.Int("queue_size", len(m.queue)),
			)
			return nil
		}
	}

	return ErrQueueEntryAbsent
}

// CancelAll removes every entry of identity and returns how many were
// dropped. Used when the player goes away entirely.
func (m *Matchmaker) CancelAll(identity game.Identity) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.queue[:0]
	for _, e := range m.queue {
		if e.Identity != identity {
			kept = append(kept, e)
		}
	}
	removed := len(m.queue) - len(kept)
	m.queue = kept

	return removed
}

// Len returns the number of waiting entries
func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queue)
}

// Entries returns a copy of the queue in order
func (m *Matchmaker) Entries() []QueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]QueueEntry, len(m.queue))
	copy(out, m.queue)
	return out
}

func randomFlip() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return time.Now().UnixNano()%2 == 0
	}

	return n.Int64() == 0
}
