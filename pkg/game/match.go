// Package game holds the authoritative state machine of a single match.
package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/chess"
)

// Identity identifies a player independently of the connection carrying it.
type Identity string

// Status is the lifecycle state of a match
type Status string

// Status only moves forward: waiting -> playing -> ended.
const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// CreateMatchParams configures a new match
type CreateMatchParams struct {
	ID          uuid.UUID // generated when zero
	White       Identity
	Black       Identity
	TimeControl chess.TimeControl
	Engine      chess.Engine

	// Waiting creates the match in StatusWaiting; Start moves it to playing.
	Waiting bool

	Now    func() time.Time
	Logger *zap.Logger
}

// Match is one game between two bound players. All exported methods are safe
// for concurrent use; mutations of one match are serialized by its lock.
type Match struct {
	ID          uuid.UUID
	TimeControl chess.TimeControl
	CreatedAt   time.Time

	players map[color.Color]Identity
	engine  chess.Engine
	board   chess.Position
	clocks  map[color.Color]chess.Clock
	turn    color.Color
	status  Status
	result  *Result
	history []chess.MoveRecord

	lastMoveAt time.Time
	endedAt    time.Time

	now    func() time.Time
	logger *zap.Logger

	mu sync.Mutex
}

// MoveOutcome is what a move attempt produced. Record is nil when the move
// was rejected because the mover's clock had run out; Result is set whenever
// the match ended as part of the attempt.
type MoveOutcome struct {
	Record   *chess.MoveRecord
	Snapshot Snapshot
	Result   *Result
}

// TimedOut reports whether the attempt ended the match on time
func (o MoveOutcome) TimedOut() bool {
	return o.Record == nil && o.Result != nil && o.Result.Reason == ReasonTimeout
}

// NewMatch creates a match with colors already assigned
func NewMatch(params CreateMatchParams) (*Match, error) {
	if params.White == "" || params.Black == "" {
		return nil, errors.New("both players are required")
	}
	if params.White == params.Black {
		return nil, errors.New("a player cannot play against themselves")
	}
	if params.Engine == nil {
		return nil, errors.New("rules engine is required")
	}

	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	now := params.Now
	if now == nil {
		now = time.Now
	}

	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	board := params.Engine.NewPosition()
	status := StatusPlaying
	if params.Waiting {
		status = StatusWaiting
	}

	created := now()
	m := &Match{
		ID:          id,
		TimeControl: params.TimeControl,
		CreatedAt:   created,

		players: map[color.Color]Identity{
			color.White: params.White,
			color.Black: params.Black,
		},
		engine: params.Engine,
		board:  board,
		clocks: map[color.Color]chess.Clock{
			color.White: chess.NewClock(params.TimeControl),
			color.Black: chess.NewClock(params.TimeControl),
		},
		turn:   board.Turn(),
		status: status,

		lastMoveAt: created,

		now:    now,
		logger: logger.With(zap.String("match_id", id.String())),
	}

	return m, nil
}

// Start moves a waiting match into play and starts the clock of the side to
// move.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusWaiting {
		return ErrGameNotInProgress
	}

	m.status = StatusPlaying
	m.lastMoveAt = m.now()

	return nil
}

// Join returns the bound color of identity and the current state. Repeated
// joins are harmless.
func (m *Match) Join(identity Identity) (color.Color, Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.colorOfLocked(identity)
	if err != nil {
		return "", Snapshot{}, err
	}

	return c, m.snapshotLocked(), nil
}

// MakeMove validates and applies a move for identity.
func (m *Match) MakeMove(identity Identity, mv chess.Move) (MoveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.colorOfLocked(identity)
	if err != nil {
		return MoveOutcome{}, err
	}
	if m.status != StatusPlaying {
		return MoveOutcome{}, ErrGameNotInProgress
	}
	if c != m.turn {
		return MoveOutcome{}, ErrNotYourTurn
	}

	now := m.now()
	clock := m.clocks[c].Deduct(now.Sub(m.lastMoveAt))

	// Flag fall is detected before legality; the move is never applied.
	if clock.Expired() {
		m.clocks[c] = clock
		result := Result{Winner: c.Opp(), Reason: ReasonTimeout}
		m.endLocked(result, now)

		return MoveOutcome{Snapshot: m.snapshotLocked(), Result: &result}, nil
	}

	next, record, err := m.engine.Apply(m.board, mv)
	if err != nil {
		if errors.Is(err, chess.ErrIllegalMove) {
			return MoveOutcome{}, fmt.Errorf("%w: %s-%s", ErrIllegalMove, mv.From, mv.To)
		}
		return MoveOutcome{}, err
	}

	m.clocks[c] = clock.AddIncrement()
	m.lastMoveAt = now
	m.board = next
	m.turn = next.Turn()
	m.history = append(m.history, record)

	m.logger.Debug(
		"processed move",
		zap.String("move", record.UCI),
		zap.String("new_turn", string(m.turn)),
		zap.String("clock", chess.FormatClockTime(m.clocks[c].Millis())),
	)

	outcome := MoveOutcome{Record: &record}
	if o := m.engine.Outcome(next); o.Terminal {
		result := resultFromOutcome(o)
		m.endLocked(result, now)
		outcome.Result = &result
	}
	outcome.Snapshot = m.snapshotLocked()

	return outcome, nil
}

// Resign ends the match in favor of the opponent of identity
func (m *Match) Resign(identity Identity) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.colorOfLocked(identity)
	if err != nil {
		return Result{}, err
	}
	if m.status != StatusPlaying {
		return Result{}, ErrGameNotInProgress
	}

	result := Result{Winner: c.Opp(), Reason: ReasonResignation}
	m.settleLocked()
	m.endLocked(result, m.now())

	return result, nil
}

// OfferDraw returns the color of the offering player. It does not change the
// match state.
func (m *Match) OfferDraw(identity Identity) (color.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.colorOfLocked(identity)
	if err != nil {
		return "", err
	}
	if m.status != StatusPlaying {
		return "", ErrGameNotInProgress
	}

	return c, nil
}

// AcceptDraw ends the match as a draw by agreement. No prior offer is
// required.
func (m *Match) AcceptDraw(identity Identity) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.colorOfLocked(identity); err != nil {
		return Result{}, err
	}
	if m.status != StatusPlaying {
		return Result{}, ErrGameNotInProgress
	}

	result := Result{Reason: ReasonAgreement}
	m.settleLocked()
	m.endLocked(result, m.now())

	return result, nil
}

// HandleDisconnect ends a playing match in favor of the opponent of
// identity. ended is true only for the call that performed the transition.
func (m *Match) HandleDisconnect(identity Identity) (result Result, ended bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.colorOfLocked(identity)
	if err != nil {
		return Result{}, false, err
	}
	if m.status != StatusPlaying {
		if m.result != nil {
			return *m.result, false, nil
		}
		return Result{}, false, nil
	}

	result = Result{Winner: c.Opp(), Reason: ReasonDisconnection}
	m.settleLocked()
	m.endLocked(result, m.now())

	return result, true, nil
}

// ColorOf returns the color bound to identity
func (m *Match) ColorOf(identity Identity) (color.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.colorOfLocked(identity)
}

// Player returns the identity bound to c
func (m *Match) Player(c color.Color) Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.players[c]
}

// HasPlayer reports whether identity is one of the two players
func (m *Match) HasPlayer(identity Identity) bool {
	_, err := m.ColorOf(identity)
	return err == nil
}

// Status returns the current lifecycle state
func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}

// EndedAt returns when the match ended and whether it has
func (m *Match) EndedAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.endedAt, m.status == StatusEnded
}

// Snapshot returns a copy of the current state
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

// Summary describes an ended match for archiving. ok is false while the match
// is still running.
func (m *Match) Summary() (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusEnded || m.result == nil {
		return Summary{}, false
	}

	san := make([]string, len(m.history))
	for i, rec := range m.history {
		san[i] = rec.SAN
	}

	return Summary{
		ID:          m.ID.String(),
		White:       m.players[color.White],
		Black:       m.players[color.Black],
		TimeControl: m.TimeControl.String(),
		Result:      *m.result,
		ResultText:  m.result.String(),
		MovesSAN:    san,
		FinalFEN:    m.board.FEN(),
		StartedAt:   m.CreatedAt,
		EndedAt:     m.endedAt,
	}, true
}

func (m *Match) colorOfLocked(identity Identity) (color.Color, error) {
	for c, id := range m.players {
		if id == identity {
			return c, nil
		}
	}

	return "", ErrNotAParticipant
}

// settleLocked charges the side to move for the time spent since the last
// move so that final clocks are accurate.
func (m *Match) settleLocked() {
	now := m.now()
	m.clocks[m.turn] = m.clocks[m.turn].Deduct(now.Sub(m.lastMoveAt))
	m.lastMoveAt = now
}

func (m *Match) endLocked(result Result, at time.Time) {
	m.status = StatusEnded
	m.result = &result
	m.endedAt = at

	m.logger.Info(
		"match ended",
		zap.String("result", result.String()),
		zap.Int("moves", len(m.history)),
	)
}

func (m *Match) snapshotLocked() Snapshot {
	history := make([]chess.MoveRecord, len(m.history))
	copy(history, m.history)

	var result *Result
	if m.result != nil {
		r := *m.result
		result = &r
	}

	return Snapshot{
		ID:          m.ID.String(),
		Status:      m.status,
		Board:       m.board.FEN(),
		WhiteTime:   m.clocks[color.White].Millis(),
		BlackTime:   m.clocks[color.Black].Millis(),
		Turn:        m.turn,
		MoveHistory: history,
		Result:      result,
	}
}
