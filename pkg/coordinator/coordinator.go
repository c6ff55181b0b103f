// Package coordinator routes player intents to the matchmaker or to the
// targeted match and fans the results out to bound connections.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/events"
	"github.com/tecu23/pairing-server/pkg/game"
	"github.com/tecu23/pairing-server/pkg/matchmaker"
	"github.com/tecu23/pairing-server/pkg/messages"
	"github.com/tecu23/pairing-server/pkg/registry"
)

// Recipient is a live connection
type Recipient = registry.Recipient

// Coordinator owns no locks of its own. Every send happens after the
// matchmaker or match lock has been released.
type Coordinator struct {
	registry   *registry.Registry
	matchmaker *matchmaker.Matchmaker
	publisher  *events.Publisher

	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Coordinator
type Option func(*Coordinator)

// WithClock replaces time.Now for chat timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New wires a coordinator
func New(
	reg *registry.Registry,
	mm *matchmaker.Matchmaker,
	publisher *events.Publisher,
	logger *zap.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		registry:   reg,
		matchmaker: mm,
		publisher:  publisher,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect registers a new connection and greets it with its identity
func (c *Coordinator) Connect(r Recipient) {
	c.registry.Connect(r)
	r.Send(messages.Connected(r.Identity()))

	c.logger.Info(
		"connection registered",
		zap.String("connection_id", r.ID()),
		zap.String("identity", string(r.Identity())),
	)
}

// HandleRaw parses a client frame and handles it
func (c *Coordinator) HandleRaw(ctx context.Context, r Recipient, raw []byte) {
	intent, err := messages.Parse(raw)
	if err != nil {
		c.sendError(r, err)
		return
	}

	c.Handle(ctx, r, intent)
}

// Handle processes one intent for r. Failures are reported to r only.
func (c *Coordinator) Handle(ctx context.Context, r Recipient, intent messages.Intent) {
	if ctx.Err() != nil {
		return
	}

	var err error
	switch in := intent.(type) {
	case messages.FindGame:
		err = c.findGame(r, in)
	case messages.CancelSearch:
		c.cancelSearch(r)
	case messages.JoinGame:
		err = c.joinGame(r, in.MatchID)
	case messages.MakeMove:
		err = c.makeMove(r, in)
	case messages.Resign:
		err = c.resign(r, in.MatchID)
	case messages.OfferDraw:
		err = c.offerDraw(r, in.MatchID)
	case messages.AcceptDraw:
		err = c.acceptDraw(r, in.MatchID)
	case messages.SendMessage:
		err = c.sendMessage(r, in)
	case messages.LeaveGame:
		c.leaveGame(r, in.MatchID)
	default:
		err = messages.ErrBadRequest
	}

	if err != nil {
		c.logger.Debug(
			"intent rejected",
			zap.String("connection_id", r.ID()),
			zap.String("type", intent.Type()),
			zap.Error(err),
		)
		c.sendError(r, err)
	}
}

// Disconnect cleans up after a dropped connection. Queue entries are
// cancelled and playing matches forfeited only once the identity has no
// other live connection.
func (c *Coordinator) Disconnect(r Recipient) {
	_, remaining := c.registry.Disconnect(r)

	c.logger.Info(
		"connection unregistered",
		zap.String("connection_id", r.ID()),
		zap.Int("remaining", remaining),
	)

	if remaining > 0 {
		return
	}

	identity := r.Identity()
	if n := c.matchmaker.CancelAll(identity); n > 0 {
		c.logger.Info("cancelled queued searches", zap.String("identity", string(identity)), zap.Int("count", n))
	}

	for _, m := range c.registry.MatchesFor(identity) {
		result, ended, err := m.HandleDisconnect(identity)
		if err != nil || !ended {
			continue
		}

		loser := result.Winner.Opp()
		c.broadcast(m.ID, messages.Chat(messages.SenderSystem, loser.Title()+" disconnected", c.now()))
		c.finish(m, result)
	}
}

func (c *Coordinator) findGame(r Recipient, in messages.FindGame) error {
	pairing, err := c.matchmaker.Enqueue(r.Identity(), in.TimeControl, in.Increment)
	if err != nil {
		return err
	}
	if pairing == nil {
		return nil
	}

	c.registry.Add(pairing.Match)
	c.publisher.Publish(events.Event{
		Type:    events.EventMatchCreated,
		MatchID: pairing.Match.ID.String(),
		Payload: pairing.Match.Snapshot(),
	})

	found := messages.GameFound(pairing.Match.ID.String())
	for _, identity := range []game.Identity{pairing.White, pairing.Black} {
		for _, rc := range c.registry.Connections(identity) {
			rc.Send(found)
		}
	}

	return nil
}

func (c *Coordinator) cancelSearch(r Recipient) {
	if err := c.matchmaker.Cancel(r.Identity()); err != nil && !errors.Is(err, matchmaker.ErrQueueEntryAbsent) {
		c.logger.Warn("cancel search failed", zap.Error(err))
	}
}

func (c *Coordinator) joinGame(r Recipient, matchID uuid.UUID) error {
	m, err := c.registry.Get(matchID)
	if err != nil {
		return err
	}

	col, snap, err := m.Join(r.Identity())
	if err != nil {
		return err
	}

	c.registry.Bind(r, m.ID, col)
	r.Send(messages.GameJoined(col, snap))
	c.broadcast(m.ID, messages.GameState(snap))

	return nil
}

func (c *Coordinator) makeMove(r Recipient, in messages.MakeMove) error {
	m, err := c.resolve(r, in.MatchID)
	if err != nil {
		return err
	}

	outcome, err := m.MakeMove(r.Identity(), in.Move)
	if err != nil {
		return err
	}

	if outcome.Record != nil {
		c.broadcast(m.ID, messages.MoveMade(*outcome.Record, outcome.Snapshot))
	}
	if outcome.Result != nil {
		c.finish(m, *outcome.Result)
	}

	return nil
}

func (c *Coordinator) resign(r Recipient, matchID uuid.UUID) error {
	m, err := c.resolve(r, matchID)
	if err != nil {
		return err
	}

	result, err := m.Resign(r.Identity())
	if err != nil {
		return err
	}

	c.finish(m, result)
	return nil
}

func (c *Coordinator) offerDraw(r Recipient, matchID uuid.UUID) error {
	m, err := c.resolve(r, matchID)
	if err != nil {
		return err
	}

	by, err := m.OfferDraw(r.Identity())
	if err != nil {
		return err
	}

	opponent := m.Player(by.Opp())
	offer := messages.DrawOffered(by)
	for _, rc := range c.registry.Subscribers(m.ID) {
		if rc.Identity() == opponent {
			rc.Send(offer)
		}
	}

	notice := messages.Chat(messages.SenderSystem, by.Title()+" offered a draw", c.now())
	c.sendToMatch(r, m.ID, notice)

	return nil
}

func (c *Coordinator) acceptDraw(r Recipient, matchID uuid.UUID) error {
	m, err := c.resolve(r, matchID)
	if err != nil {
		return err
	}

	result, err := m.AcceptDraw(r.Identity())
	if err != nil {
		return err
	}

	c.finish(m, result)
	return nil
}

func (c *Coordinator) sendMessage(r Recipient, in messages.SendMessage) error {
	m, err := c.resolve(r, in.MatchID)
	if err != nil {
		return err
	}

	col, err := m.ColorOf(r.Identity())
	if err != nil {
		return err
	}

	at := c.now()
	public := messages.Chat(senderFor(col), in.Text, at)
	for _, rc := range c.registry.Subscribers(m.ID) {
		if rc.ID() != r.ID() {
			rc.Send(public)
		}
	}
	r.Send(messages.Chat(messages.SenderMe, in.Text, at))

	return nil
}

func (c *Coordinator) leaveGame(r Recipient, matchID uuid.UUID) {
	if matchID == uuid.Nil {
		bound, ok := c.registry.BoundMatch(r.ID())
		if !ok {
			return
		}
		matchID = bound
	}

	c.registry.Unbind(r.ID(), matchID)
}

// resolve returns the match named by id, or the connection's bound match
// when id is nil.
func (c *Coordinator) resolve(r Recipient, id uuid.UUID) (*game.Match, error) {
	if id == uuid.Nil {
		bound, ok := c.registry.BoundMatch(r.ID())
		if !ok {
			return nil, game.ErrGameNotFound
		}
		id = bound
	}

	return c.registry.Get(id)
}

// finish broadcasts the end of a match and publishes it for archiving.
func (c *Coordinator) finish(m *game.Match, result game.Result) {
	c.broadcast(m.ID, messages.GameOver(result))

	summary, ok := m.Summary()
	if !ok {
		return
	}

	c.logger.Info(
		"match finished",
		zap.String("match_id", m.ID.String()),
		zap.String("result", result.String()),
	)

	c.publisher.Publish(events.Event{
		Type:    events.EventMatchEnded,
		MatchID: m.ID.String(),
		Payload: summary,
	})
}

func (c *Coordinator) broadcast(matchID uuid.UUID, msg messages.OutboundMessage) {
	for _, rc := range c.registry.Subscribers(matchID) {
		rc.Send(msg)
	}
}

// sendToMatch broadcasts msg and makes sure r gets it even when not bound.
func (c *Coordinator) sendToMatch(r Recipient, matchID uuid.UUID, msg messages.OutboundMessage) {
	delivered := false
	for _, rc := range c.registry.Subscribers(matchID) {
		rc.Send(msg)
		if rc.ID() == r.ID() {
			delivered = true
		}
	}
	if !delivered {
		r.Send(msg)
	}
}

func (c *Coordinator) sendError(r Recipient, err error) {
	r.Send(messages.Error(errorCode(err), err.Error()))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return messages.CodeGameNotFound
	case errors.Is(err, game.ErrNotAParticipant):
		return messages.CodeNotAParticipant
	case errors.Is(err, game.ErrNotYourTurn):
		return messages.CodeNotYourTurn
	case errors.Is(err, game.ErrIllegalMove):
		return messages.CodeIllegalMove
	case errors.Is(err, game.ErrGameNotInProgress):
		return messages.CodeGameNotInProgress
	case errors.Is(err, messages.ErrBadRequest):
		return messages.CodeBadRequest
	}

	return messages.CodeInternal
}

func senderFor(c color.Color) string {
	if c == color.White {
		return messages.SenderWhite
	}

	return messages.SenderBlack
}
