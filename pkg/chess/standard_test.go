package chess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/pairing-server/internal/color"
)

func play(t *testing.T, e *Standard, pos Position, moves ...Move) Position {
	t.Helper()
	for _, mv := range moves {
		next, _, err := e.Apply(pos, mv)
		require.NoError(t, err, "move %s%s", mv.From, mv.To)
		pos = next
	}
	return pos
}

func TestApplyLegalMove(t *testing.T) {
	e := NewStandard()
	start := e.NewPosition()

	next, rec, err := e.Apply(start, Move{From: "e2", To: "e4"})
	require.NoError(t, err)

	assert.Equal(t, color.White, rec.Color)
	assert.Equal(t, "e2", rec.From)
	assert.Equal(t, "e4", rec.To)
	assert.Equal(t, "p", rec.Piece)
	assert.Equal(t, "e4", rec.SAN)
	assert.Equal(t, "e2e4", rec.UCI)
	assert.Equal(t, color.Black, next.Turn())
	assert.NotEqual(t, start.FEN(), next.FEN())
	assert.Equal(t, color.White, start.Turn(), "original position is untouched")
}

func TestApplyIllegalMove(t *testing.T) {
	e := NewStandard()
	start := e.NewPosition()

	_, _, err := e.Apply(start, Move{From: "e2", To: "e5"})
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, _, err = e.Apply(start, Move{From: "z9", To: "e4"})
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, _, err = e.Apply(start, Move{From: "e7", To: "e5"})
	assert.ErrorIs(t, err, ErrIllegalMove, "black cannot move first")
}

func TestApplyIgnoresPromotionOnRegularMove(t *testing.T) {
	e := NewStandard()

	_, rec, err := e.Apply(e.NewPosition(), Move{From: "g1", To: "f3", Promotion: "q"})
	require.NoError(t, err)
	assert.Equal(t, "", rec.Promotion)
	assert.Equal(t, "n", rec.Piece)
}

func TestApplyDefaultsPromotionToQueen(t *testing.T) {
	e := NewStandard()
	pos, err := e.FromFEN("8/P7/8/8/8/8/8/k6K w - - 0 1")
	require.NoError(t, err)

	_, rec, err := e.Apply(pos, Move{From: "a7", To: "a8"})
	require.NoError(t, err)
	assert.Equal(t, "q", rec.Promotion)

	_, rec, err = e.Apply(pos, Move{From: "a7", To: "a8", Promotion: "n"})
	require.NoError(t, err)
	assert.Equal(t, "n", rec.Promotion)
}

func TestOutcomeCheckmate(t *testing.T) {
	e := NewStandard()
	pos := play(t, e, e.NewPosition(),
		Move{From: "f2", To: "f3"},
		Move{From: "e7", To: "e5"},
		Move{From: "g2", To: "g4"},
		Move{From: "d8", To: "h4"},
	)

	out := e.Outcome(pos)
	assert.True(t, out.Terminal)
	assert.Equal(t, color.Black, out.Winner)
	assert.Equal(t, MethodCheckmate, out.Method)
}

func TestOutcomeStalemate(t *testing.T) {
	e := NewStandard()
	pos, err := e.FromFEN("7k/8/6K1/8/8/8/5Q2/8 w - - 0 1")
	require.NoError(t, err)

	pos = play(t, e, pos, Move{From: "f2", To: "f7"})

	out := e.Outcome(pos)
	assert.True(t, out.Terminal)
	assert.Equal(t, color.Color(""), out.Winner)
	assert.Equal(t, MethodStalemate, out.Method)
}

func TestOutcomeOngoing(t *testing.T) {
	e := NewStandard()
	out := e.Outcome(e.NewPosition())

	assert.False(t, out.Terminal)
	assert.Equal(t, MethodNone, out.Method)
}

func TestFromFENRejectsGarbage(t *testing.T) {
	_, err := NewStandard().FromFEN("not a fen")
	assert.Error(t, err)
}
