package chess

import (
	"errors"

	"github.com/tecu23/pairing-server/internal/color"
)

// ErrIllegalMove is returned by an Engine when a move is not legal in the
// given position.
var ErrIllegalMove = errors.New("illegal move")

// Move is a move intent in coordinate form, as sent by clients.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// MoveRecord is the structured description of an applied move.
type MoveRecord struct {
	Color     color.Color `json:"color"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Promotion string      `json:"promotion,omitempty"`
	Piece     string      `json:"piece"`
	SAN       string      `json:"san"`
	UCI       string      `json:"uci"`
}

// Method is the way a position ended the game.
type Method string

// Terminal methods an Engine can report
const (
	MethodNone                 Method = ""
	MethodCheckmate            Method = "checkmate"
	MethodStalemate            Method = "stalemate"
	MethodInsufficientMaterial Method = "insufficient_material"
	MethodRepetition           Method = "repetition"
	MethodFiftyMoveRule        Method = "fifty_move_rule"
	MethodDraw                 Method = "draw"
)

// Outcome describes whether a position is terminal. Winner is empty for draws.
type Outcome struct {
	Terminal bool
	Winner   color.Color
	Method   Method
}

// Position is an opaque board state owned by an Engine. Positions are never
// mutated once handed out.
type Position interface {
	FEN() string
	Turn() color.Color
}

// Engine validates moves and detects terminal positions. Match code only
// talks to this interface; board representation lives behind it.
type Engine interface {
	NewPosition() Position
	Apply(pos Position, mv Move) (Position, MoveRecord, error)
	Outcome(pos Position) Outcome
}
