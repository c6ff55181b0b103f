package game

import (
	"fmt"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/chess"
)

// Reason is the closed set of ways a match can end.
type Reason string

// Possible end reasons
const (
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonRepetition           Reason = "repetition"
	ReasonFiftyMoveRule        Reason = "fifty_move_rule"
	ReasonDraw                 Reason = "draw"
	ReasonTimeout              Reason = "timeout"
	ReasonResignation          Reason = "resignation"
	ReasonDisconnection        Reason = "disconnection"
	ReasonAgreement            Reason = "agreement"
)

// Result is the outcome of an ended match. Winner is empty for draws.
type Result struct {
	Winner color.Color `json:"winner,omitempty"`
	Reason Reason      `json:"reason"`
}

// IsDraw reports whether nobody won
func (r Result) IsDraw() bool {
	return r.Winner == ""
}

// String renders the result for players, e.g. "White wins on time".
func (r Result) String() string {
	if r.IsDraw() {
		switch r.Reason {
		case ReasonAgreement:
			return "Draw by agreement"
		case ReasonStalemate:
			return "Draw by stalemate"
		case ReasonInsufficientMaterial:
			return "Draw by insufficient material"
		case ReasonRepetition:
			return "Draw by repetition"
		case ReasonFiftyMoveRule:
			return "Draw by fifty-move rule"
		default:
			return "Draw"
		}
	}

	winner := r.Winner.Title()
	switch r.Reason {
	case ReasonTimeout:
		return winner + " wins on time"
	case ReasonCheckmate:
		return winner + " wins by checkmate"
	default:
		return fmt.Sprintf("%s wins by %s", winner, r.Reason)
	}
}

// PGN returns the PGN result token
func (r Result) PGN() string {
	switch r.Winner {
	case color.White:
		return "1-0"
	case color.Black:
		return "0-1"
	}

	return "1/2-1/2"
}

func resultFromOutcome(o chess.Outcome) Result {
	if o.Winner != "" {
		return Result{Winner: o.Winner, Reason: ReasonCheckmate}
	}

	switch o.Method {
	case chess.MethodStalemate:
		return Result{Reason: ReasonStalemate}
	case chess.MethodInsufficientMaterial:
		return Result{Reason: ReasonInsufficientMaterial}
	case chess.MethodRepetition:
		return Result{Reason: ReasonRepetition}
	case chess.MethodFiftyMoveRule:
		return Result{Reason: ReasonFiftyMoveRule}
	}

	return Result{Reason: ReasonDraw}
}
