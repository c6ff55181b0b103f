package chess

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/tecu23/pairing-server/internal/color"
)

// Standard is the Engine for regular chess, backed by corentings/chess.
type Standard struct{}

// NewStandard returns the standard chess rules engine
func NewStandard() *Standard {
	return &Standard{}
}

type standardPosition struct {
	game *nchess.Game
}

func (p *standardPosition) FEN() string { return p.game.FEN() }

func (p *standardPosition) Turn() color.Color { return colorFrom(p.game.Position().Turn()) }

// NewPosition returns the standard starting position
func (s *Standard) NewPosition() Position {
	return &standardPosition{game: nchess.NewGame()}
}

// FromFEN builds a position from a FEN string.
func (s *Standard) FromFEN(fen string) (Position, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}

	return &standardPosition{game: nchess.NewGame(opt)}, nil
}

// Apply plays mv on a copy of pos. When no promotion piece is given for a
// pawn reaching the last rank, the pawn promotes to a queen. A promotion
// piece sent with a non-promoting move is ignored.
func (s *Standard) Apply(pos Position, mv Move) (Position, MoveRecord, error) {
	sp, ok := pos.(*standardPosition)
	if !ok {
		return nil, MoveRecord{}, fmt.Errorf("unsupported position type %T", pos)
	}

	from := strings.ToLower(strings.TrimSpace(mv.From))
	to := strings.ToLower(strings.TrimSpace(mv.To))
	promo := strings.ToLower(strings.TrimSpace(mv.Promotion))
	if !validSquare(from) || !validSquare(to) {
		return nil, MoveRecord{}, ErrIllegalMove
	}

	candidates := []string{from + to + promo}
	if promo == "" {
		candidates = append(candidates, from+to+"q")
	} else {
		candidates = append(candidates, from+to)
	}

	before := sp.game.Position()
	notation := nchess.UCINotation{}
	for _, uci := range candidates {
		m, err := notation.Decode(before, uci)
		if err != nil {
			continue
		}

		next := sp.game.Clone()
		if err := next.Move(m, nil); err != nil {
			continue
		}

		record := MoveRecord{
			Color:     colorFrom(before.Turn()),
			From:      m.S1().String(),
			To:        m.S2().String(),
			Promotion: pieceLetter(m.Promo()),
			Piece:     pieceLetter(before.Board().Piece(m.S1()).Type()),
			SAN:       nchess.AlgebraicNotation{}.Encode(before, m),
			UCI:       notation.Encode(before, m),
		}

		return &standardPosition{game: next}, record, nil
	}

	return nil, MoveRecord{}, ErrIllegalMove
}

// Outcome reports checkmate first, then the draw conditions of the position.
// Threefold repetition and the fifty-move rule end the game as soon as they
// become claimable.
func (s *Standard) Outcome(pos Position) Outcome {
	sp, ok := pos.(*standardPosition)
	if !ok {
		return Outcome{}
	}

	g := sp.game
	switch g.Outcome() {
	case nchess.WhiteWon:
		return Outcome{Terminal: true, Winner: color.White, Method: MethodCheckmate}
	case nchess.BlackWon:
		return Outcome{Terminal: true, Winner: color.Black, Method: MethodCheckmate}
	case nchess.Draw:
		return Outcome{Terminal: true, Method: drawMethod(g.Method())}
	}

	for _, m := range g.EligibleDraws() {
		switch m {
		case nchess.ThreefoldRepetition:
			return Outcome{Terminal: true, Method: MethodRepetition}
		case nchess.FiftyMoveRule:
			return Outcome{Terminal: true, Method: MethodFiftyMoveRule}
		}
	}

	return Outcome{}
}

func drawMethod(m nchess.Method) Method {
	switch m {
	case nchess.Stalemate:
		return MethodStalemate
	case nchess.InsufficientMaterial:
		return MethodInsufficientMaterial
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return MethodRepetition
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return MethodFiftyMoveRule
	default:
		return MethodDraw
	}
}

func colorFrom(c nchess.Color) color.Color {
	if c == nchess.Black {
		return color.Black
	}

	return color.White
}

func pieceLetter(pt nchess.PieceType) string {
	switch pt {
	case nchess.King:
		return "k"
	case nchess.Queen:
		return "q"
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	case nchess.Pawn:
		return "p"
	}

	return ""
}

func validSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
