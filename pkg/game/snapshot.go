package game

import (
	"time"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/chess"
)

// Snapshot is a point-in-time copy of a match. Clock values are the stored
// remaining times; the side to move is charged lazily on its next action.
type Snapshot struct {
	ID          string             `json:"id"`
	Status      Status             `json:"status"`
	Board       string             `json:"boardState"`
	WhiteTime   int64              `json:"whiteTimeMs"`
	BlackTime   int64              `json:"blackTimeMs"`
	Turn        color.Color        `json:"turn"`
	MoveHistory []chess.MoveRecord `json:"moveHistory"`
	Result      *Result            `json:"result,omitempty"`
}

// Summary is the archived form of an ended match
type Summary struct {
	ID          string    `json:"id"`
	White       Identity  `json:"white"`
	Black       Identity  `json:"black"`
	TimeControl string    `json:"timeControl"`
	Result      Result    `json:"result"`
	ResultText  string    `json:"resultText"`
	MovesSAN    []string  `json:"movesSan"`
	FinalFEN    string    `json:"finalFen"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
}
