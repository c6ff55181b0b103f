package messages

import (
	"time"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/chess"
	"github.com/tecu23/pairing-server/pkg/game"
)

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Outbound event names
const (
	EventConnected   = "connected"
	EventGameFound   = "game_found"
	EventGameJoined  = "game_joined"
	EventGameState   = "game_state"
	EventMoveMade    = "move_made"
	EventGameOver    = "game_over"
	EventDrawOffered = "draw_offered"
	EventChatMessage = "chat_message"
	EventError       = "error"
)

// Chat senders. Authors receive their own lines labelled SenderMe.
const (
	SenderWhite  = "white"
	SenderBlack  = "black"
	SenderMe     = "me"
	SenderSystem = "system"
)

// Error codes surfaced to clients
const (
	CodeGameNotFound      = "GameNotFound"
	CodeNotAParticipant   = "NotAParticipant"
	CodeNotYourTurn       = "NotYourTurn"
	CodeIllegalMove       = "IllegalMove"
	CodeGameNotInProgress = "GameNotInProgress"
	CodeBadRequest        = "BadRequest"
	CodeInternal          = "Internal"
)

// ConnectedPayload tells a client which identity it plays under
type ConnectedPayload struct {
	Identity string `json:"identity"`
}

// GameFoundPayload is sent to both paired players
type GameFoundPayload struct {
	MatchID string `json:"matchId"`
}

// GameJoinedPayload is sent to the joining connection only
type GameJoinedPayload struct {
	Color     color.Color `json:"color"`
	Status    game.Status `json:"status"`
	Board     string      `json:"boardState"`
	WhiteTime int64       `json:"whiteTimeMs"`
	BlackTime int64       `json:"blackTimeMs"`
	Turn      color.Color `json:"turn"`
}

// GameStatePayload is broadcast to the match when someone joins
type GameStatePayload struct {
	Status      game.Status        `json:"status"`
	Board       string             `json:"boardState"`
	WhiteTime   int64              `json:"whiteTimeMs"`
	BlackTime   int64              `json:"blackTimeMs"`
	Turn        color.Color        `json:"turn"`
	MoveHistory []chess.MoveRecord `json:"moveHistory"`
}

// MoveMadePayload is broadcast after an accepted move
type MoveMadePayload struct {
	Board     string           `json:"boardState"`
	Move      chess.MoveRecord `json:"move"`
	WhiteTime int64            `json:"whiteTimeMs"`
	BlackTime int64            `json:"blackTimeMs"`
	Turn      color.Color      `json:"turn"`
}

// GameOverPayload is broadcast when the match ends
type GameOverPayload struct {
	Result string      `json:"result"`
	Reason game.Reason `json:"reason"`
	Winner color.Color `json:"winner,omitempty"`
}

// DrawOfferedPayload goes to the opponent of the offering player
type DrawOfferedPayload struct {
	ByColor color.Color `json:"byColor"`
}

// ChatMessagePayload is a chat line or a system notice
type ChatMessagePayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// ErrorPayload is sent to the offending connection only
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Connected builds the greeting sent after the websocket upgrade
func Connected(identity game.Identity) OutboundMessage {
	return OutboundMessage{Event: EventConnected, Payload: ConnectedPayload{Identity: string(identity)}}
}

// GameFound builds the pairing notification
func GameFound(matchID string) OutboundMessage {
	return OutboundMessage{Event: EventGameFound, Payload: GameFoundPayload{MatchID: matchID}}
}

// GameJoined builds the joiner's view of the match
func GameJoined(c color.Color, snap game.Snapshot) OutboundMessage {
	return OutboundMessage{
		Event: EventGameJoined,
		Payload: GameJoinedPayload{
			Color:     c,
			Status:    snap.Status,
			Board:     snap.Board,
			WhiteTime: snap.WhiteTime,
			BlackTime: snap.BlackTime,
			Turn:      snap.Turn,
		},
	}
}

// GameState builds the full state broadcast
func GameState(snap game.Snapshot) OutboundMessage {
	return OutboundMessage{
		Event: EventGameState,
		Payload: GameStatePayload{
			Status:      snap.Status,
			Board:       snap.Board,
			WhiteTime:   snap.WhiteTime,
			BlackTime:   snap.BlackTime,
			Turn:        snap.Turn,
			MoveHistory: snap.MoveHistory,
		},
	}
}

// MoveMade builds the move broadcast
func MoveMade(rec chess.MoveRecord, snap game.Snapshot) OutboundMessage {
	return OutboundMessage{
		Event: EventMoveMade,
		Payload: MoveMadePayload{
			Board:     snap.Board,
			Move:      rec,
			WhiteTime: snap.WhiteTime,
			BlackTime: snap.BlackTime,
			Turn:      snap.Turn,
		},
	}
}

// GameOver builds the end of match broadcast
func GameOver(r game.Result) OutboundMessage {
	return OutboundMessage{
		Event:   EventGameOver,
		Payload: GameOverPayload{Result: r.String(), Reason: r.Reason, Winner: r.Winner},
	}
}

// DrawOffered builds the offer notification
func DrawOffered(by color.Color) OutboundMessage {
	return OutboundMessage{Event: EventDrawOffered, Payload: DrawOfferedPayload{ByColor: by}}
}

// Chat builds a chat line stamped with at
func Chat(sender, text string, at time.Time) OutboundMessage {
	return OutboundMessage{
		Event:   EventChatMessage,
		Payload: ChatMessagePayload{Sender: sender, Text: text, Time: at.Format("15:04:05")},
	}
}

// Error builds an error reply
func Error(code, message string) OutboundMessage {
	return OutboundMessage{Event: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}
