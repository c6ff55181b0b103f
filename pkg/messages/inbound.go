package messages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tecu23/pairing-server/pkg/chess"
)

// ErrBadRequest wraps every parse or validation failure of an inbound message
var ErrBadRequest = errors.New("bad request")

// Limits applied to inbound payloads
const (
	DefaultTimeControl = 10 // minutes
	DefaultIncrement   = 0  // seconds
	MaxTimeControl     = 180
	MaxIncrement       = 60
	MaxChatLength      = 500
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types
const (
	TypeFindGame     = "find_game"
	TypeCancelSearch = "cancel_search"
	TypeJoinGame     = "join_game"
	TypeMakeMove     = "make_move"
	TypeResign       = "resign"
	TypeOfferDraw    = "offer_draw"
	TypeAcceptDraw   = "accept_draw"
	TypeSendMessage  = "send_message"
	TypeLeaveGame    = "leave_game"
)

// Intent is one of the inbound payload types below. The set is closed.
type Intent interface {
	Type() string
}

// FindGame asks the matchmaker for an opponent
type FindGame struct {
	TimeControl int // minutes
	Increment   int // seconds
}

// CancelSearch withdraws a pending search
type CancelSearch struct{}

// JoinGame subscribes the connection to a match
type JoinGame struct {
	MatchID uuid.UUID
}

// MakeMove plays a move. A nil MatchID targets the connection's bound match;
// the same holds for the other match scoped intents.
type MakeMove struct {
	MatchID uuid.UUID
	Move    chess.Move
}

// Resign gives up the match
type Resign struct {
	MatchID uuid.UUID
}

// OfferDraw proposes a draw to the opponent
type OfferDraw struct {
	MatchID uuid.UUID
}

// AcceptDraw ends the match as a draw
type AcceptDraw struct {
	MatchID uuid.UUID
}

// SendMessage relays a chat line to the match
type SendMessage struct {
	MatchID uuid.UUID
	Text    string
}

// LeaveGame unsubscribes the connection from a match
type LeaveGame struct {
	MatchID uuid.UUID
}

func (FindGame) Type() string     { return TypeFindGame }
func (CancelSearch) Type() string { return TypeCancelSearch }
func (JoinGame) Type() string     { return TypeJoinGame }
func (MakeMove) Type() string     { return TypeMakeMove }
func (Resign) Type() string       { return TypeResign }
func (OfferDraw) Type() string    { return TypeOfferDraw }
func (AcceptDraw) Type() string   { return TypeAcceptDraw }
func (SendMessage) Type() string  { return TypeSendMessage }
func (LeaveGame) Type() string    { return TypeLeaveGame }

type findGamePayload struct {
	TimeControl *int `json:"timeControl"`
	Increment   *int `json:"increment"`
}

type matchPayload struct {
	MatchID string `json:"matchId"`
}

type makeMovePayload struct {
	MatchID string     `json:"matchId"`
	Move    chess.Move `json:"move"`
}

type sendMessagePayload struct {
	MatchID string `json:"matchId"`
	Text    string `json:"text"`
}

// Parse decodes and validates a raw client frame.
func Parse(raw []byte) (Intent, error) {
	var msg InboundMessage
	if err := decodeStrict(raw, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case TypeFindGame:
		var p findGamePayload
		if err := decodeStrict(msg.Payload, &p); err != nil {
			return nil, err
		}
		fg := FindGame{TimeControl: DefaultTimeControl, Increment: DefaultIncrement}
		if p.TimeControl != nil {
			fg.TimeControl = *p.TimeControl
		}
		if p.Increment != nil {
			fg.Increment = *p.Increment
		}
		if fg.TimeControl < 1 || fg.TimeControl > MaxTimeControl {
			return nil, badRequest("timeControl must be between 1 and %d minutes", MaxTimeControl)
		}
		if fg.Increment < 0 || fg.Increment > MaxIncrement {
			return nil, badRequest("increment must be between 0 and %d seconds", MaxIncrement)
		}
		return fg, nil

	case TypeCancelSearch:
		var p struct{}
		if err := decodeStrict(msg.Payload, &p); err != nil {
			return nil, err
		}
		return CancelSearch{}, nil

	case TypeJoinGame:
		id, err := parseMatchPayload(msg.Payload, true)
		if err != nil {
			return nil, err
		}
		return JoinGame{MatchID: id}, nil

	case TypeMakeMove:
		var p makeMovePayload
		if err := decodeStrict(msg.Payload, &p); err != nil {
			return nil, err
		}
		id, err := parseMatchID(p.MatchID, false)
		if err != nil {
			return nil, err
		}
		mv, err := validateMove(p.Move)
		if err != nil {
			return nil, err
		}
		return MakeMove{MatchID: id, Move: mv}, nil

	case TypeResign, TypeOfferDraw, TypeAcceptDraw, TypeLeaveGame:
		id, err := parseMatchPayload(msg.Payload, false)
		if err != nil {
			return nil, err
		}
		switch msg.Type {
		case TypeResign:
			return Resign{MatchID: id}, nil
		case TypeOfferDraw:
			return OfferDraw{MatchID: id}, nil
		case TypeAcceptDraw:
			return AcceptDraw{MatchID: id}, nil
		default:
			return LeaveGame{MatchID: id}, nil
		}

	case TypeSendMessage:
		var p sendMessagePayload
		if err := decodeStrict(msg.Payload, &p); err != nil {
			return nil, err
		}
		id, err := parseMatchID(p.MatchID, false)
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(p.Text)
		if text == "" {
			return nil, badRequest("text is required")
		}
		if utf8.RuneCountInString(text) > MaxChatLength {
			return nil, badRequest("text is longer than %d characters", MaxChatLength)
		}
		return SendMessage{MatchID: id, Text: text}, nil

	case "":
		return nil, badRequest("message type is required")
	}

	return nil, badRequest("unknown message type %q", msg.Type)
}

func parseMatchPayload(raw json.RawMessage, required bool) (uuid.UUID, error) {
	var p matchPayload
	if err := decodeStrict(raw, &p); err != nil {
		return uuid.Nil, err
	}

	return parseMatchID(p.MatchID, required)
}

func parseMatchID(s string, required bool) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return uuid.Nil, badRequest("matchId is required")
		}
		return uuid.Nil, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, badRequest("matchId %q is not a valid id", s)
	}

	return id, nil
}

func validateMove(mv chess.Move) (chess.Move, error) {
	mv.From = strings.ToLower(strings.TrimSpace(mv.From))
	mv.To = strings.ToLower(strings.TrimSpace(mv.To))
	mv.Promotion = strings.ToLower(strings.TrimSpace(mv.Promotion))

	if !isSquare(mv.From) || !isSquare(mv.To) {
		return chess.Move{}, badRequest("move squares must look like e2 and e4")
	}

	switch mv.Promotion {
	case "", "q", "r", "b", "n":
	default:
		return chess.Move{}, badRequest("promotion must be one of q, r, b, n")
	}

	return mv, nil
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// decodeStrict rejects unknown fields and trailing data. An empty or null
// payload decodes to the zero value.
func decodeStrict(raw []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if dec.More() {
		return badRequest("unexpected data after payload")
	}

	return nil
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
