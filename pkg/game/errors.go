package game

import "errors"

// Errors returned by match operations. None of them mutate state.
var (
	ErrGameNotFound      = errors.New("game not found")
	ErrNotAParticipant   = errors.New("you are not a player in this game")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalMove       = errors.New("invalid move")
	ErrGameNotInProgress = errors.New("game is not in progress")
)
