package lobby

import "errors"

var (
	ErrDuplicateJoin = errors.New("user already in the lobby")
	ErrNotInLobby    = errors.New("user not in this lobby or queue")
	ErrInvalidNumber = errors.New("picked number out of range")
	ErrInvalidPlayer = errors.New("player entry requires a user id and username")
)
