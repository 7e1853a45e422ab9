package game

import "errors"

// Kind classifies a failure for the delivery layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlayerNotFound  = errors.New("player not found")

	ErrAlreadyJoined      = errors.New("player already joined")
	ErrGameNotJoinable    = errors.New("game is not accepting players")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameNotInProgress  = errors.New("game is not in progress")
	ErrNotYourTurn        = errors.New("it is not your turn")

	ErrInvalidName       = errors.New("session name must not be empty")
	ErrInvalidUsername   = errors.New("username must not be empty")
	ErrNotEnoughPlayers  = errors.New("not enough players")
	ErrInsufficientCards = errors.New("not enough cards in deck")
	ErrCardNotInHand     = errors.New("card not in hand")
	ErrMalformedMove     = errors.New("malformed move")
	ErrMalformedRequest  = errors.New("malformed request")

	ErrStorage = errors.New("storage failure")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrSessionNotFound, KindNotFound},
	{ErrPlayerNotFound, KindNotFound},
	{ErrAlreadyJoined, KindConflict},
	{ErrGameNotJoinable, KindConflict},
	{ErrGameAlreadyStarted, KindConflict},
	{ErrGameNotInProgress, KindConflict},
	{ErrNotYourTurn, KindConflict},
	{ErrInvalidName, KindValidation},
	{ErrInvalidUsername, KindValidation},
	{ErrNotEnoughPlayers, KindValidation},
	{ErrInsufficientCards, KindValidation},
	{ErrCardNotInHand, KindValidation},
	{ErrMalformedMove, KindValidation},
	{ErrMalformedRequest, KindValidation},
	{ErrStorage, KindStorage},
}

// KindOf maps any error returned by this package, the registry or a store to its Kind.
// Wrapped errors are matched with errors.Is.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
