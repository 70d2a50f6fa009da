package apperror

import "errors"

// input validation
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyRoomID        = errors.New("room id is required")
	ErrRoomIDTooLong      = errors.New("room id is too long")
	ErrEmptyDisplayName   = errors.New("display name is required")
	ErrDisplayNameTooLong = errors.New("display name is too long")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrMessageTooLong     = errors.New("message is too long")
	ErrUnsupportedGame    = errors.New("game is not supported")
	ErrInvalidCell        = errors.New("invalid cell index")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrTooManyRequests    = errors.New("too many requests, slow down")
)

// authorization
var (
	ErrNotHost     = errors.New("only the host can do that")
	ErrNotYourTurn = errors.New("it's not your turn")
)

// preconditions
var (
	ErrRoomFull          = errors.New("room is full")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNotEveryoneReady  = errors.New("not everyone is ready")
	ErrAlreadyStarted    = errors.New("game has already started")
	ErrGameIsNotStarted  = errors.New("game is not started")
	ErrGameInProgress    = errors.New("game is still in progress")
	ErrGameFinished      = errors.New("game is already finished")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrNoSymbol          = errors.New("player has no symbol")
	ErrRoomIDUnavailable = errors.New("could not allocate a room id")
)

// not found
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("you are not in a room")
)

// ErrInternal is what callers see when a command fails for a reason they can't fix.
var ErrInternal = errors.New("internal error")

var public = []error{
	ErrInvalidInput, ErrEmptyRoomID, ErrRoomIDTooLong, ErrEmptyDisplayName, ErrDisplayNameTooLong,
	ErrEmptyMessage, ErrMessageTooLong, ErrUnsupportedGame, ErrInvalidCell, ErrUnknownCommand,
	ErrTooManyRequests,
	ErrNotHost, ErrNotYourTurn,
	ErrRoomFull, ErrNotEnoughPlayers, ErrNotEveryoneReady, ErrAlreadyStarted, ErrGameIsNotStarted,
	ErrGameInProgress, ErrGameFinished, ErrCellOccupied, ErrNoSymbol, ErrRoomIDUnavailable,
	ErrRoomNotFound, ErrNotInRoom,
}

// Public returns the sentinel a client may see for err. Anything else is reported as
// ErrInternal.
func Public(err error) error {
	for _, sentinel := range public {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return ErrInternal
}
