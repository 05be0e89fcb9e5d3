package polls

import "errors"

var (
	// ErrPollNotFound is returned when the poll id does not exist.
	ErrPollNotFound = errors.New("poll not found")
	// ErrPollClosed is returned when voting on an inactive poll.
	ErrPollClosed = errors.New("poll is closed")
	// ErrInvalidOption is returned when the option index is out of range.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrInvalidPoll is returned for malformed creation parameters.
	ErrInvalidPoll = errors.New("invalid poll parameters")
)
