package call

import "errors"

var (
	// ErrRoomFull means the room already had two participants at join
	// time. No transport is created in that case.
	ErrRoomFull = errors.New("room is full")

	// ErrMissingOffer means the answer path ran against a record with no
	// stored offer. The join is aborted without partial writes.
	ErrMissingOffer = errors.New("room record has no offer")

	// ErrSignalingState means the transport was not in the negotiation
	// sub-state an operation requires.
	ErrSignalingState = errors.New("unexpected signaling state")

	ErrNotJoined     = errors.New("controller has not joined a room")
	ErrAlreadyJoined = errors.New("controller already joined a room")
)
