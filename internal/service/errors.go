package service

import "errors"

// Sentinel errors surfaced by the service layer. Handlers map these onto the
// caller-facing taxonomy; repository lookups that miss bubble up as
// gorm.ErrRecordNotFound and map to NotFound.
var (
	// ErrUserLeft marks an operation targeting a soft-deleted account.
	ErrUserLeft = errors.New("user has left")

	// ErrUserExists marks a registration retry for an id already on file.
	ErrUserExists = errors.New("user already registered")

	// ErrSameUser marks a self-referential sender/receiver pair.
	ErrSameUser = errors.New("sender and receiver are the same user")

	// ErrAlreadyMember marks an invite for a user already in the room.
	ErrAlreadyMember = errors.New("user is already a room member")

	// ErrNotGroupRoom marks a group-only operation aimed at a private room.
	ErrNotGroupRoom = errors.New("room is not a group room")

	// ErrNotPrivateRoom marks a private-only operation aimed at a group room.
	ErrNotPrivateRoom = errors.New("room is not a private room")
)
