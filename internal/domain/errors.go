package domain

import "errors"

var (
	ErrInvalidDateRange     = errors.New("check-out must be after check-in")
	ErrPastCheckIn          = errors.New("check-in is in the past")
	ErrInvalidBeds          = errors.New("bed count must be positive")
	ErrInvalidEmail         = errors.New("guest email is not valid")
	ErrRoomNotFound         = errors.New("room not found")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrLockContention       = errors.New("room is locked by another request")
	ErrHoldNotFound         = errors.New("hold not found")
	ErrHoldExpired          = errors.New("hold expired")
	ErrHoldReleased         = errors.New("hold released")
	ErrStatusRegression     = errors.New("hold status cannot move backwards")
	ErrConversionConflict   = errors.New("conversion conflicts with confirmed bookings")
	ErrBookingNotFound      = errors.New("booking not found")
)
