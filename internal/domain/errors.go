package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSchedule = errors.New("appointment time cannot be in the past")
	ErrInvalidDuration = errors.New("appointment duration must be 15, 30, or 60 minutes")
	ErrSlotOverlap     = errors.New("appointment time overlaps with an existing appointment")
	ErrAlreadyBooked   = errors.New("appointment is already booked")
	ErrAlreadyPaid     = errors.New("payment already completed for this appointment")
	ErrForbidden       = errors.New("operation not permitted for this user")
	ErrAccessDenied    = errors.New("access denied for this appointment")
	ErrRoomFull        = errors.New("room is full, only doctor and patient are allowed")
	ErrNotesLocked     = errors.New("consultation notes can no longer be changed")
	ErrDoctorNotActive = errors.New("doctor is not approved")
	ErrSlotLocked      = errors.New("appointment is being booked by someone else")
)
