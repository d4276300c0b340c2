package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medisync/teleclinic/internal/auth"
	"github.com/medisync/teleclinic/internal/domain"
)

// respondError maps a service error to an HTTP status and a stable reason
// string. Internal detail never leaks past the boundary.
func respondError(c *gin.Context, err error) {
	status, reason := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": reason, "message": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidSchedule):
		return http.StatusBadRequest, "invalid_schedule"
	case errors.Is(err, domain.ErrInvalidDuration):
		return http.StatusBadRequest, "invalid_duration"
	case errors.Is(err, domain.ErrSlotOverlap):
		return http.StatusBadRequest, "overlap"
	case errors.Is(err, domain.ErrAlreadyBooked):
		return http.StatusConflict, "already_booked"
	case errors.Is(err, domain.ErrSlotLocked):
		return http.StatusConflict, "slot_locked"
	case errors.Is(err, domain.ErrAlreadyPaid):
		return http.StatusBadRequest, "already_paid"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrDoctorNotActive):
		return http.StatusForbidden, "doctor_not_approved"
	case errors.Is(err, domain.ErrNotesLocked):
		return http.StatusConflict, "notes_locked"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
