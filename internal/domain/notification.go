package domain

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID            int64
	AppointmentID int64
	DoctorID      int64
	Title         string
	Message       string
	IsRead        bool
	CreatedAt     time.Time
}

// Payment is the record of a payment attempt for one appointment. The gateway
// response is stored opaque; only the embedded status is ever inspected.
type Payment struct {
	ID            int64
	AppointmentID int64
	Reference     string
	Data          json.RawMessage
	CreatedAt     time.Time
}

const paymentStatusCompleted = "Completed"

// Completed reports whether the stored gateway blob carries a terminal status.
func (p *Payment) Completed() bool {
	var blob struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(p.Data, &blob); err != nil {
		return false
	}
	return blob.Status == paymentStatusCompleted
}
