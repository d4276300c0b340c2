package domain

import "time"

type AppointmentStatus string

const (
	AppointmentStatusNotBooked AppointmentStatus = "Not Booked"
	AppointmentStatusBooked    AppointmentStatus = "Booked"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// Appointment is a doctor-defined bookable time slot. PatientID is nil until
// the slot is booked; consult fields stay empty until the consultation.
type Appointment struct {
	ID           int64
	DoctorID     int64
	PatientID    *int64
	StartTime    time.Time
	EndTime      time.Time
	Status       AppointmentStatus
	Symptoms     string
	Diagnosis    string
	Prescription string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HoldsPatient reports whether a slot in this status keeps its patient
// binding. A slot back in Not Booked or Cancelled belongs to nobody.
func (s AppointmentStatus) HoldsPatient() bool {
	return s == AppointmentStatusBooked || s == AppointmentStatusCompleted
}

// ConsultNotes are the shared consultation fields edited live during a call.
type ConsultNotes struct {
	Symptoms     string `json:"symptoms"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
}

func (a *Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// NotesEditable reports whether consult notes may still be changed.
func (a *Appointment) NotesEditable() bool {
	return a.Status == AppointmentStatusBooked || a.Status == AppointmentStatusCompleted
}
