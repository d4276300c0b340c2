package api

import (
	"time"

	"github.com/medisync/teleclinic/internal/domain"
)

type appointmentResponse struct {
	ID           int64  `json:"id"`
	DoctorID     int64  `json:"doctor_id"`
	PatientID    *int64 `json:"patient_id,omitempty"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	Symptoms     string `json:"symptoms,omitempty"`
	Diagnosis    string `json:"diagnosis,omitempty"`
	Prescription string `json:"prescription,omitempty"`
}

func toAppointmentResponse(a *domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientID:    a.PatientID,
		StartTime:    a.StartTime.Format(time.RFC3339),
		EndTime:      a.EndTime.Format(time.RFC3339),
		Status:       string(a.Status),
		Symptoms:     a.Symptoms,
		Diagnosis:    a.Diagnosis,
		Prescription: a.Prescription,
	}
}

func toAppointmentResponses(appointments []domain.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, toAppointmentResponse(&appointments[i]))
	}
	return out
}

type notificationResponse struct {
	ID            int64  `json:"id"`
	AppointmentID int64  `json:"appointment_id"`
	DoctorID      int64  `json:"doctor_id"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	IsRead        bool   `json:"is_read"`
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	return notificationResponse{
		ID:            n.ID,
		AppointmentID: n.AppointmentID,
		DoctorID:      n.DoctorID,
		Title:         n.Title,
		Message:       n.Message,
		IsRead:        n.IsRead,
	}
}
