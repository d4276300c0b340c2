package domain

import "time"

type DoctorStatus string

const (
	DoctorStatusPending  DoctorStatus = "pending"
	DoctorStatusApproved DoctorStatus = "approved"
	DoctorStatusRejected DoctorStatus = "rejected"
)

type Doctor struct {
	ID            int64
	Name          string
	Email         string
	Specification string
	Status        DoctorStatus
	CreatedAt     time.Time
}

type Patient struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}
