package scheduling

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/medisync/teleclinic/internal/auth"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/kafka"
	"github.com/medisync/teleclinic/internal/repository"
)

type SchedulerUseCase interface {
	CreateSlot(ctx context.Context, input CreateSlotInput) (*domain.Appointment, error)
	ListAvailableSlots(ctx context.Context, doctorID int64, date string) ([]domain.Appointment, error)
	Book(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID int64, status domain.AppointmentStatus, actorDoctorID int64) (*domain.Appointment, error)
	ListDoctorSlots(ctx context.Context, doctorID int64) ([]domain.Appointment, error)
	ListUpcoming(ctx context.Context, patientID int64) ([]domain.Appointment, error)
	ListCurrent(ctx context.Context, patientID int64) ([]domain.Appointment, error)
	GetForParticipant(ctx context.Context, appointmentID int64, identity auth.Identity) (*domain.Appointment, error)
}

type Cache interface {
	GetSlots(ctx context.Context, doctorID int64, date string) ([]domain.Appointment, error)
	SetSlots(ctx context.Context, doctorID int64, date string, slots []domain.Appointment) error
	InvalidateSlots(ctx context.Context, doctorID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type SchedulerService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	cache        Cache
	producer     Producer
	topic        string
	clinicTZ     *time.Location
}

type CreateSlotInput struct {
	DoctorID  int64     `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func NewSchedulerService(
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	cache Cache,
	producer Producer,
	topic string,
	clinicTZ *time.Location,
) *SchedulerService {
	if clinicTZ == nil {
		clinicTZ = time.UTC
	}
	return &SchedulerService{
		appointments: appointments,
		users:        users,
		cache:        cache,
		producer:     producer,
		topic:        topic,
		clinicTZ:     clinicTZ,
	}
}

func (s *SchedulerService) CreateSlot(ctx context.Context, input CreateSlotInput) (*domain.Appointment, error) {
	if input.DoctorID == 0 || input.StartTime.IsZero() || input.EndTime.IsZero() {
		return nil, fmt.Errorf("%w: doctor id, start time and end time are required", domain.ErrInvalidSchedule)
	}
	if input.StartTime.Before(time.Now()) {
		return nil, domain.ErrInvalidSchedule
	}
	if !ValidDuration(input.EndTime.Sub(input.StartTime)) {
		return nil, domain.ErrInvalidDuration
	}

	doctor, err := s.users.GetDoctor(ctx, input.DoctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != domain.DoctorStatusApproved {
		return nil, domain.ErrDoctorNotActive
	}

	appointment := &domain.Appointment{
		DoctorID:  input.DoctorID,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
	}
	bufferedStart, bufferedEnd := BufferedBounds(input.StartTime, input.EndTime)
	if err := s.appointments.Create(ctx, appointment, bufferedStart, bufferedEnd); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateSlots(ctx, input.DoctorID)
	}
	s.publish(ctx, kafka.EventSlotCreated, appointment, "")
	return appointment, nil
}

// ListAvailableSlots returns the Not Booked slots intersecting the given
// calendar day. Only when the day is today are slots whose end has already
// passed filtered out; a slot already started but not yet over stays listed.
func (s *SchedulerService) ListAvailableSlots(ctx context.Context, doctorID int64, date string) ([]domain.Appointment, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.clinicTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	dayStart := day
	dayEnd := day.Add(24*time.Hour - time.Second)

	var slots []domain.Appointment
	if s.cache != nil {
		if cached, err := s.cache.GetSlots(ctx, doctorID, date); err == nil && cached != nil {
			slots = cached
		}
	}
	if slots == nil {
		slots, err = s.appointments.ListAvailable(ctx, doctorID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.SetSlots(ctx, doctorID, date, slots)
		}
	}

	now := time.Now()
	if now.In(s.clinicTZ).Format("2006-01-02") != date {
		return slots, nil
	}
	current := make([]domain.Appointment, 0, len(slots))
	for _, slot := range slots {
		if slot.EndTime.After(now) {
			current = append(current, slot)
		}
	}
	return current, nil
}

func (s *SchedulerService) Book(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error) {
	appointment, err := s.appointments.Book(ctx, appointmentID, patientID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateSlots(ctx, appointment.DoctorID)
	}
	return appointment, nil
}

func (s *SchedulerService) UpdateStatus(ctx context.Context, appointmentID int64, status domain.AppointmentStatus, actorDoctorID int64) (*domain.Appointment, error) {
	switch status {
	case domain.AppointmentStatusNotBooked, domain.AppointmentStatusBooked, domain.AppointmentStatusCompleted, domain.AppointmentStatusCancelled:
	default:
		return nil, fmt.Errorf("unknown status %q", status)
	}

	current, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if current.DoctorID != actorDoctorID {
		return nil, domain.ErrForbidden
	}

	updated, err := s.appointments.UpdateStatus(ctx, appointmentID, status)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateSlots(ctx, updated.DoctorID)
	}
	s.publish(ctx, kafka.EventStatusChanged, updated, "")
	return updated, nil
}

func (s *SchedulerService) ListDoctorSlots(ctx context.Context, doctorID int64) ([]domain.Appointment, error) {
	return s.appointments.ListByDoctor(ctx, doctorID)
}

func (s *SchedulerService) ListUpcoming(ctx context.Context, patientID int64) ([]domain.Appointment, error) {
	return s.appointments.ListUpcomingByPatient(ctx, patientID, time.Now())
}

// ListCurrent returns appointments whose join window is open: from JoinWindow
// before the start until the slot ends.
func (s *SchedulerService) ListCurrent(ctx context.Context, patientID int64) ([]domain.Appointment, error) {
	return s.appointments.ListCurrentByPatient(ctx, patientID, time.Now(), JoinWindow)
}

// GetForParticipant fetches an appointment only for its own doctor or patient.
func (s *SchedulerService) GetForParticipant(ctx context.Context, appointmentID int64, identity auth.Identity) (*domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !ParticipantAllowed(appointment, identity) {
		return nil, domain.ErrAccessDenied
	}
	return appointment, nil
}

// ParticipantAllowed is the single authorization check for appointment access:
// the slot's doctor or its booked patient, nobody else.
func ParticipantAllowed(appointment *domain.Appointment, identity auth.Identity) bool {
	switch identity.Role {
	case auth.RoleDoctor:
		return appointment.DoctorID == identity.UserID
	case auth.RolePatient:
		return appointment.PatientID != nil && *appointment.PatientID == identity.UserID
	default:
		return false
	}
}

func (s *SchedulerService) publish(ctx context.Context, eventType string, appointment *domain.Appointment, message string) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.AppointmentEvent{
		Type:          eventType,
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		Status:        string(appointment.Status),
		StartTime:     appointment.StartTime,
		EndTime:       appointment.EndTime,
		Message:       message,
	}
	if appointment.PatientID != nil {
		event.PatientID = *appointment.PatientID
	}
	key := strconv.FormatInt(appointment.ID, 10)
	if err := s.producer.Publish(ctx, s.topic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for appointment %d: %v", eventType, appointment.ID, err)
	}
}

var _ SchedulerUseCase = (*SchedulerService)(nil)
