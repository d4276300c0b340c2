package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/kafka"
	"github.com/medisync/teleclinic/internal/repository"
	"github.com/medisync/teleclinic/internal/service/scheduling"
)

const titleNewAppointment = "New Appointment"
const titleUpcomingAppointment = "Upcoming Appointment"

type BookingUseCase interface {
	CompletePaymentAndBook(ctx context.Context, appointmentID, patientID int64, paymentPayload json.RawMessage) (*domain.Appointment, error)
	DirectBook(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error)
	SweepReminders(ctx context.Context) ([]domain.Appointment, error)
}

// SlotBooker is the slice of the scheduler the coordinator needs.
type SlotBooker interface {
	Book(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error)
}

type Cache interface {
	AcquireBookingLock(ctx context.Context, appointmentID int64, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, appointmentID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	payments      repository.PaymentRepository
	notifications repository.NotificationRepository
	appointments  repository.AppointmentRepository
	users         repository.UserRepository
	scheduler     SlotBooker
	cache         Cache
	producer      Producer
	topic         string
	lockTTL       time.Duration
	clinicTZ      *time.Location
}

type BookingServiceOption func(*BookingService)

func WithClinicTimezone(tz *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		if tz != nil {
			s.clinicTZ = tz
		}
	}
}

func NewBookingService(
	payments repository.PaymentRepository,
	notifications repository.NotificationRepository,
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	scheduler SlotBooker,
	cache Cache,
	producer Producer,
	topic string,
	lockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		payments:      payments,
		notifications: notifications,
		appointments:  appointments,
		users:         users,
		scheduler:     scheduler,
		cache:         cache,
		producer:      producer,
		topic:         topic,
		lockTTL:       lockTTL,
		clinicTZ:      time.UTC,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CompletePaymentAndBook records the payment and transitions the slot to
// Booked. The two writes are separate: a crash in between leaves a
// paid-but-unbooked appointment that a retry of this call repairs, since the
// payment step tolerates an existing non-terminal record.
func (s *BookingService) CompletePaymentAndBook(ctx context.Context, appointmentID, patientID int64, paymentPayload json.RawMessage) (*domain.Appointment, error) {
	if appointmentID == 0 || patientID == 0 || len(paymentPayload) == 0 {
		return nil, errors.New("appointment id, patient id and payment data are required")
	}

	existing, err := s.payments.GetByAppointment(ctx, appointmentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Completed() {
		return nil, domain.ErrAlreadyPaid
	}
	if existing == nil {
		payment := &domain.Payment{
			AppointmentID: appointmentID,
			Reference:     uuid.NewString(),
			Data:          paymentPayload,
		}
		if err := s.payments.Create(ctx, payment); err != nil && !errors.Is(err, domain.ErrAlreadyPaid) {
			// A concurrent creator winning the unique constraint is fine;
			// anything else is not.
			return nil, err
		}
	}

	appointment, err := s.book(ctx, appointmentID, patientID)
	if err != nil {
		return nil, err
	}
	s.emitBookingNotification(ctx, appointment, kafka.EventPaymentCompleted)
	return appointment, nil
}

// DirectBook books a slot with no payment gateway involved.
func (s *BookingService) DirectBook(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error) {
	if appointmentID == 0 || patientID == 0 {
		return nil, errors.New("appointment id and patient id are required")
	}
	appointment, err := s.book(ctx, appointmentID, patientID)
	if err != nil {
		return nil, err
	}
	s.emitBookingNotification(ctx, appointment, kafka.EventBooked)
	return appointment, nil
}

func (s *BookingService) book(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error) {
	locked := false
	if s.cache != nil {
		ok, err := s.cache.AcquireBookingLock(ctx, appointmentID, s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrSlotLocked
		}
		locked = true
	}

	appointment, err := s.scheduler.Book(ctx, appointmentID, patientID)
	if locked {
		_ = s.cache.ReleaseBookingLock(ctx, appointmentID)
	}
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

// SweepReminders publishes one reminder per booked appointment whose join
// window has opened. Intended to run on the worker tick.
func (s *BookingService) SweepReminders(ctx context.Context) ([]domain.Appointment, error) {
	now := time.Now()
	upcoming, err := s.appointments.ListBookedStartingBetween(ctx, now, now.Add(scheduling.JoinWindow))
	if err != nil {
		return nil, err
	}

	reminded := make([]domain.Appointment, 0, len(upcoming))
	for _, appointment := range upcoming {
		exists, err := s.notifications.ExistsForAppointment(ctx, appointment.ID, titleUpcomingAppointment)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		message := fmt.Sprintf("Your appointment starts at %s", appointment.StartTime.In(s.clinicTZ).Format("3:04 PM"))
		notification := &domain.Notification{
			AppointmentID: appointment.ID,
			DoctorID:      appointment.DoctorID,
			Title:         titleUpcomingAppointment,
			Message:       message,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			return nil, err
		}
		s.publish(ctx, kafka.EventReminder, &appointment, message)
		reminded = append(reminded, appointment)
	}
	return reminded, nil
}

// emitBookingNotification records the single "new appointment" notification
// for a booking and publishes the matching event. It never fails the booking
// itself; a retry of the booking path re-runs it idempotently.
func (s *BookingService) emitBookingNotification(ctx context.Context, appointment *domain.Appointment, eventType string) {
	exists, err := s.notifications.ExistsForAppointment(ctx, appointment.ID, titleNewAppointment)
	if err != nil {
		log.Printf("WARNING: notification lookup failed for appointment %d: %v", appointment.ID, err)
		return
	}
	if exists {
		return
	}

	patientName := "A patient"
	if appointment.PatientID != nil {
		if patient, err := s.users.GetPatient(ctx, *appointment.PatientID); err == nil {
			patientName = fmt.Sprintf("Patient %s", patient.Name)
		}
	}
	start := appointment.StartTime.In(s.clinicTZ)
	end := appointment.EndTime.In(s.clinicTZ)
	message := fmt.Sprintf("%s has booked an appointment from %s to %s on %s",
		patientName, start.Format("3:04 PM"), end.Format("3:04 PM"), start.Format("January 2, 2006"))

	notification := &domain.Notification{
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		Title:         titleNewAppointment,
		Message:       message,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		log.Printf("WARNING: failed to create notification for appointment %d: %v", appointment.ID, err)
		return
	}
	s.publish(ctx, eventType, appointment, message)
}

func (s *BookingService) publish(ctx context.Context, eventType string, appointment *domain.Appointment, message string) {
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

var _ BookingUseCase = (*BookingService)(nil)
