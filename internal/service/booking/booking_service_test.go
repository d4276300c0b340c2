package booking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByAppointment(ctx context.Context, appointmentID int64) (*domain.Payment, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) ExistsForAppointment(ctx context.Context, appointmentID int64, title string) (bool, error) {
	args := m.Called(ctx, appointmentID, title)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Notification, error) {
	args := m.Called(ctx, doctorID)
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id int64) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *domain.Appointment, bufferedStart, bufferedEnd time.Time) error {
	args := m.Called(ctx, appointment, bufferedStart, bufferedEnd)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListAvailable(ctx context.Context, doctorID int64, dayStart, dayEnd time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, doctorID, dayStart, dayEnd)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Appointment, error) {
	args := m.Called(ctx, doctorID)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListUpcomingByPatient(ctx context.Context, patientID int64, after time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, patientID, after)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListCurrentByPatient(ctx context.Context, patientID int64, now time.Time, joinWindow time.Duration) ([]domain.Appointment, error) {
	args := m.Called(ctx, patientID, now, joinWindow)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListBookedStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Book(ctx context.Context, id, patientID int64) (*domain.Appointment, error) {
	args := m.Called(ctx, id, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateConsultNotes(ctx context.Context, id int64, notes domain.ConsultNotes) (*domain.Appointment, error) {
	args := m.Called(ctx, id, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetDoctor(ctx context.Context, id int64) (*domain.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Doctor), args.Error(1)
}

func (m *MockUserRepository) GetPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Patient), args.Error(1)
}

func (m *MockUserRepository) UpdateDoctorStatus(ctx context.Context, id int64, status domain.DoctorStatus) (*domain.Doctor, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Doctor), args.Error(1)
}

type MockSlotBooker struct {
	mock.Mock
}

func (m *MockSlotBooker) Book(ctx context.Context, appointmentID, patientID int64) (*domain.Appointment, error) {
	args := m.Called(ctx, appointmentID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireBookingLock(ctx context.Context, appointmentID int64, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, appointmentID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseBookingLock(ctx context.Context, appointmentID int64) error {
	args := m.Called(ctx, appointmentID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func bookedAppointment(id, doctorID, patientID int64) *domain.Appointment {
	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	return &domain.Appointment{
		ID:        id,
		DoctorID:  doctorID,
		PatientID: &patientID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    domain.AppointmentStatusBooked,
	}
}

func newTestService(
	payments repository.PaymentRepository,
	notifications repository.NotificationRepository,
	appointments repository.AppointmentRepository,
	users repository.UserRepository,
	scheduler SlotBooker,
	cache Cache,
	producer Producer,
) *BookingService {
	return NewBookingService(payments, notifications, appointments, users, scheduler, cache, producer, "appointment_notifications", time.Minute)
}

func TestBookingService_CompletePaymentAndBook_Success(t *testing.T) {
	mockPayments := &MockPaymentRepository{}
	mockNotifications := &MockNotificationRepository{}
	mockUsers := &MockUserRepository{}
	mockScheduler := &MockSlotBooker{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}

	service := newTestService(mockPayments, mockNotifications, nil, mockUsers, mockScheduler, mockCache, mockProducer)

	ctx := context.Background()
	appointment := bookedAppointment(5, 7, 21)

	mockPayments.On("GetByAppointment", ctx, int64(5)).Return(nil, domain.ErrNotFound).Once()
	mockPayments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil).Once()
	mockCache.On("AcquireBookingLock", ctx, int64(5), time.Minute).Return(true, nil).Once()
	mockScheduler.On("Book", ctx, int64(5), int64(21)).Return(appointment, nil).Once()
	mockCache.On("ReleaseBookingLock", ctx, int64(5)).Return(nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "New Appointment").Return(false, nil).Once()
	mockUsers.On("GetPatient", ctx, int64(21)).Return(&domain.Patient{ID: 21, Name: "Sita Sharma"}, nil).Once()
	mockNotifications.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment_notifications", mock.Anything, mock.Anything).Return(nil).Once()

	got, err := service.CompletePaymentAndBook(ctx, 5, 21, json.RawMessage(`{"status":"Completed"}`))

	assert.NoError(t, err)
	assert.Equal(t, appointment, got)

	mockPayments.AssertExpectations(t)
	mockNotifications.AssertExpectations(t)
	mockScheduler.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_CompletePaymentAndBook_AlreadyPaid(t *testing.T) {
	mockPayments := &MockPaymentRepository{}
	mockScheduler := &MockSlotBooker{}

	service := newTestService(mockPayments, nil, nil, nil, mockScheduler, nil, nil)

	ctx := context.Background()
	mockPayments.On("GetByAppointment", ctx, int64(5)).
		Return(&domain.Payment{AppointmentID: 5, Data: json.RawMessage(`{"status":"Completed"}`)}, nil).Once()

	got, err := service.CompletePaymentAndBook(ctx, 5, 21, json.RawMessage(`{"status":"Completed"}`))

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	mockScheduler.AssertNotCalled(t, "Book")
}

// A pending, non-completed payment record means the previous attempt paid but
// never booked. A retry must skip payment creation and finish the booking.
func TestBookingService_CompletePaymentAndBook_RetryAfterPartialFailure(t *testing.T) {
	mockPayments := &MockPaymentRepository{}
	mockNotifications := &MockNotificationRepository{}
	mockScheduler := &MockSlotBooker{}

	service := newTestService(mockPayments, mockNotifications, nil, nil, mockScheduler, nil, nil)

	ctx := context.Background()
	appointment := bookedAppointment(5, 7, 21)

	mockPayments.On("GetByAppointment", ctx, int64(5)).
		Return(&domain.Payment{AppointmentID: 5, Data: json.RawMessage(`{"status":"Pending"}`)}, nil).Once()
	mockScheduler.On("Book", ctx, int64(5), int64(21)).Return(appointment, nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "New Appointment").Return(true, nil).Once()

	got, err := service.CompletePaymentAndBook(ctx, 5, 21, json.RawMessage(`{"status":"Completed"}`))

	assert.NoError(t, err)
	assert.Equal(t, appointment, got)
	mockPayments.AssertNotCalled(t, "Create")
	mockNotifications.AssertNotCalled(t, "Create")
}

// Losing the unique constraint race to a concurrent payment creator is not an
// error; the booking continues.
func TestBookingService_CompletePaymentAndBook_PaymentCreateRace(t *testing.T) {
	mockPayments := &MockPaymentRepository{}
	mockNotifications := &MockNotificationRepository{}
	mockScheduler := &MockSlotBooker{}

	service := newTestService(mockPayments, mockNotifications, nil, nil, mockScheduler, nil, nil)

	ctx := context.Background()
	appointment := bookedAppointment(5, 7, 21)

	mockPayments.On("GetByAppointment", ctx, int64(5)).Return(nil, domain.ErrNotFound).Once()
	mockPayments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(domain.ErrAlreadyPaid).Once()
	mockScheduler.On("Book", ctx, int64(5), int64(21)).Return(appointment, nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "New Appointment").Return(true, nil).Once()

	got, err := service.CompletePaymentAndBook(ctx, 5, 21, json.RawMessage(`{"status":"Completed"}`))

	assert.NoError(t, err)
	assert.Equal(t, appointment, got)
}

func TestBookingService_CompletePaymentAndBook_ValidationErrors(t *testing.T) {
	service := newTestService(nil, nil, nil, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := service.CompletePaymentAndBook(ctx, 0, 21, json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = service.CompletePaymentAndBook(ctx, 5, 0, json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = service.CompletePaymentAndBook(ctx, 5, 21, nil)
	assert.Error(t, err)
}

func TestBookingService_DirectBook_SlotLocked(t *testing.T) {
	mockScheduler := &MockSlotBooker{}
	mockCache := &MockCache{}

	service := newTestService(nil, nil, nil, nil, mockScheduler, mockCache, nil)

	ctx := context.Background()
	mockCache.On("AcquireBookingLock", ctx, int64(5), time.Minute).Return(false, nil).Once()

	got, err := service.DirectBook(ctx, 5, 21)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrSlotLocked)
	mockScheduler.AssertNotCalled(t, "Book")
	mockCache.AssertNotCalled(t, "ReleaseBookingLock")
}

func TestBookingService_DirectBook_AlreadyBooked(t *testing.T) {
	mockScheduler := &MockSlotBooker{}
	mockCache := &MockCache{}

	service := newTestService(nil, nil, nil, nil, mockScheduler, mockCache, nil)

	ctx := context.Background()
	mockCache.On("AcquireBookingLock", ctx, int64(5), time.Minute).Return(true, nil).Once()
	mockScheduler.On("Book", ctx, int64(5), int64(21)).Return(nil, domain.ErrAlreadyBooked).Once()
	mockCache.On("ReleaseBookingLock", ctx, int64(5)).Return(nil).Once()

	got, err := service.DirectBook(ctx, 5, 21)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrAlreadyBooked)
	// The lock is released even on failure.
	mockCache.AssertExpectations(t)
}

// The second booking of the same slot must not produce a second notification.
func TestBookingService_DirectBook_NotificationIdempotent(t *testing.T) {
	mockNotifications := &MockNotificationRepository{}
	mockUsers := &MockUserRepository{}
	mockScheduler := &MockSlotBooker{}

	service := newTestService(nil, mockNotifications, nil, mockUsers, mockScheduler, nil, nil)

	ctx := context.Background()
	appointment := bookedAppointment(5, 7, 21)

	mockScheduler.On("Book", ctx, int64(5), int64(21)).Return(appointment, nil).Twice()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "New Appointment").Return(false, nil).Once()
	mockUsers.On("GetPatient", ctx, int64(21)).Return(&domain.Patient{ID: 21, Name: "Sita Sharma"}, nil).Once()
	mockNotifications.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "New Appointment").Return(true, nil).Once()

	_, err := service.DirectBook(ctx, 5, 21)
	assert.NoError(t, err)
	_, err = service.DirectBook(ctx, 5, 21)
	assert.NoError(t, err)

	mockNotifications.AssertNumberOfCalls(t, "Create", 1)
}

func TestBookingService_DirectBook_NotificationFailureDoesNotFailBooking(t *testing.T) {
	mockNotifications := &MockNotificationRepository{}
	mockUsers := &MockUserRepository{}
	mockScheduler := &MockSlotBooker{}

	service := newTestService(nil, mockNotifications, nil, mockUsers, mockScheduler, nil, nil)

	ctx := context.Background()
	appointment := bookedAppointment(5, 7, 21)

	mockScheduler.On("Book", ctx, int64(5), int64(21)).Return(appointment, nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "New Appointment").Return(false, nil).Once()
	mockUsers.On("GetPatient", ctx, int64(21)).Return(nil, domain.ErrNotFound).Once()
	mockNotifications.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
		Return(assert.AnError).Once()

	got, err := service.DirectBook(ctx, 5, 21)

	assert.NoError(t, err)
	assert.Equal(t, appointment, got)
}

func TestBookingService_SweepReminders(t *testing.T) {
	mockNotifications := &MockNotificationRepository{}
	mockAppointments := &MockAppointmentRepository{}
	mockProducer := &MockProducer{}

	service := newTestService(nil, mockNotifications, mockAppointments, nil, nil, nil, mockProducer)

	ctx := context.Background()
	fresh := *bookedAppointment(5, 7, 21)
	alreadyReminded := *bookedAppointment(6, 7, 22)

	mockAppointments.On("ListBookedStartingBetween", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return([]domain.Appointment{fresh, alreadyReminded}, nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(5), "Upcoming Appointment").Return(false, nil).Once()
	mockNotifications.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment_notifications", mock.Anything, mock.Anything).Return(nil).Once()
	mockNotifications.On("ExistsForAppointment", ctx, int64(6), "Upcoming Appointment").Return(true, nil).Once()

	reminded, err := service.SweepReminders(ctx)

	assert.NoError(t, err)
	assert.Len(t, reminded, 1)
	assert.Equal(t, int64(5), reminded[0].ID)

	mockNotifications.AssertExpectations(t)
	mockAppointments.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_SweepReminders_Empty(t *testing.T) {
	mockNotifications := &MockNotificationRepository{}
	mockAppointments := &MockAppointmentRepository{}

	service := newTestService(nil, mockNotifications, mockAppointments, nil, nil, nil, nil)

	ctx := context.Background()
	mockAppointments.On("ListBookedStartingBetween", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return([]domain.Appointment{}, nil).Once()

	reminded, err := service.SweepReminders(ctx)

	assert.NoError(t, err)
	assert.Empty(t, reminded)
	mockNotifications.AssertNotCalled(t, "Create")
}
