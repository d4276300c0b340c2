package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medisync/teleclinic/internal/domain"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment, bufferedStart, bufferedEnd time.Time) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListAvailable(ctx context.Context, doctorID int64, dayStart, dayEnd time.Time) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Appointment, error)
	ListUpcomingByPatient(ctx context.Context, patientID int64, after time.Time) ([]domain.Appointment, error)
	ListCurrentByPatient(ctx context.Context, patientID int64, now time.Time, joinWindow time.Duration) ([]domain.Appointment, error)
	ListBookedStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
	Book(ctx context.Context, id, patientID int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error)
	UpdateConsultNotes(ctx context.Context, id int64, notes domain.ConsultNotes) (*domain.Appointment, error)
}

type PGAppointmentRepository struct {
	db *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) AppointmentRepository {
	return &PGAppointmentRepository{db: db}
}

const appointmentColumns = `id, doctor_id, patient_id, start_time, end_time, status, COALESCE(symptoms, ''), COALESCE(diagnosis, ''), COALESCE(prescription, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartTime, &a.EndTime, &a.Status, &a.Symptoms, &a.Diagnosis, &a.Prescription, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]domain.Appointment, error) {
	defer rows.Close()
	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *a)
	}
	return appointments, rows.Err()
}

// Create inserts a new slot after checking the buffered-interval overlap rule.
// bufferedStart/bufferedEnd come from scheduling.BufferedBounds; the conflict
// query compares the stored intervals against them. The check and the insert
// run inside one transaction holding a per-doctor advisory lock, so two
// concurrent creations for the same doctor cannot both pass the check.
func (r *PGAppointmentRepository) Create(ctx context.Context, appointment *domain.Appointment, bufferedStart, bufferedEnd time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appointment.DoctorID); err != nil {
		return err
	}

	var overlaps bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE doctor_id=$1 AND start_time < $2 AND end_time > $3)`,
		appointment.DoctorID, bufferedEnd, bufferedStart).Scan(&overlaps); err != nil {
		return err
	}
	if overlaps {
		return domain.ErrSlotOverlap
	}

	appointment.Status = domain.AppointmentStatusNotBooked
	if err := tx.QueryRow(ctx, `INSERT INTO appointments (doctor_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`, appointment.DoctorID, appointment.StartTime, appointment.EndTime, appointment.Status).
		Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGAppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id)
	return scanAppointment(row)
}

func (r *PGAppointmentRepository) ListAvailable(ctx context.Context, doctorID int64, dayStart, dayEnd time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments
		WHERE doctor_id=$1 AND status=$2 AND start_time <= $3 AND end_time >= $4
		ORDER BY start_time`, doctorID, domain.AppointmentStatusNotBooked, dayEnd, dayStart)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PGAppointmentRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id=$1 ORDER BY start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PGAppointmentRepository) ListUpcomingByPatient(ctx context.Context, patientID int64, after time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE patient_id=$1 AND start_time > $2 ORDER BY start_time`, patientID, after)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// ListCurrentByPatient returns appointments joinable now: the join window opens
// joinWindow before the start and closes when the slot ends.
func (r *PGAppointmentRepository) ListCurrentByPatient(ctx context.Context, patientID int64, now time.Time, joinWindow time.Duration) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments
		WHERE patient_id=$1 AND status=$2 AND start_time <= $3 AND end_time >= $4
		ORDER BY start_time`, patientID, domain.AppointmentStatusBooked, now.Add(joinWindow), now)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PGAppointmentRepository) ListBookedStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments
		WHERE status=$1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`, domain.AppointmentStatusBooked, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Book transitions a slot from Not Booked to Booked. The conditional UPDATE is
// the mutual-exclusion point: of N concurrent callers exactly one matches the
// status predicate.
func (r *PGAppointmentRepository) Book(ctx context.Context, id, patientID int64) (*domain.Appointment, error) {
	row := r.db.QueryRow(ctx, `UPDATE appointments SET patient_id=$1, status=$2, updated_at=now()
		WHERE id=$3 AND status=$4
		RETURNING `+appointmentColumns, patientID, domain.AppointmentStatusBooked, id, domain.AppointmentStatusNotBooked)
	appointment, err := scanAppointment(row)
	if err == nil {
		return appointment, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Zero rows updated: distinguish absent from already booked.
	var status domain.AppointmentStatus
	if scanErr := r.db.QueryRow(ctx, `SELECT status FROM appointments WHERE id=$1`, id).Scan(&status); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, scanErr
	}
	return nil, domain.ErrAlreadyBooked
}

// UpdateStatus sets the new status. Transitions out of Booked/Completed also
// release the patient binding: patient_id is set iff the status holds one.
func (r *PGAppointmentRepository) UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) (*domain.Appointment, error) {
	if !status.HoldsPatient() {
		row := r.db.QueryRow(ctx, `UPDATE appointments SET status=$1, patient_id=NULL, updated_at=now() WHERE id=$2 RETURNING `+appointmentColumns, status, id)
		return scanAppointment(row)
	}
	row := r.db.QueryRow(ctx, `UPDATE appointments SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+appointmentColumns, status, id)
	return scanAppointment(row)
}

func (r *PGAppointmentRepository) UpdateConsultNotes(ctx context.Context, id int64, notes domain.ConsultNotes) (*domain.Appointment, error) {
	row := r.db.QueryRow(ctx, `UPDATE appointments SET symptoms=$1, diagnosis=$2, prescription=$3, updated_at=now() WHERE id=$4 RETURNING `+appointmentColumns,
		notes.Symptoms, notes.Diagnosis, notes.Prescription, id)
	return scanAppointment(row)
}

var _ AppointmentRepository = (*PGAppointmentRepository)(nil)
