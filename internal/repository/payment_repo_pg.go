package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medisync/teleclinic/internal/domain"
)

type PaymentRepository interface {
	GetByAppointment(ctx context.Context, appointmentID int64) (*domain.Payment, error)
	Create(ctx context.Context, payment *domain.Payment) error
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) GetByAppointment(ctx context.Context, appointmentID int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT id, appointment_id, reference, payment_data, created_at FROM payments WHERE appointment_id=$1`, appointmentID)
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.AppointmentID, &p.Reference, &p.Data, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts the single payment record for an appointment. A unique
// constraint on appointment_id resolves concurrent attempts; the loser gets
// ErrAlreadyPaid instead of overwriting the winner.
func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payments (appointment_id, reference, payment_data)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, payment.AppointmentID, payment.Reference, payment.Data).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyPaid
		}
		return err
	}
	return nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
