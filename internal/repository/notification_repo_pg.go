package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medisync/teleclinic/internal/domain"
)

type NotificationRepository interface {
	ExistsForAppointment(ctx context.Context, appointmentID int64, title string) (bool, error)
	Create(ctx context.Context, notification *domain.Notification) error
	ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) (*domain.Notification, error)
}

type PGNotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &PGNotificationRepository{db: db}
}

func (r *PGNotificationRepository) ExistsForAppointment(ctx context.Context, appointmentID int64, title string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM notifications WHERE appointment_id=$1 AND title=$2)`, appointmentID, title).Scan(&exists)
	return exists, err
}

func (r *PGNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	return r.db.QueryRow(ctx, `INSERT INTO notifications (appointment_id, doctor_id, title, message, is_read)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id, created_at`, notification.AppointmentID, notification.DoctorID, notification.Title, notification.Message).
		Scan(&notification.ID, &notification.CreatedAt)
}

func (r *PGNotificationRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, `SELECT id, appointment_id, doctor_id, title, message, is_read, created_at FROM notifications WHERE doctor_id=$1 ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.AppointmentID, &n.DoctorID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *PGNotificationRepository) MarkRead(ctx context.Context, id int64) (*domain.Notification, error) {
	row := r.db.QueryRow(ctx, `UPDATE notifications SET is_read=true WHERE id=$1 RETURNING id, appointment_id, doctor_id, title, message, is_read, created_at`, id)
	var n domain.Notification
	if err := row.Scan(&n.ID, &n.AppointmentID, &n.DoctorID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

var _ NotificationRepository = (*PGNotificationRepository)(nil)
