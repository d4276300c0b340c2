package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medisync/teleclinic/internal/domain"
)

type UserRepository interface {
	GetDoctor(ctx context.Context, id int64) (*domain.Doctor, error)
	GetPatient(ctx context.Context, id int64) (*domain.Patient, error)
	UpdateDoctorStatus(ctx context.Context, id int64, status domain.DoctorStatus) (*domain.Doctor, error)
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) GetDoctor(ctx context.Context, id int64) (*domain.Doctor, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, email, COALESCE(specification, ''), status, created_at FROM doctors WHERE id=$1`, id)
	var d domain.Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Specification, &d.Status, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PGUserRepository) GetPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, email, created_at FROM patients WHERE id=$1`, id)
	var p domain.Patient
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGUserRepository) UpdateDoctorStatus(ctx context.Context, id int64, status domain.DoctorStatus) (*domain.Doctor, error) {
	row := r.db.QueryRow(ctx, `UPDATE doctors SET status=$1 WHERE id=$2 RETURNING id, name, email, COALESCE(specification, ''), status, created_at`, status, id)
	var d domain.Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Specification, &d.Status, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
