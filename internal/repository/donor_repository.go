package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

// DonorRepository defines read access to donor profiles.
type DonorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Donor, error)
}

type donorRepository struct {
	pool *pgxpool.Pool
}

// NewDonorRepository returns a Postgres-backed implementation.
func NewDonorRepository(pool *pgxpool.Pool) DonorRepository {
	return &donorRepository{pool: pool}
}

func (r *donorRepository) GetByID(ctx context.Context, id string) (*domain.Donor, error) {
	const query = `
        SELECT id, full_name, phone, email, created_at
        FROM donors WHERE id=$1`

	var donor domain.Donor
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&donor.ID,
		&donor.FullName,
		&donor.Phone,
		&donor.Email,
		&donor.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &donor, nil
}
