package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

// CampaignRepository is the read-only campaign directory.
type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
}

type campaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a Postgres-backed implementation.
func NewCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepository{pool: pool}
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	const query = `
        SELECT id, hospital_id, name, status, starts_at, ends_at, location, created_at, updated_at
        FROM campaigns WHERE id=$1`

	var campaign domain.Campaign
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.HospitalID,
		&campaign.Name,
		&campaign.Status,
		&campaign.StartsAt,
		&campaign.EndsAt,
		&campaign.Location,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	); err != nil {
		return nil, translateLookupError(err)
	}
	return &campaign, nil
}
