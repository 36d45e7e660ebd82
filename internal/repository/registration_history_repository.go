package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

// RegistrationHistoryRepository stores audit entries.
type RegistrationHistoryRepository interface {
	Create(ctx context.Context, history *domain.RegistrationHistory) error
	ListByRegistration(ctx context.Context, registrationID string) ([]domain.RegistrationHistory, error)
}

type registrationHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationHistoryRepository builds repository.
func NewRegistrationHistoryRepository(pool *pgxpool.Pool) RegistrationHistoryRepository {
	return &registrationHistoryRepository{pool: pool}
}

func (r *registrationHistoryRepository) Create(ctx context.Context, history *domain.RegistrationHistory) error {
	const query = `
        INSERT INTO registration_history (registration_id, changed_by_type, changed_by_id, old_status, new_status, queue_number)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.RegistrationID,
		history.ChangedByType,
		history.ChangedByID,
		string(history.OldStatus),
		string(history.NewStatus),
		history.QueueNumber,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *registrationHistoryRepository) ListByRegistration(ctx context.Context, registrationID string) ([]domain.RegistrationHistory, error) {
	const query = `
        SELECT id, registration_id, changed_by_type, changed_by_id, old_status, new_status, queue_number, created_at
        FROM registration_history WHERE registration_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RegistrationHistory
	for rows.Next() {
		var (
			history   domain.RegistrationHistory
			oldStatus string
			newStatus string
		)
		if err := rows.Scan(
			&history.ID,
			&history.RegistrationID,
			&history.ChangedByType,
			&history.ChangedByID,
			&oldStatus,
			&newStatus,
			&history.QueueNumber,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		history.OldStatus, _ = domain.ParseRegistrationStatus(oldStatus)
		history.NewStatus, _ = domain.ParseRegistrationStatus(newStatus)
		result = append(result, history)
	}
	return result, rows.Err()
}
