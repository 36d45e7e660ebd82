package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

// ErrQueueNumberTaken is returned when another check-in already holds the queue number in the campaign.
var ErrQueueNumberTaken = errors.New("queue number already assigned in campaign")

// ErrAlreadyCheckedIn is returned by MarkCheckedIn when the row already holds a queue number.
var ErrAlreadyCheckedIn = errors.New("registration already checked in")

const (
	queueNumberConstraint = "registrations_campaign_queue_number_key"
	uniqueViolation       = "23505"
	invalidTextRepr       = "22P02"
)

// RegistrationRepository is the registration ledger.
type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.Registration, error)
	// MaxQueueNumber returns the highest assigned queue number in the campaign, or 0 when none.
	MaxQueueNumber(ctx context.Context, campaignID string) (int, error)
	// MarkCheckedIn updates the row by primary key only and returns it. A row that already holds a
	// queue number is left untouched and ErrAlreadyCheckedIn is returned.
	MarkCheckedIn(ctx context.Context, id string, queueNumber int, at time.Time) (*domain.Registration, error)
	UpdateStatus(ctx context.Context, id string, status domain.RegistrationStatus) (*domain.Registration, error)
}

type registrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository instantiates repository.
func NewRegistrationRepository(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepository{pool: pool}
}

const registrationColumns = `
        r.id, r.campaign_id, r.user_id, r.status, r.queue_number, r.check_in_time, r.created_at, r.updated_at,
        COALESCE(d.full_name, ''), COALESCE(d.phone, ''), COALESCE(d.email, '')`

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT` + registrationColumns + `
        FROM registrations r LEFT JOIN donors d ON d.id = r.user_id
        WHERE r.id=$1`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateLookupError(err)
	}
	return reg, nil
}

func (r *registrationRepository) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Registration, error) {
	query := `SELECT` + registrationColumns + `
        FROM registrations r LEFT JOIN donors d ON d.id = r.user_id
        WHERE r.campaign_id=$1
        ORDER BY r.created_at ASC`
	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, translateLookupError(err)
	}
	defer rows.Close()

	var result []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *reg)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(translateLookupError(err), pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func (r *registrationRepository) MaxQueueNumber(ctx context.Context, campaignID string) (int, error) {
	const query = `
        SELECT queue_number FROM registrations
        WHERE campaign_id=$1 AND queue_number IS NOT NULL
        ORDER BY queue_number DESC
        LIMIT 1`
	var max int
	if err := r.pool.QueryRow(ctx, query, campaignID).Scan(&max); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		if errors.Is(translateLookupError(err), pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return max, nil
}

func (r *registrationRepository) MarkCheckedIn(ctx context.Context, id string, queueNumber int, at time.Time) (*domain.Registration, error) {
	query := `
        WITH r AS (
            UPDATE registrations SET status=$1, queue_number=$2, check_in_time=$3, updated_at=NOW()
            WHERE id=$4 AND queue_number IS NULL
            RETURNING *
        )
        SELECT` + registrationColumns + `
        FROM r LEFT JOIN donors d ON d.id = r.user_id`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, query,
		string(domain.RegistrationStatusCheckedIn),
		queueNumber,
		at,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.checkedInOrMissing(ctx, id)
	}
	if err != nil {
		return nil, translateWriteError(err)
	}
	return reg, nil
}

// checkedInOrMissing tells a row guarded by queue_number apart from one that does not exist.
func (r *registrationRepository) checkedInOrMissing(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id=$1)`, id).Scan(&exists); err != nil {
		return translateLookupError(err)
	}
	if exists {
		return ErrAlreadyCheckedIn
	}
	return pgx.ErrNoRows
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, id string, status domain.RegistrationStatus) (*domain.Registration, error) {
	query := `
        WITH r AS (
            UPDATE registrations SET status=$1, updated_at=NOW()
            WHERE id=$2
            RETURNING *
        )
        SELECT` + registrationColumns + `
        FROM r LEFT JOIN donors d ON d.id = r.user_id`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, string(status), id))
	if err != nil {
		return nil, translateWriteError(err)
	}
	return reg, nil
}

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var (
		reg    domain.Registration
		status string
	)
	if err := row.Scan(
		&reg.ID,
		&reg.CampaignID,
		&reg.UserID,
		&status,
		&reg.QueueNumber,
		&reg.CheckInTime,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.FullName,
		&reg.Phone,
		&reg.Email,
	); err != nil {
		return nil, err
	}
	reg.SetStatusFromStorage(status)
	if reg.CheckInTime != nil {
		t := domain.CheckInInstant(*reg.CheckInTime)
		reg.CheckInTime = &t
	}
	return &reg, nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == queueNumberConstraint {
		return fmt.Errorf("%w: %s", ErrQueueNumberTaken, pgErr.Message)
	}
	return err
}

// translateLookupError reports a malformed identifier as a missing row.
func translateLookupError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepr {
		return pgx.ErrNoRows
	}
	return err
}
