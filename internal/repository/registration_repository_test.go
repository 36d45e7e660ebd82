package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslateWriteError(t *testing.T) {
	queueDup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: queueNumberConstraint, Message: "duplicate key value"}
	otherDup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "staff_members_email_key"}
	plain := errors.New("Constraint violation")

	assert.ErrorIs(t, translateWriteError(queueDup), ErrQueueNumberTaken)
	assert.Contains(t, translateWriteError(queueDup).Error(), "duplicate key value")
	assert.NotErrorIs(t, translateWriteError(otherDup), ErrQueueNumberTaken)
	assert.Same(t, plain, translateWriteError(plain))
}

func TestTranslateLookupError(t *testing.T) {
	badUUID := &pgconn.PgError{Code: invalidTextRepr, Message: "invalid input syntax for type uuid"}
	other := errors.New("connection reset")

	assert.ErrorIs(t, translateLookupError(badUUID), pgx.ErrNoRows)
	assert.Same(t, other, translateLookupError(other))
}
