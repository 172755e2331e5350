package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound signals that the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateReference signals a reference number collision on insert.
	ErrDuplicateReference = errors.New("duplicate ticket reference number")
	// ErrDuplicateEmail signals an email collision on insert.
	ErrDuplicateEmail = errors.New("duplicate email")
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolationCode && (constraint == "" || pgErr.ConstraintName == constraint)
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
