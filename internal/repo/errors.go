package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrOptimisticLock means the wallet row changed between read and write.
	ErrOptimisticLock = errors.New("optimistic lock conflict")
	// ErrDuplicateReference is returned when the ledger already holds a row with the same reference.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	// ErrNegativeBalance guards the wallet row against ever going below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsConflict reports errors caused by a concurrent unit of work; the whole
// unit is safe to re-run with a fresh reference.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOptimisticLock) || errors.Is(err, ErrDuplicateReference) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite without TranslateError
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
