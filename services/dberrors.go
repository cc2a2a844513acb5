package services

import (
	"errors"
	"strings"

	"home-services-api/apperrors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// findOr404 maps a missing row onto NOT_FOUND and anything else onto INTERNAL_ERROR.
func findOr404(err error, what string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return apperrors.NotFound(what)
	}
	return apperrors.Internal(err)
}
