package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique constraint failure.
// Postgres errors are matched on SQLSTATE 23505 (and constraintName, when
// given); SQLite only exposes the message text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresError(err); ok {
		return pg.Code == pkgerrors.PGUniqueViolation &&
			(constraintName == "" || pg.Constraint == constraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) && constraintName == "" {
		return true
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
