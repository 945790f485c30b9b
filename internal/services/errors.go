package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}

// storageError maps a failed storage call onto the error taxonomy. Application errors pass
// through untouched; a missing row becomes NotFound and anything else is BackendUnavailable.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return apperrors.Backend(err)
}
