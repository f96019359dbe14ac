package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is given the violation must reference that
// constraint. Postgres errors are matched structurally; anything else (the
// sqlite test driver included) falls back to message matching.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		if constraintName != "" {
			return pgErr.ConstraintName == constraintName
		}
		return true
	}

	msg := err.Error()
	if constraintName == "" {
		return strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "UNIQUE constraint failed")
	}
	if strings.Contains(msg, constraintName) {
		return true
	}
	// sqlite reports "UNIQUE constraint failed: table.column"; match the
	// column suffix against the constraint name.
	if marker := strings.Index(msg, "UNIQUE constraint failed:"); marker >= 0 {
		cols := strings.TrimSpace(msg[marker+len("UNIQUE constraint failed:"):])
		if dot := strings.LastIndex(cols, "."); dot >= 0 && dot < len(cols)-1 {
			return strings.HasSuffix(constraintName, cols[dot+1:])
		}
	}
	return false
}
