package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
	codeDeadlockDetected = "40P01"
)

// IsLockTimeout reports whether err means the statement gave up waiting on a
// row lock: lock_timeout, statement_timeout while blocked, or a deadlock victim.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeLockNotAvailable, codeQueryCanceled, codeDeadlockDetected:
		return true
	}
	return false
}
