package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsLockTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lock_timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"statement_timeout", &pgconn.PgError{Code: "57014"}, true},
		{"deadlock", fmt.Errorf("lock product: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLockTimeout(tt.err))
		})
	}
}
