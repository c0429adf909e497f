// README: Error classification tests for the pgx helpers.
package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func TestIsSerializationFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", pgError("40001"), true},
		{"deadlock detected", pgError("40P01"), true},
		{"transaction rollback", pgError("40000"), true},
		{"wrapped deadlock", fmt.Errorf("close link: %w", pgError("40P01")), true},
		{"unique violation", pgError("23505"), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSerializationFailure(tc.err); got != tc.want {
				t.Errorf("IsSerializationFailure(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", pgError("23505"), true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", pgError("23505")), true},
		{"foreign key violation", pgError("23503"), false},
		{"deadlock", pgError("40P01"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.want {
				t.Errorf("IsUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
