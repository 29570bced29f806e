// Package services implements the back-office operations on top of the
// repositories. Every multi-statement write runs in one database transaction.
package services

import (
	"errors"
	"fmt"
	"time"

	"crm-backoffice/internal/apperror"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/repositories"
	"crm-backoffice/internal/validation"
)

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func validate(input any) error {
	if err := validation.Struct(input); err != nil {
		return apperror.Wrap(ErrInvalidInput, err)
	}
	return nil
}

// notFound maps the repository miss onto the service's sentinel.
func notFound(err error, sentinel *apperror.Error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return sentinel
	}
	return err
}

// uniqueAs maps a unique violation onto the given conflict sentinel.
func uniqueAs(err error, sentinel *apperror.Error) error {
	if database.IsUniqueViolation(err) {
		return apperror.Wrap(sentinel, err)
	}
	return err
}

// documentNumber formats PREFIX-YYYY-NNN. Sequences past 999 widen.
func documentNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

func dateOrNow(d *time.Time, now Clock) time.Time {
	if d != nil {
		return *d
	}
	return now()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
