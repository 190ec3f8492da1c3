// Package repositories holds helpers shared by the entity repositories
package repositories

import (
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/errors"
)

// StoreError wraps a driver or deadline failure as a retryable StoreUnavailableError.
// Errors that are already typed pass through.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsStoreUnavailable(err) || errors.IsDuplicateRace(err) {
		return err
	}
	if database.IsTimeout(err) {
		return errors.NewStoreUnavailableError(op+" timed out", err)
	}
	return errors.NewStoreUnavailableError(op, err)
}
