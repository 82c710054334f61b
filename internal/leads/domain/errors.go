package domain

import (
	"errors"
	"fmt"

	"leadintake_backend/platform/apperr"
)

var (
	// ErrInvalidRecord rejects a record with neither phone nor email.
	ErrInvalidRecord = errors.New("lead record has neither phone nor email")
	// ErrPersistence marks a failed read or write against the lead store.
	ErrPersistence = errors.New("lead store unavailable")
	// ErrCampaignNotFound is returned by stores when a campaign ID does not exist for the tenant.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrNotFound is returned by stores for a missing row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateLead is returned by stores when an insert hits a unique identity key.
	ErrDuplicateLead = errors.New("lead with the same identity already exists")
)

// InvalidRecord wraps ErrInvalidRecord as a validation error.
func InvalidRecord(op string) error {
	return apperr.Wrap(apperr.KindValidation, "phone or email is required", ErrInvalidRecord).WithOp(op)
}

// Persistence wraps a store failure so that errors.Is(err, ErrPersistence) holds
// while the driver error stays reachable.
func Persistence(op string, err error) error {
	return apperr.Wrap(apperr.KindUnavailable, "store operation failed", fmt.Errorf("%w: %w", ErrPersistence, err)).WithOp(op)
}
