package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store is the persistence contract for call rows.
//
// UpdateStatus never overwrites a terminal status: late or out-of-order
// webhooks are a no-op once the call has ended.
//
// SetControlEndpoint is a single-field update on purpose: concurrent control
// requests may race to populate the cache, and a full-row write would
// clobber unrelated concurrent updates (status transitions from webhooks).
type Store interface {
	Create(ctx context.Context, c Call) error
	GetByCallID(ctx context.Context, agencyID, callID string) (Call, error)
	UpdateStatus(ctx context.Context, callID string, status CallStatus) error
	SetControlEndpoint(ctx context.Context, callID, endpoint string) error
}
