package tenant

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("tenant: not found")
	ErrInvalidArgument = errors.New("tenant: invalid argument")
)

// Store is the persistence contract for tenant rows.
//
// Cross-tenant isolation rule: a client row is only addressable through its
// agency. GetClient filters by both ids in the same lookup; there is
// deliberately no GetClientByID.
type Store interface {
	GetAgency(ctx context.Context, agencyID string) (Agency, error)
	GetClient(ctx context.Context, agencyID, clientID string) (Client, error)
}
