package crm

import (
	"context"
	"errors"
)

var ErrContactNotFound = errors.New("crm: contact not found")

// Connector is the three-operation contract the call core needs from a CRM.
// Implementations carry their own credentials; callers never see provider
// wire formats.
type Connector interface {
	Name() string
	SearchContactByPhone(ctx context.Context, phone string) (Contact, error)
	AddNote(ctx context.Context, contactID, text string) error
	AddTags(ctx context.Context, contactID string, tags []string) error
}
