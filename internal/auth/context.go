package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxAgencyID
	ctxClientID
	ctxRole
)

func WithIdentity(ctx context.Context, userID, agencyID, clientID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxAgencyID, agencyID)
	ctx = context.WithValue(ctx, ctxClientID, clientID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func AgencyID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxAgencyID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("agency_id not in context")
}

// ClientID returns the caller's client scope, if any. Unlike the other
// identity fields an empty client id is not an error.
func ClientID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxClientID).(string); ok {
		return s
	}
	return ""
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
