package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: AgencyID must be present for all non-admin activity.
// ClientID is optional and narrows the caller to one sub-client of the agency.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	AgencyID  string    `json:"agency_id"`
	ClientID  string    `json:"client_id,omitempty"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
