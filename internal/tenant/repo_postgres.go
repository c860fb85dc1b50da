package tenant

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore reads tenant rows via database/sql (pgx stdlib driver).
//
// CRM connection columns are nullable; a NULL access token means the CRM is
// not connected and the corresponding pointer stays nil.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetAgency(ctx context.Context, agencyID string) (Agency, error) {
	if agencyID == "" {
		return Agency{}, ErrInvalidArgument
	}

	const q = `
		SELECT id, name,
		       COALESCE(retell_key, ''), COALESCE(vapi_key, ''), COALESCE(bland_key, ''),
		       ghl_access_token, COALESCE(ghl_location_id, ''),
		       hubspot_access_token, COALESCE(hubspot_portal_id, ''),
		       created_at, updated_at
		FROM agencies
		WHERE id = $1`

	var a Agency
	var ghlToken, hsToken sql.NullString
	var ghlLocation, hsPortal string
	err := s.db.QueryRowContext(ctx, q, agencyID).Scan(
		&a.ID, &a.Name,
		&a.RetellKey, &a.VapiKey, &a.BlandKey,
		&ghlToken, &ghlLocation,
		&hsToken, &hsPortal,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Agency{}, ErrNotFound
	}
	if err != nil {
		return Agency{}, err
	}

	if ghlToken.Valid && ghlToken.String != "" {
		a.GHL = &GHLConnection{AccessToken: ghlToken.String, LocationID: ghlLocation}
	}
	if hsToken.Valid && hsToken.String != "" {
		a.HubSpot = &HubSpotConnection{AccessToken: hsToken.String, PortalID: hsPortal}
	}
	return a, nil
}

func (s *PostgresStore) GetClient(ctx context.Context, agencyID, clientID string) (Client, error) {
	if agencyID == "" || clientID == "" {
		return Client{}, ErrInvalidArgument
	}

	// Both ids in one predicate: a client id alone must never address a row.
	const q = `
		SELECT id, agency_id, name,
		       COALESCE(retell_key, ''), COALESCE(vapi_key, ''), COALESCE(bland_key, ''),
		       created_at, updated_at
		FROM clients
		WHERE id = $1 AND agency_id = $2`

	var c Client
	err := s.db.QueryRowContext(ctx, q, clientID, agencyID).Scan(
		&c.ID, &c.AgencyID, &c.Name,
		&c.RetellKey, &c.VapiKey, &c.BlandKey,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	if err != nil {
		return Client{}, err
	}
	return c, nil
}
