package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voiceagent-platform/pkg/utils"
)

// PostgresStore persists call rows via database/sql (pgx stdlib driver).
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) Create(ctx context.Context, c Call) error {
	if c.CallID == "" || c.AgencyID == "" {
		return ErrInvalidArgument
	}
	now := s.clock().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	const q = `
		INSERT INTO calls (
			call_id, agency_id, client_id, provider, agent_id,
			from_number, to_number, status, provider_call_id, control_endpoint,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := s.db.ExecContext(ctx, q,
		c.CallID, c.AgencyID, nullIfEmpty(c.ClientID), c.Provider, c.AgentID,
		nullIfEmpty(c.From), c.To, string(c.Status), c.ProviderCallID, nullIfEmpty(c.ControlEndpoint),
		c.CreatedAt, now,
	)
	return err
}

func (s *PostgresStore) GetByCallID(ctx context.Context, agencyID, callID string) (Call, error) {
	if agencyID == "" || callID == "" {
		return Call{}, ErrInvalidArgument
	}

	const q = `
		SELECT call_id, agency_id, COALESCE(client_id, ''), provider, agent_id,
		       COALESCE(from_number, ''), to_number, status, provider_call_id,
		       COALESCE(control_endpoint, ''), created_at, updated_at
		FROM calls
		WHERE call_id = $1 AND agency_id = $2`

	var c Call
	var status string
	err := s.db.QueryRowContext(ctx, q, callID, agencyID).Scan(
		&c.CallID, &c.AgencyID, &c.ClientID, &c.Provider, &c.AgentID,
		&c.From, &c.To, &status, &c.ProviderCallID,
		&c.ControlEndpoint, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	c.Status = CallStatus(status)
	return c, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, callID string, status CallStatus) error {
	if callID == "" || status == "" {
		return ErrInvalidArgument
	}
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM calls WHERE call_id = $1 FOR UPDATE`, callID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		// Terminal statuses are frozen; a late or out-of-order webhook must
		// not resurrect an ended call.
		if CallStatus(current).IsTerminal() {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE calls SET status = $2, updated_at = $3 WHERE call_id = $1`,
			callID, string(status), s.clock().UTC(),
		)
		return err
	})
}

func (s *PostgresStore) SetControlEndpoint(ctx context.Context, callID, endpoint string) error {
	if callID == "" || endpoint == "" {
		return ErrInvalidArgument
	}
	// Targeted update: leaves concurrent status writes alone.
	res, err := s.db.ExecContext(ctx,
		`UPDATE calls SET control_endpoint = $2, updated_at = $3 WHERE call_id = $1`,
		callID, endpoint, s.clock().UTC(),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
