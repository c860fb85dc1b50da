package calls

import "time"

// Call represents one tenant-scoped outbound voice-agent call.
//
// Multi-tenant invariant: AgencyID is required on every row, and every
// lookup filters by it.
//
// ControlEndpoint is derived data cached from the provider: the per-call URL
// live commands are POSTed to. Caching never bypasses validation; the live
// controller re-checks the URL on every use.
type Call struct {
	CallID   string `json:"call_id" db:"call_id"`
	AgencyID string `json:"agency_id" db:"agency_id"`
	ClientID string `json:"client_id,omitempty" db:"client_id"`

	Provider string `json:"provider" db:"provider"`
	AgentID  string `json:"agent_id" db:"agent_id"`

	From string `json:"from,omitempty" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	// ProviderCallID is the provider's identifier for this call.
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`

	// ControlEndpoint is empty until first resolved.
	ControlEndpoint string `json:"-" db:"control_endpoint"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no_answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// IsLive reports whether the call can receive live control commands.
func (s CallStatus) IsLive() bool { return s == CallStatusInProgress }

// IsTerminal reports whether the call has ended. Terminal status releases the
// agency's concurrency slot.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer, CallStatusBusy, CallStatusCanceled:
		return true
	}
	return false
}

// ParseStatus maps a provider-reported status string to a known CallStatus.
func ParseStatus(s string) (CallStatus, bool) {
	switch CallStatus(s) {
	case CallStatusQueued, CallStatusRinging, CallStatusInProgress,
		CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer,
		CallStatusBusy, CallStatusCanceled:
		return CallStatus(s), true
	}
	return "", false
}
