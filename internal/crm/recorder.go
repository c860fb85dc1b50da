package crm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voiceagent-platform/pkg/logger"
)

// TransferTag is the deduplicating tag applied to a contact after a transfer.
const TransferTag = "call-transferred"

// Recorder writes transfer events into whichever CRMs a tenant has
// connected.
//
// IMPORTANT:
// - Strictly best-effort. Record never returns an error and never panics.
//   The call already happened; no CRM hiccup may change its outcome.
// - Each connector's side effect is isolated: one failing never skips the
//   other. Failures are logged and then lost (no outbox, no retries).
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

// Record logs the event and applies note + tag to each configured CRM.
// Pass nil for CRMs the tenant has not connected.
func (r *Recorder) Record(ctx context.Context, event TransferEvent, connectors ...Connector) {
	log := logger.From(ctx).With(
		"call_id", event.CallID,
		"agent_id", event.AgentID,
		"transfer_to", event.Target.PhoneNumber,
	)
	log.Info("call transferred",
		"target_name", event.Target.Name,
		"department", event.Target.Department,
		"reason", event.Reason,
	)

	for _, conn := range connectors {
		if conn == nil {
			continue
		}
		r.recordOne(ctx, conn, event, log)
	}
}

// recordOne applies one CRM's side effect, swallowing every failure mode
// including connector panics.
func (r *Recorder) recordOne(ctx context.Context, conn Connector, event TransferEvent, log *slog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			log.Warn("crm recorder panic recovered", "crm", conn.Name(), "panic", fmt.Sprint(p))
		}
	}()

	if event.FromNumber == "" {
		log.Debug("no originating number on transfer event, skipping crm", "crm", conn.Name())
		return
	}

	contact, err := conn.SearchContactByPhone(ctx, event.FromNumber)
	if err != nil {
		log.Warn("crm contact lookup failed", "crm", conn.Name(), "err", err)
		return
	}

	if err := conn.AddNote(ctx, contact.ID, formatTransferNote(event)); err != nil {
		log.Warn("crm note append failed", "crm", conn.Name(), "contact_id", contact.ID, "err", err)
	}
	if err := conn.AddTags(ctx, contact.ID, []string{TransferTag}); err != nil {
		log.Warn("crm tag update failed", "crm", conn.Name(), "contact_id", contact.ID, "err", err)
	}
}

// formatTransferNote renders the human-readable note appended to the contact.
func formatTransferNote(event TransferEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Call transferred to %s", event.Target.Name)
	if event.Target.Department != "" {
		fmt.Fprintf(&b, " (%s)", event.Target.Department)
	}
	if event.Reason != "" {
		fmt.Fprintf(&b, "\nReason: %s", event.Reason)
	}
	fmt.Fprintf(&b, "\nTransfer number: %s", event.Target.PhoneNumber)
	if event.Target.Extension != "" {
		fmt.Fprintf(&b, " ext. %s", event.Target.Extension)
	}
	fmt.Fprintf(&b, "\nTime: %s", event.OccurredAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}
