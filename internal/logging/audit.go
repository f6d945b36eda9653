package logging

import (
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a respondent-flow event worth keeping even when the
// endpoint lost the data. The audit trail is the only local record of which
// rows were dispatched and which transport attempts failed.
type AuditEventType string

const (
	AuditSessionStart    AuditEventType = "session_start"
	AuditIdentified      AuditEventType = "identified"
	AuditPoolLoaded      AuditEventType = "pool_loaded"
	AuditPoolFailed      AuditEventType = "pool_failed"
	AuditPreference      AuditEventType = "preference"
	AuditDispatch        AuditEventType = "dispatch"
	AuditDispatchFailed  AuditEventType = "dispatch_failed"
	AuditSubmitBlocked   AuditEventType = "submit_blocked"
	AuditSessionComplete AuditEventType = "session_complete"
)

// CategoryAudit carries audit events; it can be routed or disabled like any
// other category.
const CategoryAudit Category = "audit"

// AuditEvent is one audit record.
type AuditEvent struct {
	Type      AuditEventType
	SessionID string
	ItemID    string
	Success   bool
	Err       error
	Fields    map[string]any
}

// Audit writes event to the audit category.
func Audit(ev AuditEvent) {
	l := Get(CategoryAudit)
	if l.sugar == nil {
		return
	}
	fields := map[string]any{
		"event":      string(ev.Type),
		"session_id": ev.SessionID,
		"success":    ev.Success,
		"at":         time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ev.ItemID != "" {
		fields["item_id"] = ev.ItemID
	}
	if ev.Err != nil {
		fields["error"] = ev.Err.Error()
	}
	for k, v := range ev.Fields {
		fields[k] = v
	}
	level := "info"
	if ev.Err != nil {
		level = "warn"
	}
	l.StructuredLog(level, "audit", fields)
}
