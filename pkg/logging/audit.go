package logging

import "strings"

// AuditEvent describes a security-relevant credential lifecycle event.
type AuditEvent struct {
	// Action is what happened, e.g. "token_refresh" or "credentials_stored".
	Action string
	// Outcome is "success" or "failure".
	Outcome string
	// Target is the resource acted on, usually the credential file path.
	Target string
	// Details is free-form context. It must never contain token values.
	Details string
}

// Audit logs an audit event at INFO level.
func Audit(event AuditEvent) {
	parts := []string{"action=" + event.Action, "outcome=" + event.Outcome}
	if event.Target != "" {
		parts = append(parts, "target="+event.Target)
	}
	if event.Details != "" {
		parts = append(parts, "details="+event.Details)
	}
	Info("Audit", "[AUDIT] %s", strings.Join(parts, " "))
}
