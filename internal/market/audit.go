package market

// AuditEntry records one applied transition or credit movement.
type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Kind    string         `json:"kind"`
	Action  string         `json:"action"`
	Ref     string         `json:"ref"`
	Details map[string]any `json:"details,omitempty"`
}

type AuditLogger interface {
	WriteAudit(AuditEntry) error
}

func (m *Market) auditEvent(tick uint64, actor string, kind EntityKind, action, ref string, details map[string]any) {
	if m.auditLogger == nil {
		return
	}
	_ = m.auditLogger.WriteAudit(AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Kind:    string(kind),
		Action:  action,
		Ref:     ref,
		Details: details,
	})
}
