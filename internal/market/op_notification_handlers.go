package market

import "freshvault/internal/protocol"

func handleMarkNotificationRead(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	if op.NotificationID == "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing notification_id"))
		return
	}
	// Idempotent: marking a missing or already-read notification is
	// still a success.
	m.markNotificationRead(op.NotificationID)
	s.AddEvent(okResult(nowTick, op.ID, "notification_id", op.NotificationID))
}

func handleClearNotifications(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	cleared := m.clearNotifications(s.Role)
	s.AddEvent(okResult(nowTick, op.ID, "cleared", cleared))
}
