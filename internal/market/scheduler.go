package market

import "fmt"

// pendingReply is a one-shot delayed auto-reply keyed by task id.
// Scheduling again for the same task replaces the pending one, so at
// most one reply is ever in flight per task.
type pendingReply struct {
	TaskID  string
	DueTick uint64
}

func (m *Market) scheduleReply(taskID string, nowTick uint64) {
	m.replies[taskID] = &pendingReply{
		TaskID:  taskID,
		DueTick: nowTick + uint64(m.cfg.ReplyDelayTicks),
	}
}

func (m *Market) cancelReply(taskID string) {
	delete(m.replies, taskID)
}

// systemReplies fires due replies. A reply whose task is gone or
// terminal is dropped silently.
func (m *Market) systemReplies(nowTick uint64) {
	for id, r := range m.replies {
		if nowTick < r.DueTick {
			continue
		}
		delete(m.replies, id)

		t := m.tasks[id]
		if t == nil || t.Status.Terminal() {
			continue
		}
		t.Chat = append(t.Chat, Message{
			ID:         m.newMessageID(),
			Sender:     "Advisory Desk",
			SenderRole: RoleService,
			Content:    autoReplyText(t),
			Tick:       nowTick,
		})
		t.UnreadCount++
		m.notify(KindTask, "auto_reply", fmt.Sprintf("An expert replied on %q.", t.Title), nowTick)
		m.auditEvent(nowTick, "system", KindTask, "auto_reply", t.ID, nil)
	}
}

func autoReplyText(t *ServiceTask) string {
	if t.Type == TaskSupport {
		return "Thanks for the details. A support member has been assigned and will follow up here."
	}
	return "Thanks for your question. Based on what you describe, we recommend monitoring for 24 hours; an expert will follow up with specifics."
}
