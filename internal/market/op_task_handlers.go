package market

import (
	"fmt"

	"freshvault/internal/protocol"
)

func handleAcceptTask(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if !canTransition(KindTask, string(t.Status), string(TaskAccepted)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot accept from %s", t.Status)))
		return
	}
	t.Status = TaskAccepted
	t.Assignee = s.Name

	// Maintenance-flavored work starts in the diagnostic stage.
	if (t.Type == TaskMaintenance || t.Type == TaskEmergency) && t.Maintenance != nil {
		t.Maintenance.Stage = StageDiagnostic
	}

	m.notify(KindTask, "accepted", fmt.Sprintf("%s accepted %q.", s.Name, t.Title), nowTick)
	m.auditEvent(nowTick, s.ID, KindTask, "accept", t.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "status", string(t.Status)))
}

func handleRejectTask(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if !canTransition(KindTask, string(t.Status), string(TaskRejected)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot reject from %s", t.Status)))
		return
	}
	t.Status = TaskRejected

	m.notify(KindTask, "rejected", fmt.Sprintf("%q was rejected.", t.Title), nowTick)
	m.auditEvent(nowTick, s.ID, KindTask, "reject", t.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "status", string(t.Status)))
}

func handleCompleteTask(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if !canTransition(KindTask, string(t.Status), string(TaskCompleted)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot complete from %s", t.Status)))
		return
	}

	// Type-specific completion contracts.
	switch {
	case t.Type == TaskQACheck && t.QA != nil:
		if !t.QA.Verified {
			s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "qa check not verified"))
			return
		}
		m.completeQATask(t, nowTick)
	case (t.Type == TaskMaintenance || t.Type == TaskEmergency) && t.Maintenance != nil:
		if t.Maintenance.Stage != StageFixing {
			s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "diagnostic stage not finished"))
			return
		}
		switch {
		case op.Resolution == ResolutionUnresolved:
			t.Maintenance.Resolution = ResolutionUnresolved
		case op.Notes != "":
			t.Maintenance.RepairNotes = op.Notes
			t.Maintenance.Resolution = ResolutionResolved
		default:
			s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest,
				"repair notes or UNRESOLVED resolution required"))
			return
		}
		m.resolveMaintenanceTicket(t, nowTick)
	}

	t.Status = TaskCompleted
	m.cancelReply(t.ID)

	m.notify(KindTask, "completed", fmt.Sprintf("%q is complete.", t.Title), nowTick)
	m.auditEvent(nowTick, s.ID, KindTask, "complete", t.ID, map[string]any{"task_type": string(t.Type)})
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "status", string(t.Status)))
}

// handleApproveQACheck completes a verified QA task and promotes the
// crop in one step.
func handleApproveQACheck(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Type != TaskQACheck || t.QA == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "not a qa task"))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if !canTransition(KindTask, string(t.Status), string(TaskCompleted)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot complete from %s", t.Status)))
		return
	}
	if !t.QA.Verified {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "qa check not verified"))
		return
	}

	m.completeQATask(t, nowTick)
	t.Status = TaskCompleted
	m.cancelReply(t.ID)

	m.notify(KindTask, "completed", fmt.Sprintf("%q is complete.", t.Title), nowTick)
	m.auditEvent(nowTick, s.ID, KindTask, "qa_approve", t.ID, map[string]any{"crop_id": t.QA.CropID})
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "crop_id", t.QA.CropID))
}

// handleSetQAVerified toggles a checklist item (step_index + checked)
// or the overall verified flag.
func handleSetQAVerified(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Type != TaskQACheck || t.QA == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "not a qa task"))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}

	switch {
	case op.StepIndex != nil:
		i := *op.StepIndex
		if i < 0 || i >= len(t.QA.Checklist) {
			s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest,
				fmt.Sprintf("step index %d out of range", i)))
			return
		}
		checked := true
		if op.Checked != nil {
			checked = *op.Checked
		}
		t.QA.Checklist[i].Checked = checked
	case op.Verified != nil:
		t.QA.Verified = *op.Verified
	default:
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "nothing to set"))
		return
	}

	if t.Status == TaskAccepted {
		t.Status = TaskInProgress
	}
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "verified", t.QA.Verified))
}

// handleUpdateMaintenanceStage moves DIAGNOSTIC -> FIXING; the
// diagnostic notes are the gate.
func handleUpdateMaintenanceStage(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Maintenance == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "not a maintenance task"))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if MaintenanceStage(op.Stage) != StageFixing {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "stage must be FIXING"))
		return
	}
	if t.Maintenance.Stage != StageDiagnostic {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("stage is %s, not DIAGNOSTIC", t.Maintenance.Stage)))
		return
	}
	if op.Notes == "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "diagnostic notes required"))
		return
	}

	t.Maintenance.DiagnosticNotes = op.Notes
	t.Maintenance.Stage = StageFixing
	if t.Status == TaskAccepted {
		t.Status = TaskInProgress
	}

	m.auditEvent(nowTick, s.ID, KindTask, "stage", t.ID, map[string]any{"stage": string(StageFixing)})
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "stage", string(t.Maintenance.Stage)))
}

// handleUpdateDeliveryStep completes one checklist step. Steps are
// independently completable; completing any step pulls an ACCEPTED
// task into IN_PROGRESS.
func handleUpdateDeliveryStep(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Type != TaskDelivery || t.Delivery == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "not a delivery task"))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if op.StepIndex == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing step_index"))
		return
	}
	i := *op.StepIndex
	if i < 0 || i >= len(t.Delivery.Steps) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest,
			fmt.Sprintf("step index %d out of range", i)))
		return
	}
	step := &t.Delivery.Steps[i]
	if !step.Completed {
		step.Completed = true
		step.CompletedTick = nowTick
	}
	if t.Status == TaskAccepted {
		t.Status = TaskInProgress
	}

	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "step_index", i, "status", string(t.Status)))
}

func handleSendTaskMessage(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	if op.Text == "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "empty message"))
		return
	}

	msg := Message{
		ID:         m.newMessageID(),
		Sender:     s.Name,
		SenderRole: s.Role,
		Content:    op.Text,
		Attachment: op.Attachment,
		Tick:       nowTick,
	}
	t.Chat = append(t.Chat, msg)
	t.UnreadCount++

	action := "message_service"
	if s.Role == RoleFarmer {
		action = "message_farmer"
		// A farmer question on an advice/support thread gets a delayed
		// one-shot auto-reply; resending replaces the pending one.
		if t.Type == TaskExpertAdvice || t.Type == TaskSupport {
			m.scheduleReply(t.ID, nowTick)
		}
	}
	m.notify(KindTask, action, fmt.Sprintf("New message on %q.", t.Title), nowTick)

	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "message_id", msg.ID))
}

func handleMarkTaskRead(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	for i := range t.Chat {
		t.Chat[i].Read = true
	}
	t.UnreadCount = 0
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID))
}

// handleEscalateTask re-types a live task in place: new type, HIGH
// priority, back to AVAILABLE. Identity, chat and history survive.
// This is the one sanctioned re-entry into AVAILABLE.
func handleEscalateTask(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t := m.tasks[op.TaskID]
	if t == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such task: "+op.TaskID))
		return
	}
	if t.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "task is closed"))
		return
	}
	target := TaskType(op.TargetType)
	if !knownTaskType(target) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "unknown task type: "+op.TargetType))
		return
	}
	// Delivery and QA tasks carry provenance (offer, crop) that an
	// escalation cannot supply.
	if target == TaskDelivery || target == TaskQACheck {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "cannot escalate to "+op.TargetType))
		return
	}

	from := t.Type
	t.Type = target
	t.Priority = PriorityHigh
	t.Status = TaskAvailable
	t.Assignee = ""
	if target == TaskMaintenance || target == TaskEmergency {
		if t.Maintenance == nil {
			t.Maintenance = &MaintenanceDetail{}
		}
	}

	note := op.Note
	if note == "" {
		note = fmt.Sprintf("Escalated from %s to %s.", from, target)
	}
	t.Chat = append(t.Chat, Message{
		ID:      m.newMessageID(),
		Sender:  "system",
		Content: note,
		System:  true,
		Tick:    nowTick,
	})

	m.notify(KindTask, "escalated", fmt.Sprintf("%q escalated to %s.", t.Title, target), nowTick)
	m.auditEvent(nowTick, s.ID, KindTask, "escalate", t.ID, map[string]any{"from": string(from), "to": string(target)})
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "task_type", string(t.Type), "status", string(t.Status)))
}

// completeQATask flips the crop to VERIFIED atomically with the task.
func (m *Market) completeQATask(t *ServiceTask, nowTick uint64) {
	if c := m.crops[t.QA.CropID]; c != nil {
		c.QAStatus = QAVerified
		m.notify(kindCrop, "qa_verified", fmt.Sprintf("%s passed quality verification.", c.Name), nowTick)
	}
}

func (m *Market) resolveMaintenanceTicket(t *ServiceTask, nowTick uint64) {
	u := m.units[t.UnitID]
	if u == nil || u.Ticket == nil {
		return
	}
	u.Ticket.Resolved = true
	u.Status = UnitActive
	m.notify(kindRental, "maintenance_resolved",
		fmt.Sprintf("%s is back to normal operation.", u.Name), nowTick)
}
