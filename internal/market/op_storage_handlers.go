package market

import (
	"fmt"

	"freshvault/internal/protocol"
)

func handleCreateStorageRequest(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	if op.Storage == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing storage spec"))
		return
	}
	spec := op.Storage
	def, ok := m.cats.StorageUnits.ByID[spec.UnitType]
	if !ok {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "unknown unit type: "+spec.UnitType))
		return
	}
	if spec.DurationDays <= 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "duration must be positive"))
		return
	}

	r := &StorageRequest{
		ID:           m.newRequestID(),
		UnitType:     def.ID,
		Crop:         spec.Crop,
		Quantity:     spec.Quantity,
		DurationDays: spec.DurationDays,
		Location:     spec.Location,
		Cost:         def.RatePerDay * spec.DurationDays,
		Status:       RentalRequested,
		Timeline: []TimelineEntry{
			{Status: string(RentalRequested), Note: "Request submitted", Tick: nowTick},
		},
		RequestedTick: nowTick,
	}
	m.storageRequests[r.ID] = r

	m.notify(KindStorage, "requested",
		fmt.Sprintf("%s requested for %d days at %s.", def.Name, r.DurationDays, r.Location), nowTick)
	m.auditEvent(nowTick, s.ID, KindStorage, "create", r.ID, map[string]any{"unit_type": def.ID, "cost": r.Cost})
	s.AddEvent(okResult(nowTick, op.ID, "request_id", r.ID, "cost", r.Cost))
}

// handleCancelStorageRequest: cancellation is only legal before the
// service side picks the request up.
func handleCancelStorageRequest(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	r := m.storageRequests[op.RequestID]
	if r == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.RequestID))
		return
	}
	if r.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "request is closed"))
		return
	}
	if !canTransition(KindStorage, string(r.Status), string(RentalCancelled)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot cancel from %s", r.Status)))
		return
	}
	r.Status = RentalCancelled
	r.Timeline = append(r.Timeline, TimelineEntry{Status: string(RentalCancelled), Tick: nowTick})
	m.closeRental(r, nowTick)

	m.notify(KindStorage, "cancelled", fmt.Sprintf("Storage request %s was cancelled.", r.ID), nowTick)
	m.auditEvent(nowTick, s.ID, KindStorage, "cancel", r.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "request_id", r.ID, "status", string(r.Status)))
}

// handleAdvanceStorageRequest walks the rental pipeline one step. An
// explicit target status may be supplied; otherwise the next step in
// the chain is taken.
func handleAdvanceStorageRequest(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	r := m.storageRequests[op.RequestID]
	if r == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.RequestID))
		return
	}
	if r.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "request is closed"))
		return
	}
	to := RentalStatus(op.Status)
	if op.Status == "" {
		to = nextRentalStatus(r.Status)
	}
	if to == "" || !canTransition(KindStorage, string(r.Status), string(to)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("illegal transition %s -> %s", r.Status, to)))
		return
	}

	r.Status = to
	r.Timeline = append(r.Timeline, TimelineEntry{Status: string(to), Note: op.Note, Tick: nowTick})

	switch to {
	case RentalAssigned:
		r.ServiceMember = s.Name
		if op.ETA != "" {
			r.ETA = op.ETA
		}
	case RentalActive:
		u := m.deployUnit(r, nowTick)
		r.UnitID = u.ID
	case RentalCompleted:
		m.closeRental(r, nowTick)
	}

	m.notify(KindStorage, "advanced",
		fmt.Sprintf("Storage request %s is now %s.", r.ID, to), nowTick)
	m.auditEvent(nowTick, s.ID, KindStorage, "advance", r.ID, map[string]any{"to": string(to)})
	s.AddEvent(okResult(nowTick, op.ID, "request_id", r.ID, "status", string(to), "unit_id", r.UnitID))
}

func handleExtendRental(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	u := m.units[op.UnitID]
	if u == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such unit: "+op.UnitID))
		return
	}
	if op.Days <= 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "days must be positive"))
		return
	}
	def, ok := m.cats.StorageUnits.ByID[u.UnitType]
	if !ok {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInternal, "unit type missing from catalog"))
		return
	}
	cost := def.RatePerDay * op.Days
	if !m.ledger.Spend(cost, "rental:"+u.ID, nowTick) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNoCredit,
			fmt.Sprintf("extension costs %d, balance %d", cost, m.ledger.Balance())))
		return
	}
	u.RemainingDays += op.Days

	m.notify(kindRental, "extended",
		fmt.Sprintf("%s extended by %d days (%d remaining).", u.Name, op.Days, u.RemainingDays), nowTick)
	m.auditEvent(nowTick, s.ID, kindRental, "extend", u.ID, map[string]any{"days": op.Days, "cost": cost})
	s.AddEvent(okResult(nowTick, op.ID, "unit_id", u.ID, "remaining_days", u.RemainingDays, "balance", m.ledger.Balance()))
}

func handleRequestMaintenance(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	u := m.units[op.UnitID]
	if u == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such unit: "+op.UnitID))
		return
	}
	if op.Issue == "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing issue"))
		return
	}
	if u.Ticket != nil && !u.Ticket.Resolved {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "maintenance already open"))
		return
	}

	priority := PriorityMedium
	if p := TaskPriority(op.Priority); p == PriorityLow || p == PriorityHigh || p == PriorityCritical {
		priority = p
	}
	t := &ServiceTask{
		ID:          m.newTaskID(),
		Type:        TaskMaintenance,
		Title:       "Maintenance: " + u.Name,
		Description: op.Issue,
		Requester:   s.Name,
		Location:    u.Location,
		Priority:    priority,
		Status:      TaskAvailable,
		Earnings:    60,
		UnitID:      u.ID,
		Maintenance: &MaintenanceDetail{},
		CreatedTick: nowTick,
	}
	m.tasks[t.ID] = t

	u.Ticket = &MaintenanceTicket{
		Issue:      op.Issue,
		Priority:   string(priority),
		OpenedTick: nowTick,
		TaskID:     t.ID,
	}
	u.Status = UnitMaintenance

	m.notify(kindRental, "maintenance_requested",
		fmt.Sprintf("%s reported: %s", u.Name, op.Issue), nowTick)
	m.auditEvent(nowTick, s.ID, kindRental, "maintenance_request", u.ID, map[string]any{"task_id": t.ID})
	s.AddEvent(okResult(nowTick, op.ID, "unit_id", u.ID, "task_id", t.ID))
}

// deployUnit creates the on-site unit when a rental goes ACTIVE.
func (m *Market) deployUnit(r *StorageRequest, nowTick uint64) *DeployedUnit {
	def := m.cats.StorageUnits.ByID[r.UnitType]
	u := &DeployedUnit{
		ID:            m.newUnitID(),
		UnitType:      r.UnitType,
		Name:          fmt.Sprintf("%s #%s", def.Name, r.ID),
		Crop:          r.Crop,
		Location:      r.Location,
		Status:        UnitActive,
		RemainingDays: r.DurationDays,
		Temperature:   Reading{Current: def.TargetTemp, Target: def.TargetTemp},
		Humidity:      Reading{Current: def.TargetRH, Target: def.TargetRH},
		Battery:       100,
		RiskLevel:     RiskLow,
		RequestID:     r.ID,
		DeployedTick:  nowTick,
	}
	m.units[u.ID] = u
	return u
}

// closeRental mirrors a finished request into rental history.
func (m *Market) closeRental(r *StorageRequest, nowTick uint64) {
	m.rentalHistory = append(m.rentalHistory, RentalRecord{
		RequestID:  r.ID,
		UnitType:   r.UnitType,
		Crop:       r.Crop,
		Cost:       r.Cost,
		Status:     r.Status,
		ClosedTick: nowTick,
	})
}
