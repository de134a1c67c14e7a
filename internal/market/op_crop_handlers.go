package market

import (
	"fmt"

	"freshvault/internal/protocol"
)

func handleAddCrop(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	if op.Crop == nil || op.Crop.Name == "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing crop"))
		return
	}
	spec := op.Crop
	if spec.Quantity < 0 || spec.PricePerKg < 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "negative quantity or price"))
		return
	}

	c := &Crop{
		ID:            m.newCropID(),
		Name:          spec.Name,
		Variety:       spec.Variety,
		Quantity:      spec.Quantity,
		PricePerKg:    spec.PricePerKg,
		HarvestDate:   spec.HarvestDate,
		Location:      spec.Location,
		Category:      spec.Category,
		StorageUnitID: spec.StorageUnitID,

		VisibilityScore: 50,
		QAStatus:        QANone,
		Monitoring: Monitoring{
			Temperature: 22.0,
			Humidity:    60.0,
			RiskScore:   10,
			RiskLevel:   RiskLow,
		},
		PriceHistory: []PricePoint{{At: m.now(), Price: spec.PricePerKg}},
		CreatedTick:  nowTick,
	}
	m.crops[c.ID] = c

	m.auditEvent(nowTick, s.ID, kindCrop, "add", c.ID, map[string]any{"name": c.Name, "quantity": c.Quantity})
	s.AddEvent(okResult(nowTick, op.ID, "crop_id", c.ID))
}

func handleUpdateCrop(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	c := m.crops[op.CropID]
	if c == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such crop: "+op.CropID))
		return
	}
	if op.Patch == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing patch"))
		return
	}
	p := op.Patch
	if p.Name != "" {
		c.Name = p.Name
	}
	if p.Variety != "" {
		c.Variety = p.Variety
	}
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "negative quantity"))
			return
		}
		c.Quantity = *p.Quantity
	}
	if p.PricePerKg != nil && *p.PricePerKg != c.PricePerKg {
		if *p.PricePerKg < 0 {
			s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "negative price"))
			return
		}
		c.PricePerKg = *p.PricePerKg
		c.PriceHistory = append(c.PriceHistory, PricePoint{At: m.now(), Price: c.PricePerKg})
	}
	if p.HarvestDate != "" {
		c.HarvestDate = p.HarvestDate
	}
	if p.Location != "" {
		c.Location = p.Location
	}
	if p.Category != "" {
		c.Category = p.Category
	}

	m.auditEvent(nowTick, s.ID, kindCrop, "update", c.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "crop_id", c.ID))
}

func handleDeleteCrop(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	c := m.crops[op.CropID]
	if c == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such crop: "+op.CropID))
		return
	}
	delete(m.crops, c.ID)
	m.auditEvent(nowTick, s.ID, kindCrop, "delete", c.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "crop_id", c.ID))
}

func handlePromoteCrop(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	c := m.crops[op.CropID]
	if c == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such crop: "+op.CropID))
		return
	}
	plan, ok := m.cats.Plans.ByID[op.Plan]
	if !ok {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "unknown plan: "+op.Plan))
		return
	}
	if !m.ledger.Spend(plan.Credits, "promotion:"+c.ID, nowTick) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNoCredit,
			fmt.Sprintf("plan %s costs %d, balance %d", plan.ID, plan.Credits, m.ledger.Balance())))
		return
	}

	// Renewal overwrites the prior window; there is no stacking.
	start := m.now()
	c.Promoted = &Promotion{
		Active:    true,
		Plan:      PromotionPlan(plan.ID),
		StartDate: start,
		EndDate:   start.AddDate(0, 0, plan.DurationDays),
	}
	c.IsPromoted = true
	if c.VisibilityScore < 100-plan.Boost {
		c.VisibilityScore += plan.Boost
	} else {
		c.VisibilityScore = 100
	}

	m.notify(kindCrop, "promoted", fmt.Sprintf("%s is now promoted on the %s plan.", c.Name, plan.ID), nowTick)
	m.auditEvent(nowTick, s.ID, kindCrop, "promote", c.ID, map[string]any{"plan": plan.ID, "credits": plan.Credits})
	s.AddEvent(okResult(nowTick, op.ID, "crop_id", c.ID, "balance", m.ledger.Balance()))
}

func handleCheckPromotions(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	expired := m.sweepPromotions(nowTick)
	s.AddEvent(okResult(nowTick, op.ID, "expired", expired))
}

func handleRequestQACheck(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	c := m.crops[op.CropID]
	if c == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such crop: "+op.CropID))
		return
	}
	if c.QAStatus == QARequested {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "qa check already requested"))
		return
	}
	c.QAStatus = QARequested

	checklist := make([]QAChecklistItem, len(defaultQAChecklist))
	for i, item := range defaultQAChecklist {
		checklist[i] = QAChecklistItem{Item: item}
	}
	t := &ServiceTask{
		ID:          m.newTaskID(),
		Type:        TaskQACheck,
		Title:       "QA check: " + c.Name,
		Description: fmt.Sprintf("Quality verification for %s (%s).", c.Name, c.ID),
		Requester:   s.Name,
		Location:    c.Location,
		Priority:    PriorityMedium,
		Status:      TaskAvailable,
		Earnings:    40,
		QA:          &QADetail{CropID: c.ID, Checklist: checklist},
		CreatedTick: nowTick,
	}
	m.tasks[t.ID] = t

	m.notify(kindCrop, "qa_requested", fmt.Sprintf("QA check requested for %s.", c.Name), nowTick)
	m.auditEvent(nowTick, s.ID, kindCrop, "qa_request", c.ID, map[string]any{"task_id": t.ID})
	s.AddEvent(okResult(nowTick, op.ID, "crop_id", c.ID, "task_id", t.ID))
}
