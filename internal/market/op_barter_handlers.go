package market

import (
	"fmt"

	"freshvault/internal/protocol"
)

func handleAddBarterListing(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	if op.Listing == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing listing"))
		return
	}
	spec := op.Listing
	if _, ok := m.cats.Services.ByID[spec.ServiceType]; !ok {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "unknown service type: "+spec.ServiceType))
		return
	}
	if spec.CreditCost <= 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "credit cost must be positive"))
		return
	}

	l := &BarterListing{
		ID:              m.newListingID(),
		ServiceType:     spec.ServiceType,
		Description:     spec.Description,
		District:        spec.District,
		CreditCost:      spec.CreditCost,
		Status:          ListingAvailable,
		ProviderSession: s.ID,
		ProviderName:    s.Name,
		CreatedTick:     nowTick,
	}
	m.listings[l.ID] = l

	m.auditEvent(nowTick, s.ID, KindBarter, "list", l.ID, map[string]any{"service_type": l.ServiceType, "cost": l.CreditCost})
	s.AddEvent(okResult(nowTick, op.ID, "listing_id", l.ID))
}

// handleRequestBarterService escrows the full listing cost up front.
// Every guard runs before the debit, so a rejection leaves the ledger
// untouched.
func handleRequestBarterService(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	l := m.listings[op.ListingID]
	if l == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such listing: "+op.ListingID))
		return
	}
	if l.ProviderSession == s.ID {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "cannot request own listing"))
		return
	}
	if !m.ledger.Spend(l.CreditCost, "barter:"+l.ID, nowTick) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNoCredit,
			fmt.Sprintf("service costs %d, balance %d", l.CreditCost, m.ledger.Balance())))
		return
	}

	b := &BarterRequest{
		ID:               m.newBarterID(),
		ListingID:        l.ID,
		ServiceType:      l.ServiceType,
		CreditCost:       l.CreditCost,
		Status:           BarterRequested,
		RequesterSession: s.ID,
		RequesterName:    s.Name,
		ProviderName:     l.ProviderName,
		RequestedTick:    nowTick,
	}
	m.barters[b.ID] = b

	m.notify(KindBarter, "requested",
		fmt.Sprintf("%s requested %s for %d credits.", s.Name, b.ServiceType, b.CreditCost), nowTick)
	m.auditEvent(nowTick, s.ID, KindBarter, "request", b.ID, map[string]any{"cost": b.CreditCost, "balance": m.ledger.Balance()})
	s.AddEvent(okResult(nowTick, op.ID, "barter_id", b.ID, "balance", m.ledger.Balance()))
}

func handleAcceptBarterService(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	b := m.barters[op.BarterID]
	if b == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.BarterID))
		return
	}
	if !canTransition(KindBarter, string(b.Status), string(BarterAccepted)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot accept from %s", b.Status)))
		return
	}
	b.Status = BarterAccepted
	if l := m.listings[b.ListingID]; l != nil {
		l.Status = ListingBusy
	}

	m.notify(KindBarter, "accepted",
		fmt.Sprintf("%s accepted your %s request.", b.ProviderName, b.ServiceType), nowTick)
	m.auditEvent(nowTick, s.ID, KindBarter, "accept", b.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "barter_id", b.ID, "status", string(b.Status)))
}

func handleCompleteBarterService(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	b := m.barters[op.BarterID]
	if b == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.BarterID))
		return
	}
	if !canTransition(KindBarter, string(b.Status), string(BarterCompleted)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot complete from %s", b.Status)))
		return
	}
	b.Status = BarterCompleted
	if l := m.listings[b.ListingID]; l != nil {
		l.Status = ListingAvailable
	}

	m.notify(KindBarter, "completed",
		fmt.Sprintf("%s completed: %s.", b.ServiceType, b.ID), nowTick)
	m.auditEvent(nowTick, s.ID, KindBarter, "complete", b.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "barter_id", b.ID, "status", string(b.Status)))
}

// handleRateBarterService: one rating per request, only once the work
// is COMPLETED and the request was never disputed. A RELEASE outcome
// restores COMPLETED but the listing keeps its rating untouched.
func handleRateBarterService(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	b := m.barters[op.BarterID]
	if b == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.BarterID))
		return
	}
	if b.Status != BarterCompleted {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot rate a %s request", b.Status)))
		return
	}
	if b.DisputeReason != "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "request went through a dispute"))
		return
	}
	if b.Rating != 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "already rated"))
		return
	}
	if op.Rating < 1 || op.Rating > 5 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "rating must be 1..5"))
		return
	}
	b.Rating = op.Rating
	b.Feedback = op.Feedback
	if l := m.listings[b.ListingID]; l != nil {
		l.Rating = (l.Rating*float64(l.RatingsCount) + float64(op.Rating)) / float64(l.RatingsCount+1)
		l.RatingsCount++
	}

	m.notify(KindBarter, "rated",
		fmt.Sprintf("%s rated %s %d/5.", b.RequesterName, b.ServiceType, b.Rating), nowTick)
	m.auditEvent(nowTick, s.ID, KindBarter, "rate", b.ID, map[string]any{"rating": b.Rating})
	s.AddEvent(okResult(nowTick, op.ID, "barter_id", b.ID, "rating", b.Rating))
}

// handleRaiseDispute freezes the request. Status is the only thing
// that moves; the escrowed credits stay where they are until a
// resolution.
func handleRaiseDispute(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	b := m.barters[op.BarterID]
	if b == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.BarterID))
		return
	}
	if !canTransition(KindBarter, string(b.Status), string(BarterDisputed)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot dispute a %s request", b.Status)))
		return
	}
	if op.Reason == "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing reason"))
		return
	}
	b.Status = BarterDisputed
	b.DisputeReason = op.Reason

	m.notify(KindBarter, "disputed",
		fmt.Sprintf("Dispute on %s (%s): %s", b.ID, b.ServiceType, op.Reason), nowTick)
	m.auditEvent(nowTick, s.ID, KindBarter, "dispute", b.ID, map[string]any{"reason": op.Reason})
	s.AddEvent(okResult(nowTick, op.ID, "barter_id", b.ID, "status", string(b.Status)))
}

// handleResolveDispute: REFUND moves the escrowed credits back and
// terminates the request; RELEASE returns it to COMPLETED with no
// ledger movement.
func handleResolveDispute(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	b := m.barters[op.BarterID]
	if b == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such request: "+op.BarterID))
		return
	}
	if b.Status != BarterDisputed {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "request is not disputed"))
		return
	}
	switch op.Outcome {
	case "REFUND":
		b.Status = BarterRefunded
		m.ledger.Refund(b.CreditCost, "barter:"+b.ListingID, nowTick)
		m.notify(KindBarter, "refunded",
			fmt.Sprintf("%d credits refunded for %s.", b.CreditCost, b.ServiceType), nowTick)
	case "RELEASE":
		b.Status = BarterCompleted
		m.notify(KindBarter, "released",
			fmt.Sprintf("Dispute on %s resolved in the provider's favor.", b.ID), nowTick)
	default:
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "outcome must be REFUND or RELEASE"))
		return
	}

	m.auditEvent(nowTick, s.ID, KindBarter, "resolve", b.ID, map[string]any{"outcome": op.Outcome, "balance": m.ledger.Balance()})
	s.AddEvent(okResult(nowTick, op.ID, "barter_id", b.ID, "status", string(b.Status), "balance", m.ledger.Balance()))
}
