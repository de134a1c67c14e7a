package market

import (
	"fmt"

	"freshvault/internal/protocol"
)

func handleAddOffer(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	if op.Offer == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing offer"))
		return
	}
	spec := op.Offer
	c := m.crops[spec.CropID]
	if c == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrInvalidTarget, "no such crop: "+spec.CropID))
		return
	}
	if spec.Quantity <= 0 || spec.PricePerKg <= 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "quantity and price must be positive"))
		return
	}

	o := &Offer{
		ID:         m.newOfferID(),
		CropID:     c.ID,
		CropName:   c.Name,
		Retailer:   s.Name,
		Status:     OfferSent,
		PricePerKg: spec.PricePerKg,
		Quantity:   spec.Quantity,
		Amount:     spec.PricePerKg * float64(spec.Quantity),
		Notes:      spec.Notes,
		Timeline: []TimelineEntry{
			{Status: string(OfferSent), Tick: nowTick},
		},
		CreatedTick: nowTick,
	}
	m.offers[o.ID] = o
	c.Inquiries++

	m.notify(KindOffer, "received",
		fmt.Sprintf("%s offered %.2f/kg for %d kg of %s.", o.Retailer, o.PricePerKg, o.Quantity, c.Name), nowTick)
	m.auditEvent(nowTick, s.ID, KindOffer, "add", o.ID, map[string]any{"crop_id": c.ID, "amount": o.Amount})
	s.AddEvent(okResult(nowTick, op.ID, "offer_id", o.ID))
}

func handleWithdrawOffer(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	o := m.offers[op.OfferID]
	if o == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such offer: "+op.OfferID))
		return
	}
	if o.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "offer is closed"))
		return
	}
	if !canTransition(KindOffer, string(o.Status), string(OfferWithdrawn)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("cannot withdraw from %s", o.Status)))
		return
	}
	o.Status = OfferWithdrawn
	o.Timeline = append(o.Timeline, TimelineEntry{Status: string(OfferWithdrawn), Tick: nowTick})

	m.auditEvent(nowTick, s.ID, KindOffer, "withdraw", o.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "offer_id", o.ID, "status", string(o.Status)))
}

func handleUpdateOfferStatus(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	o := m.offers[op.OfferID]
	if o == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such offer: "+op.OfferID))
		return
	}
	if o.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "offer is closed"))
		return
	}
	to := OfferStatus(op.Status)
	if !canTransition(KindOffer, string(o.Status), string(to)) {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict,
			fmt.Sprintf("illegal transition %s -> %s", o.Status, to)))
		return
	}
	from := o.Status
	o.Status = to
	o.Timeline = append(o.Timeline, TimelineEntry{Status: string(to), Tick: nowTick})

	switch to {
	case OfferAgreement, OfferDispatch, OfferDelivery, OfferPayment, OfferCompleted:
		m.notify(KindOffer, "status",
			fmt.Sprintf("Offer %s for %s moved to %s.", o.ID, o.CropName, to), nowTick)
	}
	if to == OfferDispatch {
		m.createDeliveryTask(o, nowTick)
	}

	m.auditEvent(nowTick, s.ID, KindOffer, "status", o.ID, map[string]any{"from": string(from), "to": string(to)})
	s.AddEvent(okResult(nowTick, op.ID, "offer_id", o.ID, "status", string(to)))
}

// handleAddOfferMessage appends a chat message, applying an optional
// counter price atomically with it.
func handleAddOfferMessage(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	o := m.offers[op.OfferID]
	if o == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrNotFound, "no such offer: "+op.OfferID))
		return
	}
	if o.Status.Terminal() {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrClosed, "offer is closed"))
		return
	}
	if op.Text == "" && op.CounterPrice == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "empty message"))
		return
	}
	if op.CounterPrice != nil && *op.CounterPrice <= 0 {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "counter price must be positive"))
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
	o.History = append(o.History, msg)

	if op.CounterPrice != nil {
		o.PricePerKg = *op.CounterPrice
		o.Amount = o.PricePerKg * float64(o.Quantity)
		if o.Status == OfferSent {
			o.Status = OfferNegotiation
			o.Timeline = append(o.Timeline, TimelineEntry{Status: string(OfferNegotiation), Tick: nowTick})
		}
	}

	action := "message_retailer"
	if s.Role == RoleFarmer {
		action = "message_farmer"
	}
	m.notify(KindOffer, action, fmt.Sprintf("New message on offer %s (%s).", o.ID, o.CropName), nowTick)

	m.auditEvent(nowTick, s.ID, KindOffer, "message", o.ID, map[string]any{"counter": op.CounterPrice != nil})
	s.AddEvent(okResult(nowTick, op.ID, "offer_id", o.ID, "message_id", msg.ID, "status", string(o.Status)))
}
