package market

import "freshvault/internal/protocol"

// Session is one connected client. Events accumulate during a tick and
// are flushed as a single EVENT frame at the tick boundary.
type Session struct {
	ID   string
	Name string
	Role Role

	Out    chan []byte
	Events []protocol.Event
}

func (s *Session) AddEvent(ev protocol.Event) {
	if s == nil {
		return
	}
	s.Events = append(s.Events, ev)
}

type JoinRequest struct {
	Name string
	Role Role
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// OpEnvelope carries one op from a session into the loop.
type OpEnvelope struct {
	SessionID string
	Op        protocol.OpMsg
}

func (m *Market) joinSession(name string, role Role, out chan []byte) JoinResponse {
	if name == "" {
		name = "guest"
	}
	s := &Session{
		ID:   m.newSessionID(),
		Name: name,
		Role: role,
		Out:  out,
	}
	m.sessions[s.ID] = s
	return JoinResponse{Welcome: m.buildWelcome(s)}
}

func (m *Market) buildWelcome(s *Session) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.ID,
		Role:            string(s.Role),
		MarketID:        m.cfg.ID,
		EngineParams: protocol.EngineParams{
			TickRateHz:               m.cfg.TickRateHz,
			DeliveryTickEveryTicks:   m.cfg.DeliveryTickEveryTicks,
			PromotionSweepEveryTicks: m.cfg.PromotionSweepEveryTicks,
			ReplyDelayTicks:          m.cfg.ReplyDelayTicks,
			StartingCredits:          m.cfg.StartingCredits,
		},
		Catalogs: protocol.CatalogDigests{
			StorageUnitsDigest:   m.cats.StorageUnits.Digest,
			PromotionPlansDigest: m.cats.Plans.Digest,
			BarterServicesDigest: m.cats.Services.Digest,
		},
	}
}

func (m *Market) handleLeave(sessionID string) {
	delete(m.sessions, sessionID)
}
