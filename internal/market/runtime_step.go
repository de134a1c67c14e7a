package market

import (
	"encoding/json"
	"time"

	"freshvault/internal/protocol"
)

// stepInternal is the single-writer tick: leaves, joins, ops in
// receive order, then the scheduled systems, then event flush, digest
// and export. Everything that mutates market state happens here.
func (m *Market) stepInternal(joins []JoinRequest, leaves []string, ops []OpEnvelope) {
	stepStart := time.Now()
	nowTick := m.tick.Load()

	for _, id := range leaves {
		if _, ok := m.sessions[id]; ok {
			m.handleLeave(id)
		}
	}
	for _, req := range joins {
		resp := m.joinSession(req.Name, req.Role, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	// Ops apply in server receive order (the inbox order).
	for _, env := range ops {
		s := m.sessions[env.SessionID]
		if s == nil {
			continue
		}
		m.applyOp(s, env.Op, nowTick)
	}

	// Systems: deliveries -> replies -> promotion sweep.
	m.systemDeliveries(nowTick)
	m.systemReplies(nowTick)
	m.systemPromotions(nowTick)

	// Flush per-session events as one EVENT frame each.
	for _, s := range m.sessions {
		if len(s.Events) == 0 || s.Out == nil {
			continue
		}
		b, err := json.Marshal(protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			SessionID:       s.ID,
			Events:          s.Events,
		})
		if err == nil {
			sendLatest(s.Out, b)
		}
		s.Events = s.Events[:0]
	}

	digest := m.stateDigest(nowTick)

	// Periodic STATE frames and read-model export.
	if nowTick != 0 && nowTick%uint64(m.cfg.StateEveryTicks) == 0 {
		for _, s := range m.sessions {
			if s.Out == nil {
				continue
			}
			b, err := json.Marshal(m.buildState(s, nowTick, digest))
			if err == nil {
				sendLatest(s.Out, b)
			}
		}
		if m.indexSink != nil {
			batch := m.buildIndexBatch(nowTick, digest)
			select {
			case m.indexSink <- batch:
			default:
				// Drop the export if the indexer is backed up.
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	stepDuration.Observe(stepMS / 1000.0)
	m.tick.Add(1)

	m.metrics.Store(Metrics{
		Tick:            nowTick,
		Sessions:        len(m.sessions),
		Crops:           len(m.crops),
		Offers:          len(m.offers),
		StorageRequests: len(m.storageRequests),
		DeployedUnits:   len(m.units),
		BarterListings:  len(m.listings),
		BarterRequests:  len(m.barters),
		Tasks:           len(m.tasks),
		PendingReplies:  len(m.replies),
		Balance:         m.ledger.Balance(),
		StepMS:          stepMS,
		Digest:          digest,
	})
}

func (m *Market) buildState(s *Session, nowTick uint64, digest string) protocol.StateMsg {
	return protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		SessionID:       s.ID,

		Credits:             m.ledger.Balance(),
		Crops:               len(m.crops),
		Offers:              len(m.offers),
		StorageRequests:     len(m.storageRequests),
		DeployedUnits:       len(m.units),
		BarterListings:      len(m.listings),
		BarterRequests:      len(m.barters),
		Tasks:               len(m.tasks),
		UnreadNotifications: m.unreadCount(s.Role),
		Digest:              digest,
	}
}
