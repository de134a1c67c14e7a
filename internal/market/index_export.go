package market

import "freshvault/internal/index"

// buildIndexBatch projects the aggregate into read-model rows. Row
// order is deterministic (sorted ids) so exports are reproducible.
func (m *Market) buildIndexBatch(nowTick uint64, digest string) index.Batch {
	b := index.Batch{
		Tick:    nowTick,
		Digest:  digest,
		Balance: m.ledger.Balance(),
	}

	for _, id := range sortedKeys(m.crops) {
		c := m.crops[id]
		b.Entities = append(b.Entities, index.EntityRow{Kind: string(kindCrop), ID: c.ID, Status: string(c.QAStatus), Tick: nowTick})
	}
	for _, id := range sortedKeys(m.offers) {
		o := m.offers[id]
		b.Entities = append(b.Entities, index.EntityRow{Kind: string(KindOffer), ID: o.ID, Status: string(o.Status), Tick: nowTick})
	}
	for _, id := range sortedKeys(m.storageRequests) {
		r := m.storageRequests[id]
		b.Entities = append(b.Entities, index.EntityRow{Kind: string(KindStorage), ID: r.ID, Status: string(r.Status), Tick: nowTick})
	}
	for _, id := range sortedKeys(m.units) {
		u := m.units[id]
		b.Entities = append(b.Entities, index.EntityRow{Kind: string(kindRental), ID: u.ID, Status: u.Status, Tick: nowTick})
	}
	for _, id := range sortedKeys(m.barters) {
		br := m.barters[id]
		b.Entities = append(b.Entities, index.EntityRow{Kind: string(KindBarter), ID: br.ID, Status: string(br.Status), Tick: nowTick})
	}
	for _, id := range sortedKeys(m.tasks) {
		t := m.tasks[id]
		b.Entities = append(b.Entities, index.EntityRow{Kind: string(KindTask), ID: t.ID, Status: string(t.Status), Tick: nowTick})
	}

	for _, role := range allRoles {
		for _, n := range m.notifications[role] {
			b.Notifications = append(b.Notifications, index.NotificationRow{
				ID:      n.ID,
				Role:    string(n.Role),
				Level:   string(n.Type),
				Title:   n.Title,
				Message: n.Message,
				Read:    n.Read,
				Tick:    n.Tick,
			})
		}
	}
	return b
}
