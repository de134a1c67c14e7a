package market

import "fmt"

// sweepPromotions deactivates every promotion whose window has passed,
// mirroring the is_promoted flag. Safe to run any number of times: a
// promotion only expires once. Returns how many expired this call.
func (m *Market) sweepPromotions(nowTick uint64) int {
	now := m.now()
	expired := 0
	for _, c := range m.crops {
		p := c.Promoted
		if p == nil || !p.Active {
			continue
		}
		if !p.EndDate.Before(now) {
			continue
		}
		p.Active = false
		c.IsPromoted = false
		expired++
		m.notify(kindCrop, "promotion_expired",
			fmt.Sprintf("Promotion for %s has ended.", c.Name), nowTick)
		m.auditEvent(nowTick, "system", kindCrop, "promotion_expired", c.ID, map[string]any{"plan": string(p.Plan)})
	}
	return expired
}

// systemPromotions runs the sweep on its tick cadence.
func (m *Market) systemPromotions(nowTick uint64) {
	if nowTick == 0 || nowTick%uint64(m.cfg.PromotionSweepEveryTicks) != 0 {
		return
	}
	m.sweepPromotions(nowTick)
}
