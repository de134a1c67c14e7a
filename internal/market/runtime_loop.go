package market

import (
	"context"
	"time"
)

func (m *Market) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(m.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingOps []OpEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case req := <-m.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-m.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-m.inbox:
			pendingOps = append(pendingOps, env)
		case <-ticker.C:
			m.stepInternal(pendingJoins, pendingLeaves, pendingOps)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingOps = pendingOps[:0]
		}
	}
}

func (m *Market) Stop() { close(m.stop) }

// StepOnce advances the market one tick with the same ordering the
// server uses. Intended for deterministic tests.
func (m *Market) StepOnce(joins []JoinRequest, leaves []string, ops []OpEnvelope) (tick uint64, digest string) {
	tick = m.tick.Load()
	m.stepInternal(joins, leaves, ops)
	return tick, m.prevDigest
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
