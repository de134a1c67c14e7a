package market

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"lukechampine.com/blake3"
)

// stateDigest hashes a canonical projection of the aggregate (sorted
// ids + statuses + balance), chained onto the previous tick's digest
// so divergence at any tick poisons every later digest.
func (m *Market) stateDigest(nowTick uint64) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tick=%d prev=%s balance=%d\n", nowTick, m.prevDigest, m.ledger.Balance())

	for _, id := range sortedKeys(m.crops) {
		c := m.crops[id]
		fmt.Fprintf(&buf, "CROP|%s|%s|%t|%d|%.4f\n", c.ID, c.QAStatus, c.IsPromoted, c.Quantity, c.PricePerKg)
	}
	for _, id := range sortedKeys(m.offers) {
		o := m.offers[id]
		fmt.Fprintf(&buf, "OFFER|%s|%s|%.4f\n", o.ID, o.Status, o.Amount)
	}
	for _, id := range sortedKeys(m.storageRequests) {
		r := m.storageRequests[id]
		fmt.Fprintf(&buf, "STORAGE|%s|%s\n", r.ID, r.Status)
	}
	for _, id := range sortedKeys(m.units) {
		u := m.units[id]
		fmt.Fprintf(&buf, "UNIT|%s|%s|%d\n", u.ID, u.Status, u.RemainingDays)
	}
	for _, id := range sortedKeys(m.barters) {
		b := m.barters[id]
		fmt.Fprintf(&buf, "BARTER|%s|%s|%d\n", b.ID, b.Status, b.Rating)
	}
	for _, id := range sortedKeys(m.tasks) {
		t := m.tasks[id]
		fmt.Fprintf(&buf, "TASK|%s|%s|%s\n", t.ID, t.Type, t.Status)
		if t.Delivery != nil && t.Delivery.Tracking != nil {
			tr := t.Delivery.Tracking
			fmt.Fprintf(&buf, "TRACK|%s|%t|%.2f|%s\n", t.ID, tr.Active, tr.Progress, tr.Status)
		}
	}

	sum := blake3.Sum256(buf.Bytes())
	m.prevDigest = hex.EncodeToString(sum[:])
	return m.prevDigest
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
