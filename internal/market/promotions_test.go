package market

import (
	"testing"
	"time"

	"freshvault/internal/protocol"
)

func TestPromoteCropDebitsAndSetsWindow(t *testing.T) {
	m := newTestMarket()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t0 }
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")

	ev := mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpPromoteCrop, CropID: id, Plan: "WEEKLY"}))
	if bal, _ := ev["balance"].(int); bal != 1200 {
		t.Fatalf("balance = %v, want 1200", ev["balance"])
	}

	c := m.crops[id]
	if !c.IsPromoted || c.Promoted == nil || !c.Promoted.Active {
		t.Fatalf("promotion not active: %+v", c.Promoted)
	}
	if c.Promoted.Plan != "WEEKLY" {
		t.Fatalf("plan = %s", c.Promoted.Plan)
	}
	if want := t0.AddDate(0, 0, 7); !c.Promoted.EndDate.Equal(want) {
		t.Fatalf("end date = %v, want %v", c.Promoted.EndDate, want)
	}
	if c.VisibilityScore != 75 {
		t.Fatalf("visibility = %d, want 50+25", c.VisibilityScore)
	}
}

func TestPromoteCropUnknownPlan(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpPromoteCrop, CropID: id, Plan: "DAILY"}), protocol.ErrBadRequest)
	if m.ledger.Balance() != 1250 {
		t.Fatalf("rejection must not debit")
	}
}

func TestPromoteCropInsufficientCredits(t *testing.T) {
	m := New(Config{StartingCredits: 40}, nil)
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpPromoteCrop, CropID: id, Plan: "WEEKLY"}), protocol.ErrNoCredit)
	if m.ledger.Balance() != 40 {
		t.Fatalf("balance moved on rejection: %d", m.ledger.Balance())
	}
	if m.crops[id].IsPromoted {
		t.Fatalf("crop promoted despite rejection")
	}
}

func TestPromotionRenewalOverwrites(t *testing.T) {
	m := newTestMarket()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t0 }
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")

	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpPromoteCrop, CropID: id, Plan: "WEEKLY"}))
	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "2", Op: OpPromoteCrop, CropID: id, Plan: "MONTHLY"}))

	c := m.crops[id]
	if c.Promoted.Plan != "MONTHLY" {
		t.Fatalf("renewal must replace the plan: %s", c.Promoted.Plan)
	}
	if want := t0.AddDate(0, 0, 30); !c.Promoted.EndDate.Equal(want) {
		t.Fatalf("windows must not stack: end = %v, want %v", c.Promoted.EndDate, want)
	}
	if c.VisibilityScore != 100 {
		t.Fatalf("visibility must cap at 100, got %d", c.VisibilityScore)
	}
	if m.ledger.Balance() != 1250-50-150 {
		t.Fatalf("both plans must debit: %d", m.ledger.Balance())
	}
}

func TestPromotionSweepExpires(t *testing.T) {
	m := newTestMarket()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t0 }
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")
	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpPromoteCrop, CropID: id, Plan: "WEEKLY"}))

	// Day 6: still live.
	m.now = func() time.Time { return t0.AddDate(0, 0, 6) }
	if n := m.sweepPromotions(10); n != 0 {
		t.Fatalf("sweep expired %d promotions before the window closed", n)
	}

	// Day 8: expired.
	m.now = func() time.Time { return t0.AddDate(0, 0, 8) }
	if n := m.sweepPromotions(20); n != 1 {
		t.Fatalf("sweep expired %d, want 1", n)
	}
	c := m.crops[id]
	if c.IsPromoted || c.Promoted.Active {
		t.Fatalf("flags not mirrored after expiry: %+v", c.Promoted)
	}
	if m.notifications[RoleFarmer][0].Title != "Promotion Expired" {
		t.Fatalf("expiry notification missing: %+v", m.notifications[RoleFarmer])
	}

	// Idempotent: a promotion only expires once.
	if n := m.sweepPromotions(30); n != 0 {
		t.Fatalf("second sweep expired %d, want 0", n)
	}
}

func TestCheckPromotionsOp(t *testing.T) {
	m := newTestMarket()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t0 }
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")
	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpPromoteCrop, CropID: id, Plan: "WEEKLY"}))

	m.now = func() time.Time { return t0.AddDate(0, 0, 9) }
	ev := mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "2", Op: OpCheckPromotions}))
	if expired, _ := ev["expired"].(int); expired != 1 {
		t.Fatalf("expired = %v, want 1", ev["expired"])
	}
}
