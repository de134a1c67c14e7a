package market

import (
	"testing"

	"freshvault/internal/protocol"
)

func newTestMarket() *Market {
	return New(Config{}, nil)
}

func join(m *Market, name string, role Role) *Session {
	resp := m.joinSession(name, role, nil)
	return m.sessions[resp.Welcome.SessionID]
}

// apply runs one op at the current tick and returns its ACTION_RESULT.
func apply(t *testing.T, m *Market, s *Session, op protocol.OpMsg) protocol.Event {
	t.Helper()
	before := len(s.Events)
	m.applyOp(s, op, m.tick.Load())
	for _, ev := range s.Events[before:] {
		if ev["type"] == "ACTION_RESULT" {
			return ev
		}
	}
	t.Fatalf("op %s produced no ACTION_RESULT", op.Op)
	return nil
}

func mustOK(t *testing.T, ev protocol.Event) protocol.Event {
	t.Helper()
	if ok, _ := ev["ok"].(bool); !ok {
		t.Fatalf("expected ok, got code=%v message=%v", ev["code"], ev["message"])
	}
	return ev
}

func mustReject(t *testing.T, ev protocol.Event, code string) {
	t.Helper()
	if ok, _ := ev["ok"].(bool); ok {
		t.Fatalf("expected rejection %s, got ok", code)
	}
	if got, _ := ev["code"].(string); got != code {
		t.Fatalf("expected code %s, got %v (%v)", code, ev["code"], ev["message"])
	}
}

func addCrop(t *testing.T, m *Market, s *Session, name string) string {
	t.Helper()
	ev := mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "ref", Op: OpAddCrop, Crop: &protocol.CropSpec{
		Name:       name,
		Quantity:   500,
		PricePerKg: 24.5,
		Location:   "Hisar",
	}}))
	id, _ := ev["crop_id"].(string)
	if id == "" {
		t.Fatalf("no crop_id in result: %v", ev)
	}
	return id
}

func TestJoinWelcome(t *testing.T) {
	m := newTestMarket()
	resp := m.joinSession("", RoleFarmer, nil)
	w := resp.Welcome

	if w.Type != protocol.TypeWelcome || w.ProtocolVersion != protocol.Version {
		t.Fatalf("bad welcome envelope: %+v", w)
	}
	if w.SessionID == "" {
		t.Fatalf("no session id")
	}
	if w.Role != string(RoleFarmer) {
		t.Fatalf("role = %s", w.Role)
	}
	if w.EngineParams.TickRateHz != 5 || w.EngineParams.StartingCredits != 1250 {
		t.Fatalf("engine params not defaulted: %+v", w.EngineParams)
	}
	if w.Catalogs.StorageUnitsDigest == "" || w.Catalogs.PromotionPlansDigest == "" || w.Catalogs.BarterServicesDigest == "" {
		t.Fatalf("missing catalog digests: %+v", w.Catalogs)
	}
	if s := m.sessions[w.SessionID]; s == nil || s.Name != "guest" {
		t.Fatalf("anonymous join should register as guest")
	}
}

func TestUnknownOpRejected(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "x", Op: "TELEPORT"}), protocol.ErrBadRequest)
}

func TestStepOnceAdvancesTick(t *testing.T) {
	m := newTestMarket()
	tick0, d0 := m.StepOnce(nil, nil, nil)
	tick1, d1 := m.StepOnce(nil, nil, nil)
	if tick0 != 0 || tick1 != 1 {
		t.Fatalf("ticks = %d, %d", tick0, tick1)
	}
	if d0 == "" || d1 == "" || d0 == d1 {
		t.Fatalf("digest should change every tick (chained): %q vs %q", d0, d1)
	}
}

// Two markets fed the same script tick for tick must agree digest for
// digest.
func TestStepDeterminism(t *testing.T) {
	script := func(m *Market) []string {
		respA := make(chan JoinResponse, 1)
		respB := make(chan JoinResponse, 1)
		m.StepOnce([]JoinRequest{
			{Name: "ravi", Role: RoleFarmer, Resp: respA},
			{Name: "meera", Role: RoleRetailer, Resp: respB},
		}, nil, nil)
		farmer := (<-respA).Welcome.SessionID
		retailer := (<-respB).Welcome.SessionID

		var digests []string
		_, d := m.StepOnce(nil, nil, []OpEnvelope{
			{SessionID: farmer, Op: protocol.OpMsg{ID: "1", Op: OpAddCrop, Crop: &protocol.CropSpec{Name: "Tomato", Quantity: 400, PricePerKg: 18}}},
		})
		digests = append(digests, d)
		_, d = m.StepOnce(nil, nil, []OpEnvelope{
			{SessionID: retailer, Op: protocol.OpMsg{ID: "2", Op: OpAddOffer, Offer: &protocol.OfferSpec{CropID: "C000001", PricePerKg: 16, Quantity: 200}}},
		})
		digests = append(digests, d)
		for i := 0; i < 10; i++ {
			_, d = m.StepOnce(nil, nil, nil)
			digests = append(digests, d)
		}
		return digests
	}

	a := script(newTestMarket())
	b := script(newTestMarket())
	if len(a) != len(b) {
		t.Fatalf("digest counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at step %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	addCrop(t, m, s, "Okra")
	m.StepOnce(nil, nil, nil)

	mm := m.Metrics()
	if mm.Crops != 1 || mm.Sessions != 1 {
		t.Fatalf("metrics = %+v", mm)
	}
	if mm.Balance != 1250 {
		t.Fatalf("balance = %d", mm.Balance)
	}
	if mm.Digest == "" {
		t.Fatalf("digest not exported")
	}

	var nilMarket *Market
	if got := nilMarket.Metrics(); got != (Metrics{}) {
		t.Fatalf("nil market metrics = %+v", got)
	}
}

func TestLeaveRemovesSession(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	m.StepOnce(nil, []string{s.ID}, nil)
	if m.sessions[s.ID] != nil {
		t.Fatalf("session survived leave")
	}
}
