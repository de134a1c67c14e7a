package market

import (
	"testing"

	"freshvault/internal/protocol"
)

func TestAddCropDefaults(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")

	c := m.crops[id]
	if c == nil {
		t.Fatalf("crop not stored")
	}
	if c.VisibilityScore != 50 {
		t.Fatalf("visibility = %d, want 50", c.VisibilityScore)
	}
	if c.QAStatus != QANone {
		t.Fatalf("qa status = %s", c.QAStatus)
	}
	if c.Monitoring.RiskLevel != RiskLow || c.Monitoring.Temperature != 22.0 {
		t.Fatalf("monitoring defaults = %+v", c.Monitoring)
	}
	if len(c.PriceHistory) != 1 || c.PriceHistory[0].Price != 24.5 {
		t.Fatalf("price history not seeded: %+v", c.PriceHistory)
	}
}

func TestAddCropValidation(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpAddCrop}), protocol.ErrBadRequest)
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "2", Op: OpAddCrop,
		Crop: &protocol.CropSpec{Name: "Okra", Quantity: -5, PricePerKg: 10}}), protocol.ErrBadRequest)
}

func TestUpdateCropPatchSemantics(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")

	qty := 900
	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpUpdateCrop, CropID: id,
		Patch: &protocol.CropPatch{Quantity: &qty, Variety: "Roma"}}))

	c := m.crops[id]
	if c.Quantity != 900 || c.Variety != "Roma" {
		t.Fatalf("patch not applied: %+v", c)
	}
	if c.Name != "Tomato" || c.PricePerKg != 24.5 {
		t.Fatalf("untouched fields must survive: %+v", c)
	}
	if len(c.PriceHistory) != 1 {
		t.Fatalf("unchanged price must not grow history")
	}

	price := 30.0
	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "2", Op: OpUpdateCrop, CropID: id,
		Patch: &protocol.CropPatch{PricePerKg: &price}}))
	if len(c.PriceHistory) != 2 || c.PriceHistory[1].Price != 30.0 {
		t.Fatalf("price change must append history: %+v", c.PriceHistory)
	}

	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "3", Op: OpUpdateCrop, CropID: "C999999",
		Patch: &protocol.CropPatch{}}), protocol.ErrNotFound)
}

func TestDeleteCrop(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")
	mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpDeleteCrop, CropID: id}))
	if m.crops[id] != nil {
		t.Fatalf("crop survived delete")
	}
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "2", Op: OpDeleteCrop, CropID: id}), protocol.ErrNotFound)
}

func TestRequestQACheck(t *testing.T) {
	m := newTestMarket()
	s := join(m, "ravi", RoleFarmer)
	id := addCrop(t, m, s, "Tomato")

	ev := mustOK(t, apply(t, m, s, protocol.OpMsg{ID: "1", Op: OpRequestQACheck, CropID: id}))
	taskID, _ := ev["task_id"].(string)
	if taskID == "" {
		t.Fatalf("no task spawned")
	}
	if m.crops[id].QAStatus != QARequested {
		t.Fatalf("crop qa status = %s", m.crops[id].QAStatus)
	}

	task := m.tasks[taskID]
	if task.Type != TaskQACheck || task.QA == nil {
		t.Fatalf("wrong task: %+v", task)
	}
	if len(task.QA.Checklist) != 5 {
		t.Fatalf("checklist items = %d", len(task.QA.Checklist))
	}
	if task.QA.CropID != id {
		t.Fatalf("checklist not bound to crop")
	}

	// Re-request while pending is a conflict.
	mustReject(t, apply(t, m, s, protocol.OpMsg{ID: "2", Op: OpRequestQACheck, CropID: id}), protocol.ErrConflict)

	// The service desk hears about it.
	if len(m.notifications[RoleService]) == 0 || m.notifications[RoleService][0].Title != "QA Check Requested" {
		t.Fatalf("service notification missing: %+v", m.notifications[RoleService])
	}
}
