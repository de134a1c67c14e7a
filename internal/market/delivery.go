package market

import (
	"fmt"
	"hash/fnv"
	"math"

	"freshvault/internal/protocol"
)

type DeliveryStatus string

const (
	DeliveryAccepted  DeliveryStatus = "ACCEPTED"
	DeliveryEnRoute   DeliveryStatus = "EN_ROUTE"
	DeliveryArriving  DeliveryStatus = "ARRIVING"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
)

type LatLng struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
}

// DeliveryTracking is the simulated vehicle position. Progress runs
// 0..100 over the whole route; Current is interpolated between the
// route waypoints.
type DeliveryTracking struct {
	Active      bool           `json:"active"`
	Origin      LatLng         `json:"origin"`
	Destination LatLng         `json:"destination"`
	Route       []LatLng       `json:"route"`
	Progress    float64        `json:"progress"`
	Current     LatLng         `json:"current"`
	Status      DeliveryStatus `json:"status"`
}

// routePosition maps progress (0..100) onto the polyline. With N
// segments, segmentFloat = progress*N/100; the integer part picks the
// segment and the fraction interpolates within it, component-wise.
func routePosition(route []LatLng, progress float64) LatLng {
	if len(route) == 0 {
		return LatLng{}
	}
	if len(route) == 1 {
		return route[0]
	}
	n := len(route) - 1
	segFloat := progress * float64(n) / 100.0
	seg := int(math.Floor(segFloat))
	if seg > n-1 {
		seg = n - 1
	}
	frac := segFloat - float64(seg)
	a, b := route[seg], route[seg+1]
	return LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*frac,
		Lng: a.Lng + (b.Lng-a.Lng)*frac,
	}
}

func deliveryStatusFor(progress float64) DeliveryStatus {
	switch {
	case progress >= 100:
		return DeliveryDelivered
	case progress >= 90:
		return DeliveryArriving
	default:
		return DeliveryEnRoute
	}
}

// coordFor synthesizes a stable pseudo-coordinate from a place name.
// There is no real geodesy here; positions only need to be
// deterministic and distinct.
func coordFor(name string) LatLng {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum64()
	lat := 28.40 + float64(sum%4000)/10000.0
	lng := 76.90 + float64((sum/4000)%5000)/10000.0
	return LatLng{Lat: lat, Lng: lng, Name: name}
}

// createDeliveryTask spawns the delivery work item when an offer moves
// to DISPATCH.
func (m *Market) createDeliveryTask(o *Offer, nowTick uint64) *ServiceTask {
	origin := "Farm Gate"
	if c := m.crops[o.CropID]; c != nil && c.Location != "" {
		origin = c.Location
	}
	dest := o.Retailer + " Depot"

	t := &ServiceTask{
		ID:          m.newTaskID(),
		Type:        TaskDelivery,
		Title:       fmt.Sprintf("Deliver %d kg %s", o.Quantity, o.CropName),
		Description: fmt.Sprintf("Offer %s: %s from %s to %s.", o.ID, o.CropName, origin, dest),
		Requester:   o.Retailer,
		Location:    origin,
		Priority:    PriorityMedium,
		Status:      TaskAvailable,
		Earnings:    50,
		OfferID:     o.ID,
		Delivery: &DeliveryDetail{
			Steps: []DeliveryStep{
				{Name: "Pick up from farm"},
				{Name: "Quality check at gate"},
				{Name: "Load and secure"},
				{Name: "Drop off at destination"},
			},
			Tracking: &DeliveryTracking{
				Origin:      coordFor(origin),
				Destination: coordFor(dest),
				Route:       []LatLng{coordFor(origin), coordFor(dest)},
				Current:     coordFor(origin),
				Status:      DeliveryAccepted,
			},
		},
		CreatedTick: nowTick,
	}
	m.tasks[t.ID] = t
	return t
}

func handleStartDelivery(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t, tr, errCode, errMsg := m.deliveryTarget(op.TaskID)
	if errCode != "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, errCode, errMsg))
		return
	}
	if t.Status == TaskAvailable {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrConflict, "task not accepted"))
		return
	}

	// Starting (or restarting) resets the run.
	tr.Active = true
	tr.Progress = 0
	tr.Current = routePosition(tr.Route, 0)
	tr.Status = DeliveryEnRoute
	if t.Status == TaskAccepted {
		t.Status = TaskInProgress
	}

	m.notify(kindDelivery, "started", fmt.Sprintf("%q is on the road.", t.Title), nowTick)
	m.auditEvent(nowTick, s.ID, kindDelivery, "start", t.ID, nil)
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "progress", tr.Progress))
}

func handleUpdateDeliveryProgress(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t, tr, errCode, errMsg := m.deliveryTarget(op.TaskID)
	if errCode != "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, errCode, errMsg))
		return
	}
	if op.Progress == nil {
		s.AddEvent(actionResult(nowTick, op.ID, false, protocol.ErrBadRequest, "missing progress"))
		return
	}
	m.applyDeliveryProgress(t, tr, *op.Progress, nowTick)
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID,
		"progress", tr.Progress, "delivery_status", string(tr.Status)))
}

// handleStopDelivery pauses the vehicle in place; progress keeps its
// value and tick advancement stops.
func handleStopDelivery(m *Market, s *Session, op protocol.OpMsg, nowTick uint64) {
	t, tr, errCode, errMsg := m.deliveryTarget(op.TaskID)
	if errCode != "" {
		s.AddEvent(actionResult(nowTick, op.ID, false, errCode, errMsg))
		return
	}
	tr.Active = false
	m.auditEvent(nowTick, s.ID, kindDelivery, "stop", t.ID, map[string]any{"progress": tr.Progress})
	s.AddEvent(okResult(nowTick, op.ID, "task_id", t.ID, "progress", tr.Progress))
}

func (m *Market) deliveryTarget(taskID string) (*ServiceTask, *DeliveryTracking, string, string) {
	t := m.tasks[taskID]
	if t == nil {
		return nil, nil, protocol.ErrNotFound, "no such task: " + taskID
	}
	if t.Type != TaskDelivery || t.Delivery == nil || t.Delivery.Tracking == nil {
		return nil, nil, protocol.ErrInvalidTarget, "not a delivery task"
	}
	if t.Status.Terminal() {
		return nil, nil, protocol.ErrClosed, "task is closed"
	}
	return t, t.Delivery.Tracking, "", ""
}

// applyDeliveryProgress clamps, repositions, rederives status, and on
// reaching 100 completes the task.
func (m *Market) applyDeliveryProgress(t *ServiceTask, tr *DeliveryTracking, progress float64, nowTick uint64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	tr.Progress = progress
	tr.Current = routePosition(tr.Route, progress)
	tr.Status = deliveryStatusFor(progress)

	if progress >= 100 {
		tr.Active = false
		if !t.Status.Terminal() {
			t.Status = TaskCompleted
			m.cancelReply(t.ID)
			m.notify(kindDelivery, "delivered", fmt.Sprintf("%q has arrived.", t.Title), nowTick)
			m.notify(kindDelivery, "arrived", fmt.Sprintf("%q was delivered.", t.Title), nowTick)
			m.auditEvent(nowTick, "system", kindDelivery, "delivered", t.ID, nil)
		}
	}
}

// systemDeliveries advances every active tracking by one progress unit
// on the delivery cadence.
func (m *Market) systemDeliveries(nowTick uint64) {
	if nowTick == 0 || nowTick%uint64(m.cfg.DeliveryTickEveryTicks) != 0 {
		return
	}
	for _, t := range m.tasks {
		if t.Type != TaskDelivery || t.Delivery == nil || t.Delivery.Tracking == nil {
			continue
		}
		tr := t.Delivery.Tracking
		if !tr.Active || t.Status.Terminal() {
			continue
		}
		m.applyDeliveryProgress(t, tr, tr.Progress+1, nowTick)
	}
}
