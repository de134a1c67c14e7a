package market

// RentalStatus is the storage request pipeline. COMPLETED and
// CANCELLED are terminal; CANCELLED is only reachable from REQUESTED.
type RentalStatus string

const (
	RentalRequested  RentalStatus = "REQUESTED"
	RentalAssigned   RentalStatus = "ASSIGNED"
	RentalDispatched RentalStatus = "DISPATCHED"
	RentalInstalled  RentalStatus = "INSTALLED"
	RentalActive     RentalStatus = "ACTIVE"
	RentalCompleted  RentalStatus = "COMPLETED"
	RentalCancelled  RentalStatus = "CANCELLED"
)

func (s RentalStatus) Terminal() bool {
	return s == RentalCompleted || s == RentalCancelled
}

type StorageRequest struct {
	ID           string       `json:"id"`
	UnitType     string       `json:"unit_type"`
	Crop         string       `json:"crop,omitempty"`
	Quantity     int          `json:"quantity,omitempty"`
	DurationDays int          `json:"duration_days"`
	Location     string       `json:"location,omitempty"`
	Cost         int          `json:"cost"`
	Status       RentalStatus `json:"status"`

	ServiceMember string `json:"service_member,omitempty"`
	ETA           string `json:"eta,omitempty"`
	UnitID        string `json:"unit_id,omitempty"` // set once the unit goes ACTIVE

	Timeline []TimelineEntry `json:"timeline,omitempty"`

	RequestedTick uint64 `json:"requested_tick"`
}

// Reading pairs a live sensor value with its target.
type Reading struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

type MaintenanceTicket struct {
	Issue      string `json:"issue"`
	Priority   string `json:"priority,omitempty"`
	OpenedTick uint64 `json:"opened_tick"`
	Resolved   bool   `json:"resolved"`
	TaskID     string `json:"task_id,omitempty"`
}

// DeployedUnit is a storage unit on site, created when its rental
// request reaches ACTIVE.
type DeployedUnit struct {
	ID       string `json:"id"`
	UnitType string `json:"unit_type"`
	Name     string `json:"name"`
	Crop     string `json:"crop,omitempty"`
	Location string `json:"location,omitempty"`

	Status        string `json:"status"` // "ACTIVE" or "MAINTENANCE"
	RemainingDays int    `json:"remaining_days"`

	Temperature Reading   `json:"temperature"`
	Humidity    Reading   `json:"humidity"`
	Battery     int       `json:"battery"`
	RiskLevel   RiskLevel `json:"risk_level"`

	Ticket *MaintenanceTicket `json:"ticket,omitempty"`

	RequestID    string `json:"request_id"`
	DeployedTick uint64 `json:"deployed_tick"`
}

const (
	UnitActive      = "ACTIVE"
	UnitMaintenance = "MAINTENANCE"
)

// RentalRecord mirrors a closed storage request into history.
type RentalRecord struct {
	RequestID  string       `json:"request_id"`
	UnitType   string       `json:"unit_type"`
	Crop       string       `json:"crop,omitempty"`
	Cost       int          `json:"cost"`
	Status     RentalStatus `json:"status"`
	ClosedTick uint64       `json:"closed_tick"`
}
