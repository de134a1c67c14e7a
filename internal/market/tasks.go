package market

type TaskType string

const (
	TaskDelivery     TaskType = "DELIVERY"
	TaskMaintenance  TaskType = "MAINTENANCE"
	TaskQACheck      TaskType = "QA_CHECK"
	TaskExpertAdvice TaskType = "EXPERT_ADVICE"
	TaskExtension    TaskType = "EXTENSION"
	TaskSupport      TaskType = "SUPPORT"
	TaskEmergency    TaskType = "EMERGENCY"
)

func knownTaskType(t TaskType) bool {
	switch t {
	case TaskDelivery, TaskMaintenance, TaskQACheck, TaskExpertAdvice, TaskExtension, TaskSupport, TaskEmergency:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskAvailable  TaskStatus = "AVAILABLE"
	TaskAccepted   TaskStatus = "ACCEPTED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskRejected   TaskStatus = "REJECTED"
)

// Terminal reports whether the task can never change again. REJECTED
// is not terminal: escalation may re-open it as AVAILABLE.
func (s TaskStatus) Terminal() bool { return s == TaskCompleted }

type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

type MaintenanceStage string

const (
	StageDiagnostic MaintenanceStage = "DIAGNOSTIC"
	StageFixing     MaintenanceStage = "FIXING"
)

const (
	ResolutionResolved   = "RESOLVED"
	ResolutionUnresolved = "UNRESOLVED"
)

type DeliveryStep struct {
	Name          string `json:"name"`
	Completed     bool   `json:"completed"`
	CompletedTick uint64 `json:"completed_tick,omitempty"`
}

type DeliveryDetail struct {
	Steps    []DeliveryStep    `json:"steps"`
	Tracking *DeliveryTracking `json:"tracking,omitempty"`
}

type MaintenanceDetail struct {
	Stage           MaintenanceStage `json:"stage,omitempty"`
	DiagnosticNotes string           `json:"diagnostic_notes,omitempty"`
	RepairNotes     string           `json:"repair_notes,omitempty"`
	Resolution      string           `json:"resolution,omitempty"`
}

type QAChecklistItem struct {
	Item    string `json:"item"`
	Checked bool   `json:"checked"`
}

type QADetail struct {
	CropID    string            `json:"crop_id"`
	Checklist []QAChecklistItem `json:"checklist"`
	Verified  bool              `json:"verified"`
}

var defaultQAChecklist = []string{
	"Visual inspection",
	"Sample weight check",
	"Moisture reading",
	"Pesticide residue swab",
	"Grade classification",
}

// ServiceTask is the work queue entry for the service role. Exactly
// one of the detail pointers is set, matching Type; the chat thread
// lives on the task so escalation can re-type without losing it.
type ServiceTask struct {
	ID          string       `json:"id"`
	Type        TaskType     `json:"task_type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Requester   string       `json:"requester,omitempty"`
	Assignee    string       `json:"assignee,omitempty"`
	Location    string       `json:"location,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	Earnings    int          `json:"earnings,omitempty"`

	// Provenance links, set depending on how the task was created.
	OfferID string `json:"offer_id,omitempty"`
	UnitID  string `json:"unit_id,omitempty"`

	Delivery    *DeliveryDetail    `json:"delivery,omitempty"`
	Maintenance *MaintenanceDetail `json:"maintenance,omitempty"`
	QA          *QADetail          `json:"qa,omitempty"`

	Chat        []Message `json:"chat,omitempty"`
	UnreadCount int       `json:"unread_count"`

	CreatedTick uint64 `json:"created_tick"`
}
