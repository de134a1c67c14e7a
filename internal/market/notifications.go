package market

import "freshvault/internal/protocol"

type NotificationType string

const (
	NoteInfo    NotificationType = "INFO"
	NoteSuccess NotificationType = "SUCCESS"
	NoteWarning NotificationType = "WARNING"
	NoteError   NotificationType = "ERROR"
)

type Notification struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"note_type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Role    Role             `json:"role"`
	Read    bool             `json:"read"`
	Tick    uint64           `json:"tick"`
}

type noteKey struct {
	Kind   EntityKind
	Action string
}

type noteSpec struct {
	Role  Role
	Type  NotificationType
	Title string
}

// Entity kinds that only exist for notification routing.
const (
	kindCrop     EntityKind = "CROP"
	kindRental   EntityKind = "RENTAL"
	kindDelivery EntityKind = "DELIVERY"
	kindNote     EntityKind = "NOTIFICATION"
)

// noteTable is the full dispatch table: (kind, action) decides the
// receiving role, severity and title. An action absent from the table
// produces no notification; the caller supplies only the message body.
var noteTable = map[noteKey]noteSpec{
	{kindCrop, "promoted"}:          {RoleFarmer, NoteSuccess, "Promotion Active"},
	{kindCrop, "promotion_expired"}: {RoleFarmer, NoteWarning, "Promotion Expired"},
	{kindCrop, "qa_requested"}:      {RoleService, NoteInfo, "QA Check Requested"},
	{kindCrop, "qa_verified"}:       {RoleFarmer, NoteSuccess, "Crop Verified"},

	{KindOffer, "received"}:         {RoleFarmer, NoteInfo, "New Offer Received"},
	{KindOffer, "status"}:           {RoleRetailer, NoteInfo, "Offer Update"},
	{KindOffer, "message_farmer"}:   {RoleRetailer, NoteInfo, "New Message"},
	{KindOffer, "message_retailer"}: {RoleFarmer, NoteInfo, "New Message"},

	{KindStorage, "requested"}: {RoleService, NoteInfo, "New Storage Request"},
	{KindStorage, "advanced"}:  {RoleFarmer, NoteInfo, "Storage Update"},
	{KindStorage, "cancelled"}: {RoleService, NoteWarning, "Request Cancelled"},

	{kindRental, "extended"}:              {RoleFarmer, NoteSuccess, "Rental Extended"},
	{kindRental, "maintenance_requested"}: {RoleService, NoteWarning, "Maintenance Requested"},
	{kindRental, "maintenance_resolved"}:  {RoleFarmer, NoteSuccess, "Maintenance Resolved"},

	{KindBarter, "requested"}: {RoleService, NoteInfo, "New Service Request"},
	{KindBarter, "accepted"}:  {RoleFarmer, NoteSuccess, "Service Accepted"},
	{KindBarter, "completed"}: {RoleFarmer, NoteSuccess, "Service Completed"},
	{KindBarter, "rated"}:     {RoleService, NoteInfo, "New Rating"},
	{KindBarter, "disputed"}:  {RoleService, NoteError, "Dispute Raised"},
	{KindBarter, "refunded"}:  {RoleFarmer, NoteSuccess, "Credits Refunded"},
	{KindBarter, "released"}:  {RoleFarmer, NoteInfo, "Dispute Resolved"},

	{KindTask, "accepted"}:        {RoleFarmer, NoteInfo, "Task Accepted"},
	{KindTask, "rejected"}:        {RoleFarmer, NoteWarning, "Task Rejected"},
	{KindTask, "completed"}:       {RoleFarmer, NoteSuccess, "Task Completed"},
	{KindTask, "escalated"}:       {RoleService, NoteWarning, "Task Escalated"},
	{KindTask, "message_farmer"}:  {RoleService, NoteInfo, "New Task Message"},
	{KindTask, "message_service"}: {RoleFarmer, NoteInfo, "New Task Message"},
	{KindTask, "auto_reply"}:      {RoleFarmer, NoteInfo, "Expert Reply"},

	{kindDelivery, "started"}:   {RoleFarmer, NoteInfo, "Delivery Started"},
	{kindDelivery, "delivered"}: {RoleFarmer, NoteSuccess, "Delivery Complete"},
	{kindDelivery, "arrived"}:   {RoleRetailer, NoteSuccess, "Order Delivered"},
}

// notify dispatches one notification through the fixed table. Unknown
// (kind, action) pairs are a no-op: the table is the contract.
func (m *Market) notify(kind EntityKind, action, message string, nowTick uint64) {
	spec, ok := noteTable[noteKey{kind, action}]
	if !ok {
		return
	}
	n := &Notification{
		ID:      m.newNotificationID(),
		Type:    spec.Type,
		Title:   spec.Title,
		Message: message,
		Role:    spec.Role,
		Tick:    nowTick,
	}
	// Prepend: queues are newest-first.
	m.notifications[spec.Role] = append([]*Notification{n}, m.notifications[spec.Role]...)
	notificationsTotal.WithLabelValues(string(spec.Role)).Inc()

	for _, s := range m.sessions {
		if s.Role != spec.Role {
			continue
		}
		s.AddEvent(protocol.Event{
			"t":       nowTick,
			"type":    "NOTIFICATION",
			"id":      n.ID,
			"level":   string(n.Type),
			"title":   n.Title,
			"message": n.Message,
		})
	}
}

// markNotificationRead scans every role queue; marking an already-read
// or missing notification is a no-op.
func (m *Market) markNotificationRead(id string) {
	for _, role := range allRoles {
		for _, n := range m.notifications[role] {
			if n.ID == id {
				n.Read = true
				return
			}
		}
	}
}

// clearNotifications drops only the caller's role queue.
func (m *Market) clearNotifications(role Role) int {
	n := len(m.notifications[role])
	m.notifications[role] = nil
	return n
}

func (m *Market) unreadCount(role Role) int {
	c := 0
	for _, n := range m.notifications[role] {
		if !n.Read {
			c++
		}
	}
	return c
}
