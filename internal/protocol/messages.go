package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Name            string            `json:"name"`
	Role            string            `json:"role"` // "FARMER", "RETAILER", "SERVICE"
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Role            string         `json:"role"`
	MarketID        string         `json:"market_id,omitempty"`
	EngineParams    EngineParams   `json:"engine_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type EngineParams struct {
	TickRateHz               int    `json:"tick_rate_hz"`
	DeliveryTickEveryTicks   int    `json:"delivery_tick_every_ticks"`
	PromotionSweepEveryTicks int    `json:"promotion_sweep_every_ticks"`
	ReplyDelayTicks          int    `json:"reply_delay_ticks"`
	StartingCredits          int    `json:"starting_credits"`
	Seed                     uint64 `json:"seed,omitempty"`
}

type CatalogDigests struct {
	StorageUnitsDigest   string `json:"storage_units_digest"`
	PromotionPlansDigest string `json:"promotion_plans_digest"`
	BarterServicesDigest string `json:"barter_services_digest"`
}

// OP (client -> server): one facade operation. The field set is a flat
// union; each op reads only the fields it names.
type OpMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"` // client ref, echoed in ACTION_RESULT
	Op              string `json:"op"`

	// Crops.
	Crop   *CropSpec  `json:"crop,omitempty"`
	Patch  *CropPatch `json:"patch,omitempty"`
	CropID string     `json:"crop_id,omitempty"`
	Plan   string     `json:"plan,omitempty"`

	// Offers.
	Offer        *OfferSpec `json:"offer,omitempty"`
	OfferID      string     `json:"offer_id,omitempty"`
	Status       string     `json:"status,omitempty"`
	CounterPrice *float64   `json:"counter_price,omitempty"`

	// Storage.
	Storage   *StorageSpec `json:"storage,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	UnitID    string       `json:"unit_id,omitempty"`
	Days      int          `json:"days,omitempty"`
	ETA       string       `json:"eta,omitempty"`
	Issue     string       `json:"issue,omitempty"`
	Priority  string       `json:"priority,omitempty"`

	// Barter.
	Listing   *ListingSpec `json:"listing,omitempty"`
	ListingID string       `json:"listing_id,omitempty"`
	BarterID  string       `json:"barter_id,omitempty"`
	Rating    int          `json:"rating,omitempty"`
	Feedback  string       `json:"feedback,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Outcome   string       `json:"outcome,omitempty"` // "REFUND" or "RELEASE"

	// Tasks.
	TaskID     string   `json:"task_id,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
	StepIndex  *int     `json:"step_index,omitempty"`
	Checked    *bool    `json:"checked,omitempty"`
	Stage      string   `json:"stage,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Text       string   `json:"text,omitempty"`
	Attachment string   `json:"attachment,omitempty"`
	TargetType string   `json:"target_type,omitempty"`
	Note       string   `json:"note,omitempty"`
	Progress   *float64 `json:"progress,omitempty"`
	Verified   *bool    `json:"verified,omitempty"`

	// Notifications.
	NotificationID string `json:"notification_id,omitempty"`
}

type CropSpec struct {
	Name          string  `json:"name"`
	Variety       string  `json:"variety,omitempty"`
	Quantity      int     `json:"quantity"`
	PricePerKg    float64 `json:"price_per_kg"`
	HarvestDate   string  `json:"harvest_date,omitempty"`
	Location      string  `json:"location,omitempty"`
	Category      string  `json:"category,omitempty"`
	StorageUnitID string  `json:"storage_unit_id,omitempty"`
}

// CropPatch carries only the fields to change; nil pointers and empty
// strings leave the current value in place.
type CropPatch struct {
	Name        string   `json:"name,omitempty"`
	Variety     string   `json:"variety,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	PricePerKg  *float64 `json:"price_per_kg,omitempty"`
	HarvestDate string   `json:"harvest_date,omitempty"`
	Location    string   `json:"location,omitempty"`
	Category    string   `json:"category,omitempty"`
}

type OfferSpec struct {
	CropID     string  `json:"crop_id"`
	PricePerKg float64 `json:"price_per_kg"`
	Quantity   int     `json:"quantity"`
	Notes      string  `json:"notes,omitempty"`
}

type StorageSpec struct {
	UnitType     string `json:"unit_type"`
	Crop         string `json:"crop,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
	DurationDays int    `json:"duration_days"`
	Location     string `json:"location,omitempty"`
}

type ListingSpec struct {
	ServiceType string `json:"service_type"`
	Description string `json:"description,omitempty"`
	District    string `json:"district,omitempty"`
	CreditCost  int    `json:"credit_cost"`
}

// EVENT (server -> client): per-tick batch of events for one session.
type EventMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	SessionID       string  `json:"session_id"`
	Events          []Event `json:"events"`
}

type Event map[string]interface{}

// STATE (server -> client): periodic role-scoped summary.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	SessionID       string `json:"session_id"`

	Credits             int    `json:"credits"`
	Crops               int    `json:"crops"`
	Offers              int    `json:"offers"`
	StorageRequests     int    `json:"storage_requests"`
	DeployedUnits       int    `json:"deployed_units"`
	BarterListings      int    `json:"barter_listings"`
	BarterRequests      int    `json:"barter_requests"`
	Tasks               int    `json:"tasks"`
	UnreadNotifications int    `json:"unread_notifications"`
	Digest              string `json:"digest,omitempty"`
}
