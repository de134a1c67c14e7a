package market

import "time"

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

type QAStatus string

const (
	QANone      QAStatus = "NONE"
	QARequested QAStatus = "REQUESTED"
	QAVerified  QAStatus = "VERIFIED"
)

type PromotionPlan string

const (
	PlanWeekly    PromotionPlan = "WEEKLY"
	PlanMonthly   PromotionPlan = "MONTHLY"
	PlanQuarterly PromotionPlan = "QUARTERLY"
)

// Promotion is the paid visibility window on a crop. EndDate is
// exclusive: the sweep deactivates once EndDate is strictly in the
// past.
type Promotion struct {
	Active    bool          `json:"active"`
	Plan      PromotionPlan `json:"plan"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
}

// Monitoring mirrors the sensor summary shown with a crop listing.
// The engine treats it as data; only the risk level feeds alerts.
type Monitoring struct {
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	RiskScore      int       `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Recommendation string    `json:"recommendation,omitempty"`
	SpoilageHours  int       `json:"spoilage_hours,omitempty"`
}

type PricePoint struct {
	At    time.Time `json:"at"`
	Price float64   `json:"price"`
}

type Crop struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Variety       string  `json:"variety,omitempty"`
	Quantity      int     `json:"quantity"`
	PricePerKg    float64 `json:"price_per_kg"`
	HarvestDate   string  `json:"harvest_date,omitempty"`
	Location      string  `json:"location,omitempty"`
	Category      string  `json:"category,omitempty"`
	StorageUnitID string  `json:"storage_unit_id,omitempty"`

	IsPromoted      bool       `json:"is_promoted"`
	Promoted        *Promotion `json:"promoted,omitempty"`
	VisibilityScore int        `json:"visibility_score"`

	QAStatus   QAStatus   `json:"qa_status"`
	Monitoring Monitoring `json:"monitoring"`

	PriceHistory []PricePoint `json:"price_history,omitempty"`

	Views     int `json:"views"`
	Inquiries int `json:"inquiries"`

	CreatedTick uint64 `json:"created_tick"`
}
