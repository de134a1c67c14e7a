package market

// OfferStatus follows the fixed negotiation pipeline. COMPLETED,
// REJECTED and WITHDRAWN are terminal.
type OfferStatus string

const (
	OfferSent        OfferStatus = "OFFER_SENT"
	OfferNegotiation OfferStatus = "NEGOTIATION"
	OfferAgreement   OfferStatus = "AGREEMENT"
	OfferDispatch    OfferStatus = "DISPATCH"
	OfferDelivery    OfferStatus = "DELIVERY"
	OfferPayment     OfferStatus = "PAYMENT"
	OfferCompleted   OfferStatus = "COMPLETED"
	OfferRejected    OfferStatus = "REJECTED"
	OfferWithdrawn   OfferStatus = "WITHDRAWN"
)

func (s OfferStatus) Terminal() bool {
	return s == OfferCompleted || s == OfferRejected || s == OfferWithdrawn
}

// Message is a chat entry on an offer or task thread.
type Message struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"` // session name, or "system"
	SenderRole Role   `json:"sender_role,omitempty"`
	Content    string `json:"content"`
	Attachment string `json:"attachment,omitempty"`
	System     bool   `json:"system,omitempty"`
	Tick       uint64 `json:"tick"`
	Read       bool   `json:"read"`
}

type TimelineEntry struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
	Tick   uint64 `json:"tick"`
}

type Offer struct {
	ID         string      `json:"id"`
	CropID     string      `json:"crop_id"`
	CropName   string      `json:"crop_name"`
	Retailer   string      `json:"retailer"`
	Status     OfferStatus `json:"status"`
	PricePerKg float64     `json:"price_per_kg"`
	Quantity   int         `json:"quantity"`
	Amount     float64     `json:"amount"`
	Notes      string      `json:"notes,omitempty"`

	History  []Message       `json:"history,omitempty"`
	Timeline []TimelineEntry `json:"timeline,omitempty"`

	CreatedTick uint64 `json:"created_tick"`
}
