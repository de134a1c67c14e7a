package market

// BarterStatus lifecycle. REFUNDED is terminal; COMPLETED is terminal
// except for the dispute edge; DISPUTED resolves back to COMPLETED
// (release) or forward to REFUNDED.
type BarterStatus string

const (
	BarterRequested BarterStatus = "REQUESTED"
	BarterAccepted  BarterStatus = "ACCEPTED"
	BarterCompleted BarterStatus = "COMPLETED"
	BarterDisputed  BarterStatus = "DISPUTED"
	BarterRefunded  BarterStatus = "REFUNDED"
)

type ListingStatus string

const (
	ListingAvailable ListingStatus = "AVAILABLE"
	ListingBusy      ListingStatus = "BUSY"
)

// BarterListing is a service offered for credits by a provider.
type BarterListing struct {
	ID          string        `json:"id"`
	ServiceType string        `json:"service_type"`
	Description string        `json:"description,omitempty"`
	District    string        `json:"district,omitempty"`
	CreditCost  int           `json:"credit_cost"`
	Status      ListingStatus `json:"status"`

	ProviderSession string  `json:"provider_session"`
	ProviderName    string  `json:"provider_name"`
	Rating          float64 `json:"rating"`
	RatingsCount    int     `json:"ratings_count"`

	CreatedTick uint64 `json:"created_tick"`
}

// BarterRequest is an escrowed purchase of a listing. The cost is
// debited in full when the request is created and only moves again on
// a REFUND resolution.
type BarterRequest struct {
	ID          string       `json:"id"`
	ListingID   string       `json:"listing_id"`
	ServiceType string       `json:"service_type"`
	CreditCost  int          `json:"credit_cost"`
	Status      BarterStatus `json:"status"`

	RequesterSession string `json:"requester_session"`
	RequesterName    string `json:"requester_name"`
	ProviderName     string `json:"provider_name"`

	Rating        int    `json:"rating,omitempty"`
	Feedback      string `json:"feedback,omitempty"`
	DisputeReason string `json:"dispute_reason,omitempty"`

	RequestedTick uint64 `json:"requested_tick"`
}
