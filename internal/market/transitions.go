package market

// EntityKind selects a transition table.
type EntityKind string

const (
	KindOffer   EntityKind = "OFFER"
	KindTask    EntityKind = "TASK"
	KindStorage EntityKind = "STORAGE"
	KindBarter  EntityKind = "BARTER"
)

// transitionTables is the single source of truth for legal status
// moves. A status with no entry is absorbing. Escalation's re-entry to
// AVAILABLE is deliberately NOT in the task table: it bypasses
// canTransition as the one sanctioned reset, guarded by Terminal().
var transitionTables = map[EntityKind]map[string][]string{
	KindOffer: {
		string(OfferSent):        {string(OfferNegotiation), string(OfferAgreement), string(OfferRejected), string(OfferWithdrawn)},
		string(OfferNegotiation): {string(OfferAgreement), string(OfferRejected), string(OfferWithdrawn)},
		string(OfferAgreement):   {string(OfferDispatch)},
		string(OfferDispatch):    {string(OfferDelivery)},
		string(OfferDelivery):    {string(OfferPayment)},
		string(OfferPayment):     {string(OfferCompleted)},
	},
	KindTask: {
		string(TaskAvailable):  {string(TaskAccepted), string(TaskRejected)},
		string(TaskAccepted):   {string(TaskInProgress), string(TaskCompleted)},
		string(TaskInProgress): {string(TaskCompleted)},
	},
	KindStorage: {
		string(RentalRequested):  {string(RentalAssigned), string(RentalCancelled)},
		string(RentalAssigned):   {string(RentalDispatched)},
		string(RentalDispatched): {string(RentalInstalled)},
		string(RentalInstalled):  {string(RentalActive)},
		string(RentalActive):     {string(RentalCompleted)},
	},
	KindBarter: {
		string(BarterRequested): {string(BarterAccepted)},
		string(BarterAccepted):  {string(BarterCompleted)},
		string(BarterCompleted): {string(BarterDisputed)},
		string(BarterDisputed):  {string(BarterRefunded), string(BarterCompleted)},
	},
}

func canTransition(kind EntityKind, from, to string) bool {
	if from == to {
		return false
	}
	for _, next := range transitionTables[kind][from] {
		if next == to {
			return true
		}
	}
	return false
}

// nextRentalStatus returns the forward step in the rental pipeline,
// or "" when there is none.
func nextRentalStatus(from RentalStatus) RentalStatus {
	switch from {
	case RentalRequested:
		return RentalAssigned
	case RentalAssigned:
		return RentalDispatched
	case RentalDispatched:
		return RentalInstalled
	case RentalInstalled:
		return RentalActive
	case RentalActive:
		return RentalCompleted
	}
	return ""
}
