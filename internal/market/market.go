// Package market implements the freshvault orchestration engine: a
// single-writer, tick-driven aggregate holding every marketplace
// entity. All mutation flows through the loop goroutine; transports
// and admin handlers talk to it over channels.
package market

import (
	"fmt"
	"sync/atomic"
	"time"

	"freshvault/internal/catalogs"
	"freshvault/internal/index"
)

type Market struct {
	cfg  Config
	cats *catalogs.Catalogs

	tick    atomic.Uint64
	metrics atomic.Value // Metrics

	// now is the wall clock used for promotion windows; tests inject
	// a fixed clock here.
	now func() time.Time

	crops           map[string]*Crop
	offers          map[string]*Offer
	storageRequests map[string]*StorageRequest
	units           map[string]*DeployedUnit
	rentalHistory   []RentalRecord
	listings        map[string]*BarterListing
	barters         map[string]*BarterRequest
	tasks           map[string]*ServiceTask
	ledger          *CreditLedger
	notifications   map[Role][]*Notification
	replies         map[string]*pendingReply

	sessions map[string]*Session

	inbox chan OpEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	auditLogger AuditLogger
	indexSink   chan<- index.Batch

	prevDigest string

	nextCropNum    atomic.Uint64
	nextOfferNum   atomic.Uint64
	nextRequestNum atomic.Uint64
	nextUnitNum    atomic.Uint64
	nextListingNum atomic.Uint64
	nextBarterNum  atomic.Uint64
	nextTaskNum    atomic.Uint64
	nextNoteNum    atomic.Uint64
	nextMsgNum     atomic.Uint64
	nextSessionNum atomic.Uint64
}

func New(cfg Config, cats *catalogs.Catalogs) *Market {
	cfg.applyDefaults()
	if cats == nil {
		cats = catalogs.Default()
	}
	m := &Market{
		cfg:  cfg,
		cats: cats,
		now:  time.Now,

		crops:           map[string]*Crop{},
		offers:          map[string]*Offer{},
		storageRequests: map[string]*StorageRequest{},
		units:           map[string]*DeployedUnit{},
		listings:        map[string]*BarterListing{},
		barters:         map[string]*BarterRequest{},
		tasks:           map[string]*ServiceTask{},
		ledger:          NewCreditLedger(cfg.StartingCredits),
		notifications:   map[Role][]*Notification{},
		replies:         map[string]*pendingReply{},

		sessions: map[string]*Session{},

		inbox: make(chan OpEnvelope, 1024),
		join:  make(chan JoinRequest, 16),
		leave: make(chan string, 16),
		stop:  make(chan struct{}),
	}
	return m
}

// SetAuditLogger wires the transition audit trail. Must be called
// before Run.
func (m *Market) SetAuditLogger(l AuditLogger) { m.auditLogger = l }

// SetIndexSink wires the read-model exporter. Must be called before
// Run. Sends are non-blocking; a backed-up sink drops batches.
func (m *Market) SetIndexSink(ch chan<- index.Batch) { m.indexSink = ch }

func (m *Market) Inbox() chan<- OpEnvelope { return m.inbox }
func (m *Market) Join() chan<- JoinRequest { return m.join }
func (m *Market) Leave() chan<- string     { return m.leave }

func (m *Market) ID() string {
	if m == nil {
		return ""
	}
	return m.cfg.ID
}

func (m *Market) TickRateHz() int {
	if m == nil {
		return 0
	}
	return m.cfg.TickRateHz
}

func (m *Market) RateLimits() RateLimitConfig { return m.cfg.RateLimits }

func (m *Market) newCropID() string    { return fmt.Sprintf("C%06d", m.nextCropNum.Add(1)) }
func (m *Market) newOfferID() string   { return fmt.Sprintf("O%06d", m.nextOfferNum.Add(1)) }
func (m *Market) newRequestID() string { return fmt.Sprintf("R%06d", m.nextRequestNum.Add(1)) }
func (m *Market) newUnitID() string    { return fmt.Sprintf("U%06d", m.nextUnitNum.Add(1)) }
func (m *Market) newListingID() string { return fmt.Sprintf("L%06d", m.nextListingNum.Add(1)) }
func (m *Market) newBarterID() string  { return fmt.Sprintf("B%06d", m.nextBarterNum.Add(1)) }
func (m *Market) newTaskID() string    { return fmt.Sprintf("T%06d", m.nextTaskNum.Add(1)) }
func (m *Market) newMessageID() string { return fmt.Sprintf("M%06d", m.nextMsgNum.Add(1)) }

func (m *Market) newNotificationID() string {
	return fmt.Sprintf("N%06d", m.nextNoteNum.Add(1))
}

func (m *Market) newSessionID() string {
	return fmt.Sprintf("S%06d", m.nextSessionNum.Add(1))
}
