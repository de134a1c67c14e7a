package market

// EntryType tags a ledger movement.
type EntryType string

const (
	EntrySpend  EntryType = "SPEND"
	EntryRefund EntryType = "REFUND"
)

// LedgerEntry records one credit movement and the balance after it,
// so conservation can be audited without replaying.
type LedgerEntry struct {
	Seq     int       `json:"seq"`
	Tick    uint64    `json:"tick"`
	Type    EntryType `json:"entry_type"`
	Amount  int       `json:"amount"`
	Ref     string    `json:"ref"` // e.g. "barter:B000001"
	Balance int       `json:"balance"`
}

// CreditLedger is the single market credit account. Debits are
// all-or-nothing: Spend either applies the full amount or leaves the
// ledger untouched. The balance can never go negative.
type CreditLedger struct {
	balance int
	entries []LedgerEntry
}

func NewCreditLedger(start int) *CreditLedger {
	if start < 0 {
		start = 0
	}
	return &CreditLedger{balance: start}
}

func (l *CreditLedger) Balance() int { return l.balance }

func (l *CreditLedger) CanSpend(amount int) bool {
	return amount > 0 && amount <= l.balance
}

// Spend debits amount in full, or reports false with no mutation.
func (l *CreditLedger) Spend(amount int, ref string, tick uint64) bool {
	if !l.CanSpend(amount) {
		return false
	}
	l.balance -= amount
	l.append(EntrySpend, amount, ref, tick)
	return true
}

// Refund credits amount back. Non-positive amounts are ignored.
func (l *CreditLedger) Refund(amount int, ref string, tick uint64) {
	if amount <= 0 {
		return
	}
	l.balance += amount
	l.append(EntryRefund, amount, ref, tick)
}

func (l *CreditLedger) append(t EntryType, amount int, ref string, tick uint64) {
	l.entries = append(l.entries, LedgerEntry{
		Seq:     len(l.entries) + 1,
		Tick:    tick,
		Type:    t,
		Amount:  amount,
		Ref:     ref,
		Balance: l.balance,
	})
}

// Entries returns a copy of the movement log.
func (l *CreditLedger) Entries() []LedgerEntry {
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
