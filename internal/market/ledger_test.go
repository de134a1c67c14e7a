package market

import "testing"

func TestLedgerSpendAndRefund(t *testing.T) {
	l := NewCreditLedger(1000)
	if l.Balance() != 1000 {
		t.Fatalf("balance = %d", l.Balance())
	}
	if !l.Spend(150, "barter:L000001", 3) {
		t.Fatalf("spend within balance should succeed")
	}
	if l.Balance() != 850 {
		t.Fatalf("balance after spend = %d", l.Balance())
	}
	l.Refund(150, "barter:L000001", 9)
	if l.Balance() != 1000 {
		t.Fatalf("balance after refund = %d, want conservation", l.Balance())
	}
}

func TestLedgerNoPartialDebit(t *testing.T) {
	l := NewCreditLedger(100)
	if l.Spend(101, "promotion:C000001", 0) {
		t.Fatalf("overdraft spend should fail")
	}
	if l.Balance() != 100 {
		t.Fatalf("failed spend must not move the balance: %d", l.Balance())
	}
	if len(l.Entries()) != 0 {
		t.Fatalf("failed spend must not append entries")
	}
	if l.Spend(0, "x", 0) || l.Spend(-5, "x", 0) {
		t.Fatalf("non-positive spend should fail")
	}
}

func TestLedgerRefundIgnoresNonPositive(t *testing.T) {
	l := NewCreditLedger(50)
	l.Refund(0, "x", 0)
	l.Refund(-10, "x", 0)
	if l.Balance() != 50 || len(l.Entries()) != 0 {
		t.Fatalf("non-positive refund must be a no-op")
	}
}

func TestLedgerEntriesRecordRunningBalance(t *testing.T) {
	l := NewCreditLedger(500)
	l.Spend(200, "rental:U000001", 1)
	l.Spend(100, "promotion:C000002", 2)
	l.Refund(200, "rental:U000001", 5)

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	wantBalances := []int{300, 200, 400}
	wantTypes := []EntryType{EntrySpend, EntrySpend, EntryRefund}
	for i, e := range entries {
		if e.Seq != i+1 {
			t.Errorf("entry %d seq = %d", i, e.Seq)
		}
		if e.Balance != wantBalances[i] {
			t.Errorf("entry %d balance = %d, want %d", i, e.Balance, wantBalances[i])
		}
		if e.Type != wantTypes[i] {
			t.Errorf("entry %d type = %s", i, e.Type)
		}
	}

	// Entries returns a copy.
	entries[0].Amount = 9999
	if l.Entries()[0].Amount == 9999 {
		t.Fatalf("Entries must copy")
	}
}

func TestLedgerNegativeStartClamped(t *testing.T) {
	l := NewCreditLedger(-40)
	if l.Balance() != 0 {
		t.Fatalf("negative start should clamp to 0, got %d", l.Balance())
	}
}
