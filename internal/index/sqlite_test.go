package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not reached within deadline")
}

func TestApplyBatchAndQueries(t *testing.T) {
	idx, err := Open(InMemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	idx.Write(Batch{
		Tick:    25,
		Digest:  "d-25",
		Balance: 1100,
		Entities: []EntityRow{
			{Kind: "CROP", ID: "C000001", Status: "NONE", Tick: 25},
			{Kind: "OFFER", ID: "O000001", Status: "OFFER_SENT", Tick: 25},
		},
		Notifications: []NotificationRow{
			{ID: "N000001", Role: "FARMER", Level: "INFO", Title: "New Offer Received", Message: "m", Tick: 25},
		},
	})

	waitFor(t, func() bool {
		rows, err := idx.Entities(ctx, "")
		return err == nil && len(rows) == 2
	})

	crops, err := idx.Entities(ctx, "CROP")
	if err != nil || len(crops) != 1 || crops[0].ID != "C000001" {
		t.Fatalf("crop rows = %+v (%v)", crops, err)
	}

	notes, err := idx.Notifications(ctx, "FARMER")
	if err != nil || len(notes) != 1 || notes[0].Title != "New Offer Received" {
		t.Fatalf("notes = %+v (%v)", notes, err)
	}

	tick, digest, balance, err := idx.LastExport(ctx)
	if err != nil || tick != 25 || digest != "d-25" || balance != 1100 {
		t.Fatalf("last export = %d %q %d (%v)", tick, digest, balance, err)
	}
}

func TestBatchUpsertsAndReplacesNotifications(t *testing.T) {
	idx, err := Open(InMemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	idx.Write(Batch{
		Tick:     25,
		Entities: []EntityRow{{Kind: "OFFER", ID: "O000001", Status: "OFFER_SENT", Tick: 25}},
		Notifications: []NotificationRow{
			{ID: "N000001", Role: "FARMER", Level: "INFO", Title: "a", Tick: 25},
			{ID: "N000002", Role: "SERVICE", Level: "WARNING", Title: "b", Tick: 25},
		},
	})
	// Second export: the offer moved on, the farmer cleared their queue.
	idx.Write(Batch{
		Tick:     50,
		Entities: []EntityRow{{Kind: "OFFER", ID: "O000001", Status: "AGREEMENT", Tick: 50}},
		Notifications: []NotificationRow{
			{ID: "N000002", Role: "SERVICE", Level: "WARNING", Title: "b", Tick: 25},
		},
	})

	waitFor(t, func() bool {
		tick, _, _, err := idx.LastExport(ctx)
		return err == nil && tick == 50
	})

	offers, err := idx.Entities(ctx, "OFFER")
	if err != nil || len(offers) != 1 {
		t.Fatalf("offers = %+v (%v)", offers, err)
	}
	if offers[0].Status != "AGREEMENT" || offers[0].Tick != 50 {
		t.Fatalf("entity must upsert in place: %+v", offers[0])
	}

	// The cleared notification must vanish (wholesale replacement).
	farmer, err := idx.Notifications(ctx, "FARMER")
	if err != nil || len(farmer) != 0 {
		t.Fatalf("cleared notification survived: %+v (%v)", farmer, err)
	}
	all, err := idx.Notifications(ctx, "")
	if err != nil || len(all) != 1 || all[0].ID != "N000002" {
		t.Fatalf("all notes = %+v (%v)", all, err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", "index.db")
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.Write(Batch{Tick: 1, Digest: "d", Entities: []EntityRow{{Kind: "TASK", ID: "T000001", Status: "AVAILABLE", Tick: 1}}})
	waitFor(t, func() bool {
		rows, err := idx.Entities(context.Background(), "TASK")
		return err == nil && len(rows) == 1
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Close is idempotent, and writes after close are dropped silently.
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	idx.Write(Batch{Tick: 2})
}

func TestLastExportEmpty(t *testing.T) {
	idx, err := Open(InMemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	if _, _, _, err := idx.LastExport(context.Background()); err == nil {
		t.Fatalf("empty index must report no exports")
	}
}
