package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndCountAttempts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	today := DateKey(time.Now().UTC())

	textScore := 0.4
	for i := 0; i < 3; i++ {
		err := store.RecordAttempt(ctx, &Attempt{
			PatientID:            "pat-1",
			MedicineID:           "med-1",
			SimilarityScore:      0.8,
			TextSimilarityScore:  &textScore,
			FinalSimilarityScore: 0.82,
			Match:                true,
			Approved:             true,
		})
		if err != nil {
			t.Fatalf("record attempt %d: %v", i, err)
		}
	}
	// Different medicine and different patient must not affect the count.
	if err := store.RecordAttempt(ctx, &Attempt{PatientID: "pat-1", MedicineID: "med-2"}); err != nil {
		t.Fatalf("record other medicine: %v", err)
	}
	if err := store.RecordAttempt(ctx, &Attempt{PatientID: "pat-2", MedicineID: "med-1"}); err != nil {
		t.Fatalf("record other patient: %v", err)
	}

	count, err := store.CountAttempts(ctx, "pat-1", "med-1", today)
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts, got %d", count)
	}

	count, err = store.CountAttempts(ctx, "pat-1", "med-1", "1999-01-01")
	if err != nil {
		t.Fatalf("count attempts on other day: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 attempts on other day, got %d", count)
	}
}

func TestRecordAttemptFillsDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	attempt := &Attempt{PatientID: "pat-1", MedicineID: "med-1"}
	if err := store.RecordAttempt(ctx, attempt); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if attempt.ID == "" {
		t.Error("expected generated id")
	}
	if attempt.AttemptDate != DateKey(attempt.CreatedAt) {
		t.Errorf("attempt date %q does not match created at %v", attempt.AttemptDate, attempt.CreatedAt)
	}
}

func TestListRecentOrdersAndFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.RecordAttempt(ctx, &Attempt{
			PatientID:  "pat-1",
			MedicineID: "med-1",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}
	if err := store.RecordAttempt(ctx, &Attempt{PatientID: "pat-2", MedicineID: "med-1", CreatedAt: base}); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	attempts, err := store.ListRecent(ctx, "pat-1", 2)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if !attempts[0].CreatedAt.After(attempts[1].CreatedAt) {
		t.Error("expected newest attempt first")
	}
	for _, attempt := range attempts {
		if attempt.PatientID != "pat-1" {
			t.Errorf("filter leaked attempt for %q", attempt.PatientID)
		}
	}

	all, err := store.ListRecent(ctx, "", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 attempts without filter, got %d", len(all))
	}
}

func TestNullTextScoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordAttempt(ctx, &Attempt{PatientID: "pat-1", MedicineID: "med-1"}); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	attempts, err := store.ListRecent(ctx, "pat-1", 1)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if attempts[0].TextSimilarityScore != nil {
		t.Fatalf("expected nil text score, got %v", *attempts[0].TextSimilarityScore)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attempts.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
