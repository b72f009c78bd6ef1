package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"loantracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "loans.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Ledger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := core.NewPerson("p1", "Carlos", &core.PersonalInfo{Email: "c@example.com", Notes: "friend"}, created)
	if err := repo.SavePerson(ctx, p); err != nil {
		t.Fatalf("SavePerson: %v", err)
	}

	txs := []core.Transaction{
		{ID: "t1", PersonID: "p1", Kind: core.Loan, Amount: core.Money{Cents: 100000}, Date: created, Description: "car"},
		{ID: "t2", PersonID: "p1", Kind: core.Loan, Amount: core.Money{Cents: 50000}, Date: created.AddDate(0, 1, 0), Description: "medical"},
		{ID: "t3", PersonID: "p1", Kind: core.Payment, Amount: core.Money{Cents: 50000}, Date: created.AddDate(0, 2, 0), Description: "first"},
	}
	p, err := core.Aggregate(p, txs)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if err := repo.SaveLedger(ctx, p, txs); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}

	got, err := repo.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if got.Balance.Cents != 100000 || got.Status != core.StatusPending {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.PersonalInfo == nil || got.PersonalInfo.Notes != "friend" {
		t.Fatalf("personal info not persisted: %+v", got.PersonalInfo)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	list, err := repo.ListTransactions(ctx, "p1")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 3 || list[0].ID != "t1" || list[2].ID != "t3" {
		t.Fatalf("unexpected transaction order %+v", list)
	}
	if list[2].Kind != core.Payment || !list[1].Date.Equal(txs[1].Date) {
		t.Fatalf("transaction fields not round-tripped: %+v", list)
	}

	// replacing the list drops removed rows
	shrunk, err := core.Aggregate(p, txs[:1])
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if err := repo.SaveLedger(ctx, shrunk, txs[:1]); err != nil {
		t.Fatalf("SaveLedger shrink: %v", err)
	}
	list, _ = repo.ListTransactions(ctx, "p1")
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction after shrink, got %d", len(list))
	}

	if err := repo.DeletePerson(ctx, "p1"); err != nil {
		t.Fatalf("DeletePerson: %v", err)
	}
	if _, err := repo.GetPerson(ctx, "p1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeletePerson(ctx, "p1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_Links(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := core.SharedLink{
		ID:                  "l1",
		PersonID:            "p1",
		PersonName:          "Carlos",
		URL:                 "/s/token",
		CreatedAt:           now,
		ExpiresAt:           now.Add(7 * 24 * time.Hour),
		IncludeTransactions: true,
		PasswordProtected:   true,
		PasswordHash:        "$2a$10$hash",
	}
	if err := repo.SaveLink(ctx, l); err != nil {
		t.Fatalf("SaveLink: %v", err)
	}

	for i := int64(1); i <= 2; i++ {
		views, err := repo.IncrementViews(ctx, "l1")
		if err != nil || views != i {
			t.Fatalf("IncrementViews: got %d err=%v", views, err)
		}
	}

	got, err := repo.GetLink(ctx, "l1")
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	if !got.PasswordProtected || got.IncludePersonalInfo || got.Views != 2 || !got.ExpiresAt.Equal(l.ExpiresAt) {
		t.Fatalf("unexpected link %+v", got)
	}

	if _, err := repo.IncrementViews(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteLink(ctx, "l1"); err != nil {
		t.Fatalf("DeleteLink: %v", err)
	}
	links, err := repo.ListLinks(ctx)
	if err != nil || len(links) != 0 {
		t.Fatalf("expected no links, got %v err=%v", links, err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	for i := 0; i < 2; i++ {
		v, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("RunMigrations run %d: %v", i+1, err)
		}
		if v != 1 {
			t.Errorf("run %d version = %d, want 1", i+1, v)
		}
	}
}
