package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"loantracker/internal/core"
	"loantracker/internal/share"
	"loantracker/internal/store/memory"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type shareFixture struct {
	svc    *ShareService
	repo   *countingRepo
	person core.Person
	now    time.Time
}

func (f *shareFixture) clock() time.Time { return f.now }

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	ctx := context.Background()
	f := &shareFixture{repo: newCountingRepo(), now: testNow}

	ledger := NewLedgerService(f.repo, WithLedgerClock(fixedClock))
	p, err := ledger.AddPerson(ctx, PersonInput{Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ledger.RecordTransaction(ctx, p.ID, TransactionInput{
		Kind: core.Loan, Amount: money(100000), Date: testNow.Add(-time.Hour), Description: "loan",
	}); err != nil {
		t.Fatal(err)
	}
	f.person = p

	signer, err := share.NewSigner(testKey)
	if err != nil {
		t.Fatal(err)
	}
	f.svc = NewShareService(f.repo, signer,
		ShareConfig{BaseURL: "https://loans.example.com/", HashCost: bcrypt.MinCost},
		WithShareClock(f.clock),
		WithSampleFallback(memory.NewSeeded()))
	return f
}

func (f *shareFixture) create(t *testing.T, in CreateLinkInput) CreatedLink {
	t.Helper()
	if in.PersonID == "" {
		in.PersonID = f.person.ID
	}
	c, err := f.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func (f *shareFixture) views(t *testing.T, id string) int64 {
	t.Helper()
	l, err := f.repo.GetLink(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	return l.Views
}

func TestCreateLink(t *testing.T) {
	f := newShareFixture(t)

	c := f.create(t, CreateLinkInput{IncludeTransactions: true})
	if c.Password != "" || c.Link.PasswordProtected {
		t.Errorf("unprotected link got a password: %+v", c)
	}
	if got := c.Link.ExpiresAt.Sub(c.Link.CreatedAt); got != DefaultLinkTTL {
		t.Errorf("ttl = %v, want %v", got, DefaultLinkTTL)
	}
	if c.Link.URL != "https://loans.example.com/s/"+c.Token {
		t.Errorf("url = %q", c.Link.URL)
	}
	if c.Link.PersonName != "Ana" {
		t.Errorf("person name = %q", c.Link.PersonName)
	}

	p := f.create(t, CreateLinkInput{Protect: true, ExpiresIn: time.Hour})
	if len(p.Password) != share.SecretLength || !p.Link.PasswordProtected {
		t.Errorf("protected link = %+v", p)
	}
	if p.Link.PasswordHash != "" {
		t.Error("verifier leaked in the returned link")
	}
	stored, _ := f.repo.GetLink(context.Background(), p.Link.ID)
	if stored.PasswordHash == "" || strings.Contains(stored.PasswordHash, p.Password) {
		t.Errorf("stored verifier = %q", stored.PasswordHash)
	}

	if _, err := f.svc.Create(context.Background(), CreateLinkInput{PersonID: f.person.ID, ExpiresIn: -time.Second}); !errors.Is(err, core.ErrInvalidExpiry) {
		t.Errorf("negative expiry: got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), CreateLinkInput{PersonID: "nobody"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown person: got %v", err)
	}
	// sample people are shareable even when the repository does not hold them
	if _, err := f.svc.Create(context.Background(), CreateLinkInput{PersonID: "1"}); err != nil {
		t.Errorf("sample person: %v", err)
	}
}

func TestResolveOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown link", func(t *testing.T) {
		f := newShareFixture(t)
		res, err := f.svc.Resolve(ctx, "missing", "")
		if err != nil || res.Outcome != NotFound {
			t.Errorf("got %v, %v", res.Outcome, err)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newShareFixture(t)
		res, err := f.svc.ResolveToken(ctx, "not-a-token", "")
		if err != nil || res.Outcome != NotFound {
			t.Errorf("got %v, %v", res.Outcome, err)
		}
	})

	t.Run("expired link", func(t *testing.T) {
		f := newShareFixture(t)
		c := f.create(t, CreateLinkInput{ExpiresIn: time.Second})
		f.now = f.now.Add(2 * time.Second)

		res, err := f.svc.ResolveToken(ctx, c.Token, "")
		if err != nil || res.Outcome != Expired {
			t.Errorf("got %v, %v", res.Outcome, err)
		}
		if f.views(t, c.Link.ID) != 0 {
			t.Error("expired resolution counted a view")
		}
	})

	t.Run("expires exactly now", func(t *testing.T) {
		f := newShareFixture(t)
		c := f.create(t, CreateLinkInput{ExpiresIn: time.Minute})
		f.now = c.Link.ExpiresAt

		res, _ := f.svc.Resolve(ctx, c.Link.ID, "")
		if res.Outcome != Expired {
			t.Errorf("got %v, want Expired", res.Outcome)
		}
	})

	t.Run("without transactions", func(t *testing.T) {
		f := newShareFixture(t)
		c := f.create(t, CreateLinkInput{})

		res, err := f.svc.ResolveToken(ctx, c.Token, "")
		if err != nil || res.Outcome != Resolved {
			t.Fatalf("got %v, %v", res.Outcome, err)
		}
		if res.Snapshot.Transactions != nil {
			t.Errorf("transactions disclosed: %v", res.Snapshot.Transactions)
		}
		if res.Snapshot.Person.PersonalInfo != nil {
			t.Error("personal info disclosed")
		}
		if res.Snapshot.Person.Balance.Cents != 100000 {
			t.Errorf("balance = %d", res.Snapshot.Person.Balance.Cents)
		}
		if res.Snapshot.Views != 1 || f.views(t, c.Link.ID) != 1 {
			t.Errorf("views = %d", res.Snapshot.Views)
		}
	})

	t.Run("with disclosures", func(t *testing.T) {
		f := newShareFixture(t)
		c := f.create(t, CreateLinkInput{IncludeTransactions: true, IncludePersonalInfo: true})

		res, _ := f.svc.Resolve(ctx, c.Link.ID, "")
		if res.Outcome != Resolved {
			t.Fatalf("got %v", res.Outcome)
		}
		if len(res.Snapshot.Transactions) != 1 {
			t.Errorf("transactions = %v", res.Snapshot.Transactions)
		}
		if res.Snapshot.Person.PersonalInfo == nil || res.Snapshot.Person.PersonalInfo.Email != "ana@example.com" {
			t.Errorf("personal info = %+v", res.Snapshot.Person.PersonalInfo)
		}
	})

	t.Run("person removed", func(t *testing.T) {
		f := newShareFixture(t)
		c := f.create(t, CreateLinkInput{})
		if err := f.repo.DeletePerson(ctx, f.person.ID); err != nil {
			t.Fatal(err)
		}

		res, _ := f.svc.Resolve(ctx, c.Link.ID, "")
		if res.Outcome != NotFound {
			t.Errorf("got %v, want NotFound", res.Outcome)
		}
		if f.views(t, c.Link.ID) != 0 {
			t.Error("unresolved link counted a view")
		}
	})

	t.Run("sample fallback", func(t *testing.T) {
		f := newShareFixture(t)
		c := f.create(t, CreateLinkInput{PersonID: "1", IncludeTransactions: true})

		res, _ := f.svc.Resolve(ctx, c.Link.ID, "")
		if res.Outcome != Resolved || res.Snapshot.Person.ID != "1" {
			t.Fatalf("got %+v", res)
		}
		if len(res.Snapshot.Transactions) == 0 {
			t.Error("sample transactions missing")
		}
	})
}

func TestResolvePasswordProtected(t *testing.T) {
	ctx := context.Background()
	f := newShareFixture(t)
	c := f.create(t, CreateLinkInput{Protect: true})

	res, _ := f.svc.ResolveToken(ctx, c.Token, "")
	if res.Outcome != PasswordRequired {
		t.Errorf("no password: got %v", res.Outcome)
	}

	for i := 0; i < 3; i++ {
		res, err := f.svc.ResolveToken(ctx, c.Token, "wrong-password")
		if err != nil || res.Outcome != PasswordRejected {
			t.Errorf("attempt %d: got %v, %v", i+1, res.Outcome, err)
		}
	}
	if f.views(t, c.Link.ID) != 0 {
		t.Error("failed attempts counted views")
	}

	res, err := f.svc.ResolveToken(ctx, c.Token, c.Password)
	if err != nil || res.Outcome != Resolved {
		t.Fatalf("right password after failures: got %v, %v", res.Outcome, err)
	}
	if f.views(t, c.Link.ID) != 1 || f.repo.increments != 1 {
		t.Errorf("views = %d, increments = %d", f.views(t, c.Link.ID), f.repo.increments)
	}
}

func TestResolveTokenMismatchedClaims(t *testing.T) {
	tests := []struct {
		name  string
		forge func(*core.SharedLink)
	}{
		{"other person", func(l *core.SharedLink) { l.PersonID = "1" }},
		{"extended expiry", func(l *core.SharedLink) { l.ExpiresAt = l.ExpiresAt.AddDate(1, 0, 0) }},
		{"no expiry", func(l *core.SharedLink) { l.ExpiresAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newShareFixture(t)
			c := f.create(t, CreateLinkInput{})

			signer, _ := share.NewSigner(testKey)
			forged := c.Link
			tt.forge(&forged)
			token, err := signer.Sign(forged)
			if err != nil {
				t.Fatal(err)
			}

			res, _ := f.svc.ResolveToken(ctx, token, "")
			if res.Outcome != NotFound {
				t.Errorf("got %v, want NotFound", res.Outcome)
			}
			if f.views(t, c.Link.ID) != 0 {
				t.Error("mismatched token counted a view")
			}
		})
	}
}

func TestLinksListDeleteSummary(t *testing.T) {
	ctx := context.Background()
	f := newShareFixture(t)
	a := f.create(t, CreateLinkInput{Protect: true, ExpiresIn: time.Hour})
	f.create(t, CreateLinkInput{ExpiresIn: time.Minute})

	if _, err := f.svc.Resolve(ctx, a.Link.ID, a.Password); err != nil {
		t.Fatal(err)
	}
	f.now = f.now.Add(10 * time.Minute)

	sum, err := f.svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != 2 || sum.Active != 1 || sum.TotalViews != 1 {
		t.Errorf("summary = %+v", sum)
	}

	links, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, l := range links {
		if l.PasswordHash != "" {
			t.Errorf("List leaked verifier of %s", l.ID)
		}
	}

	if err := f.svc.Delete(ctx, a.Link.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	res, _ := f.svc.Resolve(ctx, a.Link.ID, a.Password)
	if res.Outcome != NotFound {
		t.Errorf("deleted link resolved as %v", res.Outcome)
	}
	if err := f.svc.Delete(ctx, a.Link.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
