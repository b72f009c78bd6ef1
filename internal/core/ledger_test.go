package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func tx(id string, k Kind, cents int64) Transaction {
	return Transaction{
		ID:          id,
		Kind:        k,
		Amount:      Money{Cents: cents},
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: id,
	}
}

func mustAggregate(t *testing.T, p Person, txs []Transaction) Person {
	t.Helper()
	got, err := Aggregate(p, txs)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return got
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name        string
		txs         []Transaction
		wantLoaned  int64
		wantPaid    int64
		wantBalance int64
		wantStatus  Status
	}{
		{
			name:       "no transactions",
			wantStatus: StatusPaid,
		},
		{
			name:        "loans with partial payment",
			txs:         []Transaction{tx("a", Loan, 100000), tx("b", Loan, 50000), tx("c", Payment, 50000)},
			wantLoaned:  150000,
			wantPaid:    50000,
			wantBalance: 100000,
			wantStatus:  StatusPending,
		},
		{
			name:        "paid off exactly",
			txs:         []Transaction{tx("a", Loan, 75000), tx("b", Payment, 25000), tx("c", Payment, 25000), tx("d", Payment, 25000)},
			wantLoaned:  75000,
			wantPaid:    75000,
			wantBalance: 0,
			wantStatus:  StatusPaid,
		},
		{
			name:        "overpayment is not clamped",
			txs:         []Transaction{tx("a", Loan, 1000), tx("b", Payment, 1500)},
			wantLoaned:  1000,
			wantPaid:    1500,
			wantBalance: -500,
			wantStatus:  StatusPaid,
		},
		{
			name:        "payments only",
			txs:         []Transaction{tx("a", Payment, 300)},
			wantPaid:    300,
			wantBalance: -300,
			wantStatus:  StatusPaid,
		},
		{
			name:        "one cent owed",
			txs:         []Transaction{tx("a", Loan, 1001), tx("b", Payment, 1000)},
			wantLoaned:  1001,
			wantPaid:    1000,
			wantBalance: 1,
			wantStatus:  StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustAggregate(t, Person{ID: "p1", Name: "Carlos"}, tt.txs)
			if got.TotalLoaned.Cents != tt.wantLoaned {
				t.Errorf("TotalLoaned = %d, want %d", got.TotalLoaned.Cents, tt.wantLoaned)
			}
			if got.TotalPaid.Cents != tt.wantPaid {
				t.Errorf("TotalPaid = %d, want %d", got.TotalPaid.Cents, tt.wantPaid)
			}
			if got.Balance.Cents != tt.wantBalance {
				t.Errorf("Balance = %d, want %d", got.Balance.Cents, tt.wantBalance)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.Balance.Cents != got.TotalLoaned.Cents-got.TotalPaid.Cents {
				t.Errorf("balance %d does not equal loaned - paid", got.Balance.Cents)
			}
			if got.ID != "p1" || got.Name != "Carlos" {
				t.Errorf("identity fields changed: %+v", got)
			}
		})
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	txs := []Transaction{tx("a", Loan, 100000), tx("b", Payment, 40000)}
	once := mustAggregate(t, Person{ID: "p1"}, txs)
	twice := mustAggregate(t, once, txs)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second aggregation changed the record: %+v vs %+v", once, twice)
	}
	if !SameTotals(once, twice) {
		t.Fatalf("SameTotals should hold for identical records")
	}
}

func TestSameTotals(t *testing.T) {
	a := mustAggregate(t, Person{ID: "p1"}, []Transaction{tx("a", Loan, 100)})
	b := mustAggregate(t, Person{ID: "p1"}, []Transaction{tx("a", Loan, 200)})
	if SameTotals(a, b) {
		t.Fatalf("different totals reported as equal")
	}
	b.Name = "renamed"
	if !SameTotals(a, mustAggregate(t, b, []Transaction{tx("a", Loan, 100)})) {
		t.Fatalf("non-derived fields must not affect SameTotals")
	}
}

func TestRemoveTransactionReducesTotals(t *testing.T) {
	txs := []Transaction{tx("a", Loan, 100000), tx("b", Loan, 50000), tx("c", Payment, 50000)}
	before := mustAggregate(t, Person{}, txs)

	rest, ok := RemoveTransaction(txs, "b")
	if !ok {
		t.Fatalf("transaction b should be found")
	}
	if len(txs) != 3 {
		t.Fatalf("input slice was modified")
	}
	after := mustAggregate(t, before, rest)
	if before.TotalLoaned.Cents-after.TotalLoaned.Cents != 50000 {
		t.Fatalf("TotalLoaned should drop by 50000, got %d -> %d", before.TotalLoaned.Cents, after.TotalLoaned.Cents)
	}
	if after.TotalPaid != before.TotalPaid {
		t.Fatalf("TotalPaid should be unchanged")
	}

	rest, ok = RemoveTransaction(rest, "c")
	if !ok {
		t.Fatalf("transaction c should be found")
	}
	after = mustAggregate(t, after, rest)
	if after.TotalPaid.Cents != 0 {
		t.Fatalf("TotalPaid should drop to 0, got %d", after.TotalPaid.Cents)
	}

	if _, ok := RemoveTransaction(rest, "missing"); ok {
		t.Fatalf("missing id reported as found")
	}
}

func TestOverpaid(t *testing.T) {
	p := mustAggregate(t, Person{}, []Transaction{tx("a", Loan, 100), tx("b", Payment, 150)})
	if !p.Overpaid() || p.Status != StatusPaid {
		t.Fatalf("expected overpaid with status Paid, got %+v", p)
	}
}

func TestAggregateRejects(t *testing.T) {
	ceiling := Money{Cents: maxCents}
	atCeiling := make([]Transaction, 101)
	paidAtCeiling := make([]Transaction, 101)
	for i := range atCeiling {
		atCeiling[i] = Transaction{ID: "l", Kind: Loan, Amount: ceiling}
		paidAtCeiling[i] = Transaction{ID: "p", Kind: Payment, Amount: ceiling}
	}

	tests := []struct {
		name    string
		txs     []Transaction
		wantErr error
	}{
		{"loans past the int64 range", atCeiling, ErrAmountOverflow},
		{"payments past the int64 range", paidAtCeiling, ErrInvalidAmount},
		{"amount above the ceiling", []Transaction{{ID: "a", Kind: Loan, Amount: Money{Cents: maxCents + 1}}}, ErrInvalidAmount},
		{"unknown kind", []Transaction{tx("a", Loan, 100), tx("b", Kind("Préstamo"), 100)}, ErrInvalidKind},
		{"negative amount", []Transaction{tx("a", Loan, 100), tx("b", Payment, -50)}, ErrInvalidAmount},
		{"zero amount", []Transaction{tx("a", Loan, 0)}, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Person{ID: "p1", Status: StatusPaid}
			got, err := Aggregate(in, tt.txs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != in {
				t.Fatalf("person changed on error: %+v", got)
			}
		})
	}

	t.Run("one hundred loans at the ceiling still fit", func(t *testing.T) {
		got := mustAggregate(t, Person{}, atCeiling[:100])
		if got.TotalLoaned.Cents != 100*maxCents || got.Status != StatusPending {
			t.Fatalf("unexpected totals %+v", got)
		}
	})
}
