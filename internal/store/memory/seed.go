package memory

import (
	"fmt"
	"time"

	"loantracker/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleTx(id, personID string, k core.Kind, cents int64, at time.Time, desc string) core.Transaction {
	return core.Transaction{
		ID:          id,
		PersonID:    personID,
		Kind:        k,
		Amount:      core.Money{Cents: cents},
		Date:        at,
		Description: desc,
	}
}

// SampleSnapshot returns the demo portfolio shown to first-time users.
func SampleSnapshot() Snapshot {
	created := day(2023, time.November, 1)
	people := []core.Person{
		{ID: "1", Name: "Carlos Rodríguez", CreatedAt: created, PersonalInfo: &core.PersonalInfo{
			Email: "carlos@example.com", Phone: "+58 412 555 0101", Notes: "Prefers transfers on Fridays",
		}},
		{ID: "2", Name: "María González", CreatedAt: created},
		{ID: "3", Name: "Juan Pérez", CreatedAt: created},
		{ID: "4", Name: "Jose Castillo", CreatedAt: created},
		{ID: "5", Name: "Barbara", CreatedAt: created},
		{ID: "6", Name: "Jose", CreatedAt: created},
		{ID: "7", Name: "Keiber", CreatedAt: created},
		{ID: "8", Name: "Pedro", CreatedAt: created},
	}

	txs := map[string][]core.Transaction{
		"1": {
			sampleTx("101", "1", core.Loan, 100000, day(2023, time.December, 15), "Loan for car repair"),
			sampleTx("102", "1", core.Loan, 50000, day(2024, time.January, 20), "Loan for medical expenses"),
			sampleTx("103", "1", core.Payment, 50000, day(2024, time.February, 10), "First payment"),
		},
		"2": {
			sampleTx("201", "2", core.Loan, 75000, day(2023, time.November, 5), "Loan for a laptop"),
			sampleTx("202", "2", core.Payment, 25000, day(2023, time.December, 5), "First payment"),
			sampleTx("203", "2", core.Payment, 25000, day(2024, time.January, 5), "Second payment"),
			sampleTx("204", "2", core.Payment, 25000, day(2024, time.February, 5), "Final payment"),
		},
		"3": {
			sampleTx("301", "3", core.Loan, 200000, day(2024, time.January, 10), "Loan for university tuition"),
			sampleTx("302", "3", core.Payment, 50000, day(2024, time.February, 10), "First payment"),
		},
		"5": {
			sampleTx("501", "5", core.Loan, 30000, day(2024, time.March, 15), "Personal loan"),
		},
		"6": {
			sampleTx("601", "6", core.Loan, 381480, day(2024, time.March, 20), "Personal loan"),
		},
		"7": {
			sampleTx("701", "7", core.Loan, 278222, day(2024, time.April, 2), "Personal loan"),
		},
		"8": {
			sampleTx("801", "8", core.Loan, 240000, day(2024, time.May, 1), "Personal loan"),
			sampleTx("802", "8", core.Payment, 40000, day(2024, time.June, 1), "First payment"),
		},
	}

	// monthly installments
	for i := 0; i < 10; i++ {
		at := day(2023, time.December, 1).AddDate(0, i, 0)
		txs["4"] = append(txs["4"], sampleTx(fmt.Sprintf("4%02d", i+1), "4", core.Loan, 49646, at, "Installment amount"))
	}
	for i, at := range []time.Time{
		day(2023, time.December, 15),
		day(2025, time.January, 5),
		day(2025, time.February, 6),
		day(2025, time.March, 6),
	} {
		txs["4"] = append(txs["4"], sampleTx(fmt.Sprintf("4%02d", i+50), "4", core.Payment, 49646, at, "Payment "+at.Format("02/01/2006")))
	}

	return Snapshot{People: people, Transactions: txs}
}

// NewSeeded returns a store holding the sample portfolio.
func NewSeeded() *Store {
	s, err := NewFromSnapshot(SampleSnapshot())
	if err != nil {
		panic(fmt.Sprintf("sample snapshot: %v", err))
	}
	return s
}
