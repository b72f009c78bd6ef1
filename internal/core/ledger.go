package core

import "fmt"

// Aggregate recomputes the derived totals of p from its full transaction list.
// Balance is signed: a negative value means the person paid back more than
// was loaned. Status is Pending only while something is still owed.
//
// A transaction with an unknown kind or a non-positive amount fails with
// ErrInvalidKind or ErrInvalidAmount, and totals that leave the int64 range
// fail with ErrAmountOverflow. p is returned unchanged on error.
func Aggregate(p Person, txs []Transaction) (Person, error) {
	var loaned, paid Money
	for _, tx := range txs {
		if err := tx.Amount.Validate(); err != nil {
			return p, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		var err error
		switch tx.Kind {
		case Loan:
			loaned, err = loaned.Add(tx.Amount)
		case Payment:
			paid, err = paid.Add(tx.Amount)
		default:
			err = ErrInvalidKind
		}
		if err != nil {
			return p, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}

	// both totals are non-negative, so the difference cannot overflow
	p.TotalLoaned = loaned
	p.TotalPaid = paid
	p.Balance = loaned.Sub(paid)
	p.Status = StatusFor(p.Balance)
	return p, nil
}

// StatusFor maps a balance to its status. Zero and negative balances are Paid.
func StatusFor(balance Money) Status {
	if balance.Cents > 0 {
		return StatusPending
	}
	return StatusPaid
}

// SameTotals reports whether the derived fields of a and b are identical.
func SameTotals(a, b Person) bool {
	return a.TotalLoaned == b.TotalLoaned &&
		a.TotalPaid == b.TotalPaid &&
		a.Balance == b.Balance &&
		a.Status == b.Status
}

// Overpaid reports a negative balance. Status stays Paid in that case.
func (p Person) Overpaid() bool {
	return p.Balance.Cents < 0
}

// RemoveTransaction returns txs without the transaction with the given id and
// whether it was present. The input slice is not modified.
func RemoveTransaction(txs []Transaction, id string) ([]Transaction, bool) {
	out := make([]Transaction, 0, len(txs))
	found := false
	for _, tx := range txs {
		if tx.ID == id {
			found = true
			continue
		}
		out = append(out, tx)
	}
	return out, found
}
