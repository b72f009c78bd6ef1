package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the aggregate over every tracked person.
type Portfolio struct {
	TotalLoaned  Money `json:"totalLoaned"`
	TotalPaid    Money `json:"totalPaid"`
	TotalBalance Money `json:"totalBalance"`
	People       int   `json:"people"`
	WithPending  int   `json:"withPending"`
	WithPayments int   `json:"withPayments"`
	ProgressPct  int   `json:"progressPercent"`
}

// LinksSummary describes the shared-links index.
type LinksSummary struct {
	Total      int   `json:"total"`
	Active     int   `json:"active"`
	TotalViews int64 `json:"totalViews"`
}

// Summarize sums the stored totals of people. Sums past the int64 range fail
// with ErrAmountOverflow.
func Summarize(people []Person) (Portfolio, error) {
	var (
		pf  Portfolio
		err error
	)
	for _, p := range people {
		if pf.TotalLoaned, err = pf.TotalLoaned.Add(p.TotalLoaned); err != nil {
			return Portfolio{}, fmt.Errorf("loaned by %s: %w", p.ID, err)
		}
		if pf.TotalPaid, err = pf.TotalPaid.Add(p.TotalPaid); err != nil {
			return Portfolio{}, fmt.Errorf("paid by %s: %w", p.ID, err)
		}
		if pf.TotalBalance, err = pf.TotalBalance.Add(p.Balance); err != nil {
			return Portfolio{}, fmt.Errorf("balance of %s: %w", p.ID, err)
		}
		pf.People++
		if p.Status == StatusPending {
			pf.WithPending++
		}
		if p.TotalPaid.Cents > 0 {
			pf.WithPayments++
		}
	}
	pf.ProgressPct = progress(pf.TotalPaid, pf.TotalLoaned)
	return pf, nil
}

// Progress is the share of the loaned amount already paid back, as a whole
// percentage capped at 100. A person with nothing loaned has 0 progress.
func Progress(p Person) int {
	return progress(p.TotalPaid, p.TotalLoaned)
}

func progress(paid, loaned Money) int {
	if loaned.Cents <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(paid.Cents).Mul(hundred).
		DivRound(decimal.NewFromInt(loaned.Cents), 0).IntPart()
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}

// LastPayment returns the most recent payment dated on or before now.
func LastPayment(txs []Transaction, now time.Time) (Transaction, bool) {
	var (
		last  Transaction
		found bool
	)
	for _, tx := range txs {
		if tx.Kind != Payment || tx.Date.After(now) {
			continue
		}
		if !found || tx.Date.After(last.Date) {
			last, found = tx, true
		}
	}
	return last, found
}

// SummarizeLinks counts active links and total views at now.
func SummarizeLinks(links []SharedLink, now time.Time) LinksSummary {
	s := LinksSummary{Total: len(links)}
	for _, l := range links {
		if !l.Expired(now) {
			s.Active++
		}
		s.TotalViews += l.Views
	}
	return s
}
