// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loantracker/internal/cache"
	"loantracker/internal/core"
	"loantracker/internal/metrics"
	"loantracker/internal/store"
)

// Publisher announces ledger changes. Implemented by the AMQP client.
type Publisher interface {
	PublishLedgerUpdated(ctx context.Context, p core.Person) error
	PublishPersonDeleted(ctx context.Context, personID string) error
}

type (
	PersonInput struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		Notes   string `json:"notes"`
	}

	TransactionInput struct {
		Kind        core.Kind
		Amount      core.Money
		Date        time.Time
		Description string
	}

	// Detail is the person view with the derived display values.
	Detail struct {
		Person      core.Person        `json:"person"`
		Progress    int                `json:"progressPercent"`
		Overpaid    bool               `json:"overpaid"`
		LastPayment *core.Transaction  `json:"lastPayment,omitempty"`
		Upcoming    []core.Transaction `json:"upcoming"`
	}
)

const portfolioKey = "portfolio"

// LedgerService owns every write to people and transactions. Read-modify-write
// commands run one at a time.
type LedgerService struct {
	repo      store.Repository
	publisher Publisher
	metrics   *metrics.Metrics
	portfolio cache.Cache[core.Portfolio]
	now       func() time.Time

	mu sync.Mutex

	// cacheMu guards generation and the portfolio entry. generation moves on
	// every write so a summary computed across a write is never cached.
	cacheMu    sync.Mutex
	generation uint64
}

type LedgerOption func(*LedgerService)

func WithPublisher(p Publisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLedgerMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithPortfolioCache caches the portfolio summary between writes.
func WithPortfolioCache(c cache.Cache[core.Portfolio]) LedgerOption {
	return func(s *LedgerService) { s.portfolio = c }
}

func NewLedgerService(repo store.Repository, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) AddPerson(ctx context.Context, in PersonInput) (core.Person, error) {
	p := core.NewPerson(uuid.NewString(), in.Name, in.info(), s.now())
	if err := p.Validate(); err != nil {
		return core.Person{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveLedger(ctx, p, nil); err != nil {
		return core.Person{}, fmt.Errorf("save person: %w", err)
	}
	s.written(ctx, "add_person", p)
	slog.InfoContext(ctx, "Person added", "person_id", p.ID)
	return p, nil
}

func (s *LedgerService) GetPerson(ctx context.Context, id string) (core.Person, error) {
	return s.repo.GetPerson(ctx, id)
}

func (s *LedgerService) ListPeople(ctx context.Context) ([]core.Person, error) {
	return s.repo.ListPeople(ctx)
}

// DeletePerson removes the person and every transaction of that person.
func (s *LedgerService) DeletePerson(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetPerson(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeletePerson(ctx, id); err != nil {
		return fmt.Errorf("delete person %s: %w", id, err)
	}
	s.invalidate()
	s.metrics.LedgerWrite("delete_person")
	if s.publisher != nil {
		if err := s.publisher.PublishPersonDeleted(ctx, id); err != nil {
			s.publishFailed(ctx, id, err)
		}
	}
	slog.InfoContext(ctx, "Person deleted", "person_id", id)
	return nil
}

func (s *LedgerService) Transactions(ctx context.Context, personID string) ([]core.Transaction, error) {
	if _, err := s.repo.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, personID)
}

// RecordTransaction appends a transaction and returns the re-aggregated person.
func (s *LedgerService) RecordTransaction(ctx context.Context, personID string, in TransactionInput) (core.Person, core.Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return core.Person{}, core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	tx := core.Transaction{
		ID:          id.String(),
		PersonID:    personID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
	}
	if err := tx.Validate(); err != nil {
		return core.Person{}, core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, txs, err := s.load(ctx, personID)
	if err != nil {
		return core.Person{}, core.Transaction{}, err
	}
	txs = append(txs, tx)
	p, err = core.Aggregate(p, txs)
	if err != nil {
		return core.Person{}, core.Transaction{}, fmt.Errorf("ledger of %s: %w", personID, err)
	}
	if err := s.repo.SaveLedger(ctx, p, txs); err != nil {
		return core.Person{}, core.Transaction{}, fmt.Errorf("save ledger of %s: %w", personID, err)
	}
	s.written(ctx, "record_transaction", p)
	slog.InfoContext(ctx, "Transaction recorded",
		"person_id", personID,
		"transaction_id", tx.ID,
		"kind", tx.Kind,
		"amount", tx.Amount.String())
	return p, tx, nil
}

// DeleteTransaction removes one transaction and returns the re-aggregated person.
func (s *LedgerService) DeleteTransaction(ctx context.Context, personID, txID string) (core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, txs, err := s.load(ctx, personID)
	if err != nil {
		return core.Person{}, err
	}
	txs, found := core.RemoveTransaction(txs, txID)
	if !found {
		return core.Person{}, fmt.Errorf("transaction %s: %w", txID, core.ErrNotFound)
	}
	p, err = core.Aggregate(p, txs)
	if err != nil {
		return core.Person{}, fmt.Errorf("ledger of %s: %w", personID, err)
	}
	if err := s.repo.SaveLedger(ctx, p, txs); err != nil {
		return core.Person{}, fmt.Errorf("save ledger of %s: %w", personID, err)
	}
	s.written(ctx, "delete_transaction", p)
	slog.InfoContext(ctx, "Transaction deleted", "person_id", personID, "transaction_id", txID)
	return p, nil
}

// Recompute re-aggregates the stored transactions of a person. When the
// stored totals are already current nothing is written or published.
func (s *LedgerService) Recompute(ctx context.Context, personID string) (core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, txs, err := s.load(ctx, personID)
	if err != nil {
		return core.Person{}, err
	}
	updated, err := core.Aggregate(p, txs)
	if err != nil {
		return core.Person{}, fmt.Errorf("ledger of %s: %w", personID, err)
	}
	if core.SameTotals(p, updated) {
		s.metrics.RecomputeSkipped()
		return p, nil
	}
	if err := s.repo.SavePerson(ctx, updated); err != nil {
		return core.Person{}, fmt.Errorf("save person %s: %w", personID, err)
	}
	s.written(ctx, "recompute", updated)
	return updated, nil
}

// RecomputeAll runs Recompute for every person and returns how many changed.
func (s *LedgerService) RecomputeAll(ctx context.Context) (int, error) {
	people, err := s.repo.ListPeople(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	var errs []error
	for _, p := range people {
		updated, err := s.Recompute(ctx, p.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("recompute %s: %w", p.ID, err))
			continue
		}
		if !core.SameTotals(p, updated) {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

func (s *LedgerService) Upcoming(ctx context.Context, personID string, now time.Time) ([]core.Transaction, error) {
	txs, err := s.Transactions(ctx, personID)
	if err != nil {
		return nil, err
	}
	return core.UpcomingScheduled(txs, now), nil
}

func (s *LedgerService) Detail(ctx context.Context, personID string) (Detail, error) {
	p, txs, err := s.load(ctx, personID)
	if err != nil {
		return Detail{}, err
	}
	now := s.now()
	d := Detail{
		Person:   p,
		Progress: core.Progress(p),
		Overpaid: p.Overpaid(),
		Upcoming: core.UpcomingScheduled(txs, now),
	}
	if last, ok := core.LastPayment(txs, now); ok {
		d.LastPayment = &last
	}
	return d, nil
}

func (s *LedgerService) Portfolio(ctx context.Context) (core.Portfolio, error) {
	if s.portfolio != nil {
		if pf, ok := s.portfolio.Get(portfolioKey); ok {
			return pf, nil
		}
	}
	gen := s.currentGeneration()
	people, err := s.repo.ListPeople(ctx)
	if err != nil {
		return core.Portfolio{}, err
	}
	pf, err := core.Summarize(people)
	if err != nil {
		return core.Portfolio{}, fmt.Errorf("portfolio: %w", err)
	}
	if s.portfolio != nil {
		s.cacheMu.Lock()
		if s.generation == gen {
			s.portfolio.Set(portfolioKey, pf)
		}
		s.cacheMu.Unlock()
	}
	return pf, nil
}

func (s *LedgerService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

func (s *LedgerService) load(ctx context.Context, personID string) (core.Person, []core.Transaction, error) {
	p, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return core.Person{}, nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, personID)
	if err != nil {
		return core.Person{}, nil, err
	}
	return p, txs, nil
}

// written runs after every successful ledger write.
func (s *LedgerService) written(ctx context.Context, command string, p core.Person) {
	s.invalidate()
	s.metrics.LedgerWrite(command)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerUpdated(ctx, p); err != nil {
		s.publishFailed(ctx, p.ID, err)
	}
}

// publishFailed logs without failing the request: the write already happened.
func (s *LedgerService) publishFailed(ctx context.Context, personID string, err error) {
	s.metrics.PublishFailed("ledger.updated")
	slog.ErrorContext(ctx, "Failed to publish ledger event", "person_id", personID, "error", err)
}

func (s *LedgerService) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if s.portfolio != nil {
		s.portfolio.Delete(portfolioKey)
	}
}

func (in PersonInput) info() *core.PersonalInfo {
	info := core.PersonalInfo{
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Notes:   strings.TrimSpace(in.Notes),
	}
	if info == (core.PersonalInfo{}) {
		return nil
	}
	return &info
}
