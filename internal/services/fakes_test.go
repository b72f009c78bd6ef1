package services

import (
	"context"
	"sync"
	"time"

	"loantracker/internal/core"
	"loantracker/internal/store/memory"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// countingRepo counts writes on top of the memory store.
type countingRepo struct {
	*memory.Store

	mu         sync.Mutex
	savePerson int
	saveLedger int
	increments int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{Store: memory.New()}
}

func (r *countingRepo) SavePerson(ctx context.Context, p core.Person) error {
	r.mu.Lock()
	r.savePerson++
	r.mu.Unlock()
	return r.Store.SavePerson(ctx, p)
}

func (r *countingRepo) SaveLedger(ctx context.Context, p core.Person, txs []core.Transaction) error {
	r.mu.Lock()
	r.saveLedger++
	r.mu.Unlock()
	return r.Store.SaveLedger(ctx, p, txs)
}

func (r *countingRepo) IncrementViews(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	r.increments++
	r.mu.Unlock()
	return r.Store.IncrementViews(ctx, id)
}

// racingRepo runs afterList once, between reading people and returning them.
type racingRepo struct {
	*countingRepo
	afterList func()
}

func (r *racingRepo) ListPeople(ctx context.Context) ([]core.Person, error) {
	people, err := r.countingRepo.ListPeople(ctx)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return people, err
}

func (r *countingRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.savePerson + r.saveLedger
}

type fakePublisher struct {
	mu        sync.Mutex
	updated   []core.Person
	deleted   []string
	reminders []core.Transaction
	err       error
}

func (f *fakePublisher) PublishLedgerUpdated(_ context.Context, p core.Person) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, p)
	return f.err
}

func (f *fakePublisher) PublishPersonDeleted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakePublisher) PublishPaymentReminder(_ context.Context, _ core.Person, tx core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, tx)
	return f.err
}

func money(cents int64) core.Money { return core.Money{Cents: cents} }
