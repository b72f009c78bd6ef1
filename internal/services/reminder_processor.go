package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loantracker/internal/core"
	"loantracker/internal/store"
)

// ReminderWindow decides whether a scheduled payment is close enough to send
// a reminder for it.
type ReminderWindow interface {
	Due(paymentDate, now time.Time) bool
}

// DayAheadWindow fires for payments due within the next 24 hours.
type DayAheadWindow struct{}

func (DayAheadWindow) Due(paymentDate, now time.Time) bool {
	return paymentDate.After(now) && paymentDate.Sub(now) <= 24*time.Hour
}

// WeekAheadWindow fires for payments due within the next seven days.
type WeekAheadWindow struct{}

func (WeekAheadWindow) Due(paymentDate, now time.Time) bool {
	return paymentDate.After(now) && paymentDate.Sub(now) <= 7*24*time.Hour
}

var reminderWindows = map[string]ReminderWindow{
	"daily":  DayAheadWindow{},
	"weekly": WeekAheadWindow{},
}

// GetReminderWindow returns the window registered under name.
func GetReminderWindow(name string) (ReminderWindow, error) {
	w, ok := reminderWindows[name]
	if !ok {
		return nil, fmt.Errorf("unknown reminder window: %s", name)
	}
	return w, nil
}

type ReminderPublisher interface {
	PublishPaymentReminder(ctx context.Context, p core.Person, tx core.Transaction) error
}

// ReminderProcessor publishes a reminder for each upcoming scheduled payment
// that falls inside the window.
type ReminderProcessor struct {
	ledger    store.LedgerReader
	publisher ReminderPublisher
	window    ReminderWindow
}

func NewReminderProcessor(ledger store.LedgerReader, publisher ReminderPublisher, window ReminderWindow) *ReminderProcessor {
	if window == nil {
		window = DayAheadWindow{}
	}
	return &ReminderProcessor{
		ledger:    ledger,
		publisher: publisher,
		window:    window,
	}
}

// ProcessDue returns the number of reminders published.
func (p *ReminderProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.ledger == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	people, err := p.ledger.ListPeople(ctx)
	if err != nil {
		return 0, fmt.Errorf("list people: %w", err)
	}

	sent := 0
	for _, person := range people {
		if person.Status != core.StatusPending {
			continue
		}
		txs, err := p.ledger.ListTransactions(ctx, person.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read transactions for reminders",
				"person_id", person.ID,
				"error", err)
			continue
		}
		for _, tx := range core.UpcomingScheduled(txs, now) {
			if !p.window.Due(tx.Date, now) {
				continue
			}
			if err := p.publisher.PublishPaymentReminder(ctx, person, tx); err != nil {
				slog.ErrorContext(ctx, "Failed to publish payment reminder",
					"person_id", person.ID,
					"transaction_id", tx.ID,
					"error", err)
				continue
			}
			sent++
		}
	}

	slog.InfoContext(ctx, "Payment reminders processed",
		"people", len(people),
		"sent", sent,
		"processing_date", now.Format("2006-01-02"))
	return sent, nil
}
