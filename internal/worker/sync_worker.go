package worker

import (
	"context"
	"log/slog"

	"loantracker/internal/amqp"
	"loantracker/internal/core"
)

// LedgerConsumer delivers ledger-updated events until ctx is done.
type LedgerConsumer interface {
	ConsumeWithReconnect(ctx context.Context, handler func(context.Context, *amqp.LedgerUpdatedMessage) error) error
}

// LedgerHandler applies one event to the mirror.
type LedgerHandler interface {
	HandleLedgerUpdated(ctx context.Context, msg *amqp.LedgerUpdatedMessage) error
}

// SyncWorker feeds ledger-updated events from the broker into the sheet mirror.
type SyncWorker struct {
	consumer LedgerConsumer
	handler  LedgerHandler
}

func NewSyncWorker(consumer LedgerConsumer, handler LedgerHandler) *SyncWorker {
	return &SyncWorker{consumer: consumer, handler: handler}
}

// Run consumes until ctx is cancelled. Handler errors are logged by the
// consumer, which nacks the delivery for redelivery.
func (w *SyncWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Sync worker started")
	err := w.consumer.ConsumeWithReconnect(ctx, w.handle)
	slog.InfoContext(ctx, "Sync worker stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *SyncWorker) handle(ctx context.Context, msg *amqp.LedgerUpdatedMessage) error {
	slog.InfoContext(ctx, "Processing ledger update",
		"person_id", msg.PersonID,
		"deleted", msg.Deleted)
	return w.handler.HandleLedgerUpdated(ctx, msg)
}

// LogReminderPublisher writes reminders to the log when no broker is configured.
type LogReminderPublisher struct{}

func (LogReminderPublisher) PublishPaymentReminder(ctx context.Context, p core.Person, tx core.Transaction) error {
	slog.InfoContext(ctx, "Scheduled payment due",
		"person_id", p.ID,
		"person", p.Name,
		"transaction_id", tx.ID,
		"amount", tx.Amount.String(),
		"date", tx.Date.Format("2006-01-02"))
	return nil
}
