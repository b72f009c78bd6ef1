package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loantracker/internal/amqp"
	"loantracker/internal/core"
	"loantracker/internal/sheets"
	"loantracker/internal/store"
)

// SyncProcessor mirrors ledger changes into the spreadsheet. The repository is
// authoritative: message totals are only used when the person is gone.
type SyncProcessor struct {
	people store.PersonReader
	mirror sheets.Mirror
}

func NewSyncProcessor(people store.PersonReader, mirror sheets.Mirror) *SyncProcessor {
	return &SyncProcessor{
		people: people,
		mirror: mirror,
	}
}

// HandleLedgerUpdated is the AMQP consumer handler.
func (p *SyncProcessor) HandleLedgerUpdated(ctx context.Context, msg *amqp.LedgerUpdatedMessage) error {
	if p.mirror == nil {
		slog.WarnContext(ctx, "No sheet mirror configured, skipping ledger message",
			"person_id", msg.PersonID)
		return nil
	}

	if msg.Deleted {
		if err := p.mirror.DeletePerson(ctx, msg.PersonID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete person row %s: %w", msg.PersonID, err)
		}
		slog.InfoContext(ctx, "Deleted person from Google Sheets", "person_id", msg.PersonID)
		return nil
	}

	person, err := p.people.GetPerson(ctx, msg.PersonID)
	if errors.Is(err, core.ErrNotFound) {
		// deleted after the message was published; a later delete message follows
		slog.InfoContext(ctx, "Person no longer exists, skipping", "person_id", msg.PersonID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get person %s: %w", msg.PersonID, err)
	}

	if err := p.mirror.UpsertPerson(ctx, person); err != nil {
		return fmt.Errorf("upsert person row %s: %w", msg.PersonID, err)
	}
	slog.InfoContext(ctx, "Synced person to Google Sheets",
		"person_id", person.ID,
		"balance", person.Balance.String(),
		"status", person.Status)
	return nil
}

// FullSync rewrites the sheet from the people index and returns the row count.
func (p *SyncProcessor) FullSync(ctx context.Context) (int, error) {
	if p.mirror == nil {
		return 0, fmt.Errorf("no sheet mirror configured")
	}
	people, err := p.people.ListPeople(ctx)
	if err != nil {
		return 0, fmt.Errorf("list people: %w", err)
	}
	if err := p.mirror.ExportPeople(ctx, people); err != nil {
		return 0, fmt.Errorf("export people: %w", err)
	}
	slog.InfoContext(ctx, "Exported people to Google Sheets", "rows", len(people))
	return len(people), nil
}
