// Package store declares the repository ports every backend implements.
package store

import (
	"context"

	"loantracker/internal/core"
)

// Ports for outbound adapters.
type (
	PersonReader interface {
		// ListPeople returns the people index in insertion order.
		ListPeople(ctx context.Context) ([]core.Person, error)
		// GetPerson returns core.ErrNotFound when id is unknown.
		GetPerson(ctx context.Context, id string) (core.Person, error)
	}

	PersonWriter interface {
		// SavePerson inserts p or replaces the stored record with the same id.
		SavePerson(ctx context.Context, p core.Person) error
		// DeletePerson removes the person together with its transactions.
		DeletePerson(ctx context.Context, id string) error
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context, personID string) ([]core.Transaction, error)
		// SaveLedger persists the person record and its full transaction list
		// as one write.
		SaveLedger(ctx context.Context, p core.Person, txs []core.Transaction) error
	}

	LinkStore interface {
		ListLinks(ctx context.Context) ([]core.SharedLink, error)
		GetLink(ctx context.Context, id string) (core.SharedLink, error)
		SaveLink(ctx context.Context, l core.SharedLink) error
		DeleteLink(ctx context.Context, id string) error
		// IncrementViews atomically adds one view and returns the new count.
		IncrementViews(ctx context.Context, id string) (int64, error)
	}

	// LedgerReader is the read side needed to render a person snapshot.
	LedgerReader interface {
		PersonReader
		ListTransactions(ctx context.Context, personID string) ([]core.Transaction, error)
	}

	Repository interface {
		PersonReader
		PersonWriter
		TransactionStore
		LinkStore
	}
)
