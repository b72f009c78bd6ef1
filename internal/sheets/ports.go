package sheets

import (
	"context"

	"loantracker/internal/core"
)

// Ports for the spreadsheet mirror of the people index.
type (
	PeopleWriter interface {
		// UpsertPerson writes the row of p, appending it when missing.
		UpsertPerson(ctx context.Context, p core.Person) error
		DeletePerson(ctx context.Context, personID string) error
	}

	PeopleExporter interface {
		// ExportPeople replaces the whole sheet with people.
		ExportPeople(ctx context.Context, people []core.Person) error
	}

	Mirror interface {
		PeopleWriter
		PeopleExporter
	}
)
