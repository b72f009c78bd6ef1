// Package export writes the people index as a downloadable JSON document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"loantracker/internal/core"
)

// Document is the export layout. People keep their stored order.
type Document struct {
	ExportedAt time.Time     `json:"exportedAt"`
	People     []core.Person `json:"people"`
}

// Filename names the export for the calendar day of now.
func Filename(now time.Time) string {
	return fmt.Sprintf("loan-tracker-export-%s.json", now.Format("2006-01-02"))
}

// Write encodes people as an indented Document.
func Write(w io.Writer, people []core.Person, now time.Time) error {
	if people == nil {
		people = []core.Person{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{ExportedAt: now.UTC(), People: people}); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Read decodes a document produced by Write.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", core.ErrStoreUnreadable, err)
	}
	return doc, nil
}
