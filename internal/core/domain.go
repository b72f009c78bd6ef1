package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Loan    Kind = "loan"
	Payment Kind = "payment"
)

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
)

type (
	// Kind is the closed set of transaction kinds.
	Kind string

	Status string

	Money struct {
		Cents int64
	}

	// PersonalInfo is optional contact data captured when a person is added.
	PersonalInfo struct {
		Email   string `json:"email,omitempty"`
		Phone   string `json:"phone,omitempty"`
		Address string `json:"address,omitempty"`
		Notes   string `json:"notes,omitempty"`
	}

	Person struct {
		ID           string        `json:"id"`
		Name         string        `json:"name"`
		TotalLoaned  Money         `json:"totalLoaned"`
		TotalPaid    Money         `json:"totalPaid"`
		Balance      Money         `json:"balance"`
		Status       Status        `json:"status"`
		PersonalInfo *PersonalInfo `json:"personalInfo,omitempty"`
		CreatedAt    time.Time     `json:"createdAt"`
	}

	Transaction struct {
		ID          string    `json:"id"`
		PersonID    string    `json:"personId"`
		Kind        Kind      `json:"type"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
	}

	// SharedLink is a time-boxed read-only reference to one person's record.
	// PasswordHash holds a bcrypt verifier; the cleartext is never stored.
	SharedLink struct {
		ID                  string    `json:"id"`
		PersonID            string    `json:"personId"`
		PersonName          string    `json:"personName"`
		URL                 string    `json:"url"`
		CreatedAt           time.Time `json:"createdAt"`
		ExpiresAt           time.Time `json:"expiresAt"`
		IncludeTransactions bool      `json:"includeTransactions"`
		IncludePersonalInfo bool      `json:"includePersonalInfo"`
		PasswordProtected   bool      `json:"isPasswordProtected"`
		PasswordHash        string    `json:"passwordHash,omitempty"`
		Views               int64     `json:"views"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnreadable  = errors.New("store unreadable")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidExpiry    = errors.New("expiry must be after creation")
	ErrTooLong          = errors.New("value too long")

	// ErrAmountOverflow is an ErrInvalidAmount for totals past the int64 range.
	ErrAmountOverflow = fmt.Errorf("total out of range: %w", ErrInvalidAmount)
)

func (k Kind) Validate() error {
	switch k {
	case Loan, Payment:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseKind accepts the English and Spanish labels used by the web client.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loan", "préstamo", "prestamo":
		return Loan, nil
	case "payment", "pago":
		return Payment, nil
	default:
		return "", ErrInvalidKind
	}
}

// UnmarshalJSON decodes any label ParseKind accepts, so ledgers written with
// the Spanish labels read back as Loan and Payment. Unknown labels fail.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidKind
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return fmt.Errorf("%q: %w", s, err)
	}
	*k = parsed
	return nil
}

// UnmarshalJSON accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date,
// which is read as midnight UTC.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		t.Date = time.Time{}
		return nil
	}
	d, err := time.Parse(time.RFC3339Nano, aux.Date)
	if err != nil {
		if d, err = time.Parse(time.DateOnly, aux.Date); err != nil {
			return fmt.Errorf("date %q: %w", aux.Date, ErrInvalidDate)
		}
	}
	t.Date = d
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 100 {
		return fmt.Errorf("name: %w (max 100 characters)", ErrTooLong)
	}
	if p.PersonalInfo != nil && len(p.PersonalInfo.Notes) > 1000 {
		return fmt.Errorf("notes: %w (max 1000 characters)", ErrTooLong)
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("description: %w (max 200 characters)", ErrTooLong)
	}
	return nil
}

// Expired reports whether the link can no longer be resolved at now.
func (l SharedLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// NewPerson returns a person with zero totals.
func NewPerson(id, name string, info *PersonalInfo, now time.Time) Person {
	return Person{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Status:       StatusPaid,
		PersonalInfo: info,
		CreatedAt:    now,
	}
}
