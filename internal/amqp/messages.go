package amqp

import (
	"encoding/json"
	"time"

	"loantracker/internal/core"
)

// Routing keys on the direct exchange.
const (
	RoutingLedgerUpdated   = "ledger.updated"
	RoutingPaymentReminder = "payment.reminder"
)

// LedgerUpdatedMessage is published after a person's totals changed.
// The worker re-reads the person from storage; the totals are informative.
type LedgerUpdatedMessage struct {
	PersonID    string    `json:"personId"`
	TotalLoaned int64     `json:"totalLoaned"`
	TotalPaid   int64     `json:"totalPaid"`
	Balance     int64     `json:"balance"`
	Status      string    `json:"status"`
	Deleted     bool      `json:"deleted,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerUpdatedMessage builds a message from the updated aggregate.
func NewLedgerUpdatedMessage(p core.Person) *LedgerUpdatedMessage {
	return &LedgerUpdatedMessage{
		PersonID:    p.ID,
		TotalLoaned: p.TotalLoaned.Cents,
		TotalPaid:   p.TotalPaid.Cents,
		Balance:     p.Balance.Cents,
		Status:      string(p.Status),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerUpdatedMessageFromJSON creates a message from JSON bytes
func LedgerUpdatedMessageFromJSON(data []byte) (*LedgerUpdatedMessage, error) {
	var msg LedgerUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// PaymentReminderMessage announces a scheduled payment that is coming due.
type PaymentReminderMessage struct {
	PersonID      string    `json:"personId"`
	PersonName    string    `json:"personName"`
	TransactionID string    `json:"transactionId"`
	AmountCents   int64     `json:"amountCents"`
	DueDate       time.Time `json:"dueDate"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewPaymentReminderMessage(p core.Person, tx core.Transaction) *PaymentReminderMessage {
	return &PaymentReminderMessage{
		PersonID:      p.ID,
		PersonName:    p.Name,
		TransactionID: tx.ID,
		AmountCents:   tx.Amount.Cents,
		DueDate:       tx.Date,
		Description:   tx.Description,
		Timestamp:     time.Now(),
	}
}

func (m *PaymentReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
