package events

import (
	"encoding/json"
	"time"

	"finvault/internal/core"
)

// TransactionCreatedMessage announces a transaction accepted by the
// transactions service. Amounts travel as decimal strings.
type TransactionCreatedMessage struct {
	TransactionID int64                `json:"transaction_id"`
	UserID        string               `json:"user_id"`
	Type          core.TransactionType `json:"type"`
	Amount        string               `json:"amount"`
	Category      string               `json:"category"`
	Date          string               `json:"date"`
	HasImage      bool                 `json:"has_image"`
	Timestamp     time.Time            `json:"timestamp"`
}

// NewTransactionCreatedMessage describes created. submitted fills in what
// the backend response left out.
func NewTransactionCreatedMessage(userID string, submitted core.NewTransaction, created core.Transaction) *TransactionCreatedMessage {
	msg := &TransactionCreatedMessage{
		TransactionID: created.ID,
		UserID:        userID,
		Type:          submitted.Type,
		Amount:        submitted.AmountString(),
		Category:      submitted.Category,
		Date:          submitted.Date,
		HasImage:      submitted.Image != nil,
		Timestamp:     time.Now(),
	}
	if created.Type != "" {
		msg.Type = created.Type
	}
	if !created.Amount.IsZero() {
		msg.Amount = created.Amount.String()
	}
	return msg
}

func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
