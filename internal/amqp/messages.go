package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangeMessage announces that a user's transaction set changed.
// It carries only identifiers, consumers re-query the store for the
// full batch instead of trusting a payload that may be stale.
type LedgerChangeMessage struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage creates a change announcement for one transaction.
func NewLedgerChangeMessage(transactionID, userID string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
