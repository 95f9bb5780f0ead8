package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerChangeMessage(t *testing.T) {
	msg := NewLedgerChangeMessage("txn-123", "user-a")

	if msg.TransactionID != "txn-123" {
		t.Errorf("NewLedgerChangeMessage() TransactionID = %v, want txn-123", msg.TransactionID)
	}
	if msg.UserID != "user-a" {
		t.Errorf("NewLedgerChangeMessage() UserID = %v, want user-a", msg.UserID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewLedgerChangeMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewLedgerChangeMessage() Timestamp should be recent")
	}
}

func TestLedgerChangeMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerChangeMessage{
		TransactionID: "txn-123",
		UserID:        "user-a",
		Timestamp:     timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := LedgerChangeMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerChangeMessageFromJSON() error = %v", err)
	}

	if parsedMsg.TransactionID != msg.TransactionID {
		t.Errorf("Parsed TransactionID = %v, want %v", parsedMsg.TransactionID, msg.TransactionID)
	}
	if parsedMsg.UserID != msg.UserID {
		t.Errorf("Parsed UserID = %v, want %v", parsedMsg.UserID, msg.UserID)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestLedgerChangeMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"transactionId": 42, "userId": true`)

	_, err := LedgerChangeMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("LedgerChangeMessageFromJSON() should fail with invalid JSON")
	}
}
