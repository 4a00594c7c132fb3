package amqp

import (
	"testing"
	"time"
)

func TestNewEntrySyncMessage(t *testing.T) {
	msg := NewEntrySyncMessage(42)
	if msg.Position != 42 {
		t.Errorf("Position = %v, want 42", msg.Position)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestEntrySyncMessage_JSON(t *testing.T) {
	msg := &EntrySyncMessage{
		Position:  7,
		Timestamp: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC),
	}

	b, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := EntrySyncMessageFromJSON(b)
	if err != nil {
		t.Fatalf("EntrySyncMessageFromJSON() error = %v", err)
	}
	if parsed.Position != msg.Position {
		t.Errorf("Position = %v, want %v", parsed.Position, msg.Position)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestEntrySyncMessage_InvalidJSON(t *testing.T) {
	if _, err := EntrySyncMessageFromJSON([]byte(`{"position": "seven"}`)); err == nil {
		t.Error("invalid JSON must fail")
	}
}
