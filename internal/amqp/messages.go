package amqp

import (
	"encoding/json"
	"time"
)

// EntrySyncMessage tells the worker to mirror one ledger entry to the
// spreadsheet. It carries only the position; the worker reads the entry
// from the local store.
type EntrySyncMessage struct {
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(position int) *EntrySyncMessage {
	return &EntrySyncMessage{
		Position:  position,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
