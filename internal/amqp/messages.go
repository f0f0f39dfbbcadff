package amqp

import (
	"encoding/json"
	"time"
)

// RecordCreatedMessage announces that an expense record was written.
// It carries only the id and date; the worker reads everything else
// from the database.
type RecordCreatedMessage struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordCreatedMessage(id int64, date string) *RecordCreatedMessage {
	return &RecordCreatedMessage{
		ID:        id,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	var msg RecordCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
