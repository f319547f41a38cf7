package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageTypeRecordAppended is set as the AMQP type of every append event.
const MessageTypeRecordAppended = "ledger.record_appended"

// RecordAppended announces a row that has been appended to a ledger. It
// carries the header alongside the row so consumers need no schema.
type RecordAppended struct {
	ID          uuid.UUID `json:"id"`
	Store       string    `json:"store"`
	Ledger      string    `json:"ledger"`
	Kind        string    `json:"kind"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	Header      []string  `json:"header"`
	Row         []string  `json:"row"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRecordAppended creates a message with a fresh ID.
func NewRecordAppended(store, ledger, kind, submittedBy string, header, row []string) *RecordAppended {
	return &RecordAppended{
		ID:          uuid.New(),
		Store:       store,
		Ledger:      ledger,
		Kind:        kind,
		SubmittedBy: submittedBy,
		Header:      header,
		Row:         row,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordAppended) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordAppendedFromJSON creates a message from JSON bytes
func RecordAppendedFromJSON(data []byte) (*RecordAppended, error) {
	var msg RecordAppended
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
