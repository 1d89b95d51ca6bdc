package amqp

import (
	"encoding/json"
	"time"
)

// ObligationProcessedMessage announces that processing an obligation
// appended a pending transaction to the ledger. The posting worker
// consumes it to mark the transaction posted and attribute the spending
// to the matching budget; only id-level data travels on the wire, the
// worker fetches whatever else it needs from storage.
type ObligationProcessedMessage struct {
	TransactionID string    `json:"transaction_id"`
	ObligationID  string    `json:"obligation_id"`
	Category      string    `json:"category"`
	AmountCents   int64     `json:"amount_cents"`
	Direction     string    `json:"direction"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewObligationProcessedMessage creates a processed-obligation message.
func NewObligationProcessedMessage(transactionID, obligationID, category string, amountCents int64, direction string) *ObligationProcessedMessage {
	return &ObligationProcessedMessage{
		TransactionID: transactionID,
		ObligationID:  obligationID,
		Category:      category,
		AmountCents:   amountCents,
		Direction:     direction,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ObligationProcessedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ObligationProcessedMessageFromJSON creates a message from JSON bytes
func ObligationProcessedMessageFromJSON(data []byte) (*ObligationProcessedMessage, error) {
	var msg ObligationProcessedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
