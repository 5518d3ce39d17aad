package services

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	UserID        int       `json:"user_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Details       any       `json:"details"`
}

// AuditLogger emits a structured line for every balance-affecting
// operation so the ledger has an operational trail alongside the rows.
type AuditLogger struct{}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

func (a *AuditLogger) LogDebit(transactionID string, userID int, target string, targetID int, amount int64) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "DEBIT_PURCHASE",
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details: map[string]any{
			"target":    target,
			"target_id": targetID,
		},
	}
	a.log(event)
}

func (a *AuditLogger) LogGrant(transactionID string, userID int, amount int64) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "CREDIT_GRANT",
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Status:        "SUCCESS",
	}
	a.log(event)
}

func (a *AuditLogger) LogError(transactionID string, userID int, err error) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "ERROR",
		TransactionID: transactionID,
		UserID:        userID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
