package audit

import (
	"encoding/json"
	"log"
	"time"
)

// Event is a single structured audit record. Every ledger mutation emits one,
// which keeps "balance = sum of applied deltas" checkable from the logs alone.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	ReferenceID string    `json:"reference_id"`
	UserID      string    `json:"user_id"`
	Delta       int64     `json:"delta"`
	Balance     int64     `json:"balance"`
	Status      string    `json:"status"`
	Details     any       `json:"details"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogAdjustment(referenceID, userID, reason string, delta, balance int64) {
	event := Event{
		Timestamp:   time.Now(),
		EventType:   "LEDGER_ADJUSTMENT",
		ReferenceID: referenceID,
		UserID:      userID,
		Delta:       delta,
		Balance:     balance,
		Status:      "SUCCESS",
		Details:     map[string]string{"reason": reason},
	}
	a.log(event)
}

func (a *Logger) LogGrant(referenceID, userID, roleID, status string) {
	event := Event{
		Timestamp:   time.Now(),
		EventType:   "ENTITLEMENT_GRANT",
		ReferenceID: referenceID,
		UserID:      userID,
		Status:      status,
		Details:     map[string]string{"role_id": roleID},
	}
	a.log(event)
}

func (a *Logger) LogError(referenceID, userID string, err error) {
	event := Event{
		Timestamp:   time.Now(),
		EventType:   "ERROR",
		ReferenceID: referenceID,
		UserID:      userID,
		Status:      "FAILED",
		Details:     map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
