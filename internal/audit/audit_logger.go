package audit

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	BattleID  string    `json:"battle_id,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Details   any       `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per flame movement or battle transition
type AuditLogger struct {
	logger *log.Logger
	now    func() time.Time
}

func NewAuditLogger() *AuditLogger {
	return NewAuditLoggerTo(os.Stderr, time.Now)
}

func NewAuditLoggerTo(w io.Writer, now func() time.Time) *AuditLogger {
	return &AuditLogger{
		logger: log.New(w, "", log.LstdFlags),
		now:    now,
	}
}

func (a *AuditLogger) LogLedger(accountID, battleID, reason string, delta, balance int64) {
	a.log(AuditEvent{
		EventType: "LEDGER_" + reason,
		BattleID:  battleID,
		AccountID: accountID,
		Amount:    delta,
		Status:    "SUCCESS",
		Details:   map[string]int64{"balance": balance},
	})
}

func (a *AuditLogger) LogSettlement(battleID string, winnerID *string, challengerVotes, opponentVotes, reward int64) {
	details := map[string]any{
		"challenger_votes": challengerVotes,
		"opponent_votes":   opponentVotes,
		"tie":              winnerID == nil,
	}
	event := AuditEvent{
		EventType: "SETTLEMENT",
		BattleID:  battleID,
		Status:    "CLOSED",
		Details:   details,
	}
	if winnerID != nil {
		event.AccountID = *winnerID
		event.Amount = reward
	}
	a.log(event)
}

func (a *AuditLogger) LogError(battleID, accountID string, err error) {
	a.log(AuditEvent{
		EventType: "ERROR",
		BattleID:  battleID,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	if a == nil {
		return
	}
	event.Timestamp = a.now()
	data, _ := json.Marshal(event)
	a.logger.Printf("AUDIT: %s", string(data))
}
