package models

import (
	"time"
)

// Ledger reason codes
const (
	ReasonVote         = "VOTE"
	ReasonGift         = "GIFT"
	ReasonBattleReward = "BATTLE_REWARD"
	ReasonGrant        = "GRANT"
)

type LedgerTransaction struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"accountId" db:"account_id"`
	Delta     int64     `json:"delta" db:"delta"` // signed, in flames
	Reason    string    `json:"reason" db:"reason"`
	BattleID  *string   `json:"battleId,omitempty" db:"battle_id"`
	Balance   int64     `json:"balance" db:"balance"` // balance after this entry
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Reconciliation compares the live balance against a replay of the transaction log
type Reconciliation struct {
	AccountID  string `json:"accountId"`
	Balance    int64  `json:"balance"`
	Replayed   int64  `json:"replayed"`
	Entries    int64  `json:"entries"`
	Consistent bool   `json:"consistent"`
}
