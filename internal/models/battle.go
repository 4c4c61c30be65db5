package models

import (
	"time"
)

type BattleStatus string

const (
	BattlePending   BattleStatus = "Pending"
	BattleChallenge BattleStatus = "Challenge"
	BattleActive    BattleStatus = "Active"
	BattleClosed    BattleStatus = "Closed"
	BattleCancelled BattleStatus = "Cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s BattleStatus) IsTerminal() bool {
	return s == BattleClosed || s == BattleCancelled
}

// IsOpen reports whether the battle is still waiting for a second entry.
func (s BattleStatus) IsOpen() bool {
	return s == BattlePending || s == BattleChallenge
}

// Battle represents a two-participant contest over a beat
type Battle struct {
	ID              string       `json:"id" db:"id"`
	Title           string       `json:"title" db:"title"`
	BeatID          string       `json:"beatId" db:"beat_id"`
	ChallengerID    string       `json:"challengerId" db:"challenger_id"`
	ChallengerEntry string       `json:"challengerEntry,omitempty" db:"challenger_entry"`
	OpponentID      *string      `json:"opponentId" db:"opponent_id"` // nil until accepted, or the invited user for a direct challenge
	OpponentEntry   *string      `json:"opponentEntry,omitempty" db:"opponent_entry"`
	Status          BattleStatus `json:"status" db:"status"`
	ChallengerVotes int64        `json:"challengerVotes" db:"challenger_votes"`
	OpponentVotes   int64        `json:"opponentVotes" db:"opponent_votes"`
	WinnerID        *string      `json:"winnerId" db:"winner_id"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
	EntryDeadline   time.Time    `json:"entryDeadline" db:"entry_deadline"`
	EndsAt          time.Time    `json:"endsAt" db:"ends_at"`
	CompletedAt     *time.Time   `json:"completedAt" db:"completed_at"`
}

// HasOpponentEntry reports whether a second participant has submitted an entry.
func (b *Battle) HasOpponentEntry() bool {
	return b.OpponentEntry != nil && *b.OpponentEntry != ""
}

// IsParticipant reports whether userID is the challenger or the seated opponent.
func (b *Battle) IsParticipant(userID string) bool {
	if b.ChallengerID == userID {
		return true
	}
	return b.HasOpponentEntry() && b.OpponentID != nil && *b.OpponentID == userID
}

// Settlement is the outcome of closing a battle
type Settlement struct {
	BattleID        string     `json:"battleId"`
	WinnerID        *string    `json:"winnerId"`
	ChallengerVotes int64      `json:"challengerVotes"`
	OpponentVotes   int64      `json:"opponentVotes"`
	Reward          int64      `json:"reward"`
	CompletedAt     *time.Time `json:"completedAt"`
	Settled         bool       `json:"settled"` // false when the battle had already been closed
}

// SweepResult summarises one settlement sweep pass
type SweepResult struct {
	Scanned int `json:"scanned"`
	Settled int `json:"settled"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
