package models

import "time"

type VoteSide string

const (
	SideChallenger VoteSide = "challenger"
	SideOpponent   VoteSide = "opponent"
)

// Vote is immutable once written; unique per (battle, voter)
type Vote struct {
	ID          string    `json:"id" db:"id"`
	BattleID    string    `json:"battleId" db:"battle_id"`
	VoterID     string    `json:"voterId" db:"voter_id"`
	CandidateID string    `json:"candidateId" db:"candidate_id"`
	Side        VoteSide  `json:"side" db:"side"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type VoteReceipt struct {
	Vote       Vote  `json:"vote"`
	NewBalance int64 `json:"newBalance"`
}
