package services

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrBattleNotFound      = errors.New("battle not found")
	ErrSelfBattle          = errors.New("cannot battle yourself")
	ErrBattleFull          = errors.New("battle already has an opponent")
	ErrDeadlinePassed      = errors.New("entry deadline has passed")
	ErrNotParticipant      = errors.New("caller is not a participant of this battle")
	ErrBattleTerminal      = errors.New("battle is closed or cancelled")
	ErrBattleNotActive     = errors.New("battle is not active")
	ErrBattleExpired       = errors.New("voting period has ended")
	ErrVotingOpen          = errors.New("voting period has not ended")
	ErrAlreadyVoted        = errors.New("already voted in this battle")
	ErrInvalidTarget       = errors.New("invalid vote target")
	ErrNotAcceptingGifts   = errors.New("battle is not accepting gifts")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInviteNotFound      = errors.New("invalid or expired invite code")
	ErrInvitesUnavailable  = errors.New("invites are unavailable")
	ErrMissingBattleFields = errors.New("title and beat are required")
	ErrEntryRequired       = errors.New("entry reference is required")
)

// SQLSTATE codes raised by postgres
const (
	codeUniqueViolation      = pq.ErrorCode("23505")
	codeCheckViolation       = pq.ErrorCode("23514")
	codeSerializationFailure = pq.ErrorCode("40001")
	codeDeadlockDetected     = pq.ErrorCode("40P01")
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// isRetryable reports whether the store rejected the transaction because of a
// concurrent writer, in which case re-running it from scratch is safe.
func isRetryable(err error) bool {
	code := pqCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}
