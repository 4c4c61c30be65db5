package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/beatclash/backend/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	balanceSQL      = "SELECT balance, active FROM accounts WHERE id = \\$1"
	insertVoteSQL   = "INSERT INTO votes .* ON CONFLICT \\(battle_id, voter_id\\) DO NOTHING"
	challengerTally = "UPDATE battles SET challenger_votes = challenger_votes \\+ 1 WHERE id = \\$1 AND status = 'Active' AND ends_at > \\$2"
	opponentTally   = "UPDATE battles SET opponent_votes = opponent_votes \\+ 1 WHERE id = \\$1 AND status = 'Active' AND ends_at > \\$2"
)

func newTestVoteService(t *testing.T) (*VoteService, sqlmock.Sqlmock) {
	store, mock := newTestStore(t)
	clock := &fixedClock{now: testNow}
	ledger := NewLedgerService(store, clock, nil)
	return NewVoteService(store, ledger, clock, testConfig(), nil), mock
}

func balanceRow(balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"balance", "active"}).AddRow(balance, true)
}

func TestVoteService_CastVote(t *testing.T) {
	t.Run("vote debits one flame and bumps the tally", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WithArgs(testBattleID).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WithArgs("carol").WillReturnRows(balanceRow(4))
		mock.ExpectExec(insertVoteSQL).
			WithArgs(sqlmock.AnyArg(), testBattleID, "carol", "alice", "challenger", testNow).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(debitSQL).WithArgs(1, testNow, "carol").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(3))
		mock.ExpectExec(ledgerSQL).
			WithArgs(sqlmock.AnyArg(), "carol", -1, models.ReasonVote, testBattleID, 3, testNow).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(challengerTally).WithArgs(testBattleID, testNow).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		receipt, err := service.CastVote(context.Background(), testBattleID, "carol", "challenger")
		require.NoError(t, err)
		assert.Equal(t, int64(3), receipt.NewBalance)
		assert.Equal(t, models.SideChallenger, receipt.Vote.Side)
		assert.Equal(t, "alice", receipt.Vote.CandidateID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("participant id selects the side", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WithArgs(testBattleID).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WithArgs("carol").WillReturnRows(balanceRow(1))
		mock.ExpectExec(insertVoteSQL).
			WithArgs(sqlmock.AnyArg(), testBattleID, "carol", "bob", "opponent", testNow).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(debitSQL).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0))
		mock.ExpectExec(ledgerSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(opponentTally).WithArgs(testBattleID, testNow).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		receipt, err := service.CastVote(context.Background(), testBattleID, "carol", "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(0), receipt.NewBalance)
		assert.Equal(t, models.SideOpponent, receipt.Vote.Side)
	})

	t.Run("second vote by the same voter changes nothing", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WillReturnRows(balanceRow(3))
		mock.ExpectExec(insertVoteSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "opponent")
		assert.ErrorIs(t, err, ErrAlreadyVoted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation from a racing insert", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WillReturnRows(balanceRow(3))
		mock.ExpectExec(insertVoteSQL).WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "opponent")
		assert.ErrorIs(t, err, ErrAlreadyVoted)
	})

	t.Run("empty balance records no vote", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WithArgs("carol").WillReturnRows(balanceRow(0))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "challenger")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit losing a race rolls back the vote row", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WillReturnRows(balanceRow(1))
		mock.ExpectExec(insertVoteSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(debitSQL).WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(balanceSQL).WillReturnRows(balanceRow(0))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "challenger")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("settlement winning the race rolls everything back", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectQuery(balanceSQL).WillReturnRows(balanceRow(2))
		mock.ExpectExec(insertVoteSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(debitSQL).WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1))
		mock.ExpectExec(ledgerSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(challengerTally).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "challenger")
		assert.ErrorIs(t, err, ErrBattleNotActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending battle", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(pendingBattle()))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "challenger")
		assert.ErrorIs(t, err, ErrBattleNotActive)
	})

	t.Run("voting window over", func(t *testing.T) {
		service, mock := newTestVoteService(t)
		b := testBattle()
		b.EndsAt = testNow

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(b))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "challenger")
		assert.ErrorIs(t, err, ErrBattleExpired)
	})

	t.Run("candidate outside the battle", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "carol", "dave")
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})

	t.Run("participants cannot vote", func(t *testing.T) {
		service, mock := newTestVoteService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(readBattleSQL).WillReturnRows(battleRows(testBattle()))
		mock.ExpectRollback()

		_, err := service.CastVote(context.Background(), testBattleID, "bob", "opponent")
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}

func TestResolveSide(t *testing.T) {
	battle := testBattle()

	id, side, err := resolveSide(battle, "alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice", id)
	assert.Equal(t, models.SideChallenger, side)

	id, side, err = resolveSide(battle, "opponent")
	assert.NoError(t, err)
	assert.Equal(t, "bob", id)
	assert.Equal(t, models.SideOpponent, side)

	_, _, err = resolveSide(pendingBattle(), "opponent")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestVoteService_GetVote(t *testing.T) {
	service, mock := newTestVoteService(t)
	columns := []string{"id", "battle_id", "voter_id", "candidate_id", "side", "created_at"}

	mock.ExpectQuery("FROM votes WHERE battle_id = \\$1 AND voter_id = \\$2").
		WithArgs(testBattleID, "carol").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("v1", testBattleID, "carol", "bob", "opponent", testNow))
	mock.ExpectQuery("FROM votes WHERE battle_id = \\$1 AND voter_id = \\$2").
		WithArgs(testBattleID, "dave").
		WillReturnRows(sqlmock.NewRows(columns))

	vote, err := service.GetVote(context.Background(), testBattleID, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.SideOpponent, vote.Side)

	vote, err = service.GetVote(context.Background(), testBattleID, "dave")
	assert.NoError(t, err)
	assert.Nil(t, vote)
}

func TestVoteService_TallyMatches(t *testing.T) {
	service, mock := newTestVoteService(t)

	mock.ExpectQuery("FROM battles b LEFT JOIN votes v").WithArgs(testBattleID).
		WillReturnRows(sqlmock.NewRows([]string{"matches"}).AddRow(true))

	ok, err := service.TallyMatches(context.Background(), testBattleID)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestVoteService_TallyMatchesRejectsMalformedID(t *testing.T) {
	service, mock := newTestVoteService(t)

	_, err := service.TallyMatches(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrBattleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
