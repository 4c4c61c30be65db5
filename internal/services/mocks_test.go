package services

import (
	"context"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/beatclash/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BattleAccepted(ctx context.Context, battle *models.Battle) error {
	args := m.Called(battle)
	return args.Error(0)
}

func (m *MockNotifier) BattleSettled(ctx context.Context, settlement *models.Settlement) error {
	args := m.Called(settlement)
	return args.Error(0)
}

func (m *MockNotifier) BattleCancelled(ctx context.Context, battle *models.Battle) error {
	args := m.Called(battle)
	return args.Error(0)
}

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) Exists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

const testBattleID = "7f1c2a9e-3b54-4c1e-9d7a-0b6f5e4c3a21"

var battleColumnNames = []string{
	"id", "title", "beat_id", "challenger_id", "challenger_entry", "opponent_id", "opponent_entry",
	"status", "challenger_votes", "opponent_votes", "winner_id", "created_at", "entry_deadline", "ends_at", "completed_at",
}

// testBattle is an Active battle between alice and bob with voting open.
func testBattle() *models.Battle {
	opponent := "bob"
	entry := "entries/bob.mp3"
	return &models.Battle{
		ID:              testBattleID,
		Title:           "Friday night",
		BeatID:          "beat-1",
		ChallengerID:    "alice",
		ChallengerEntry: "entries/alice.mp3",
		OpponentID:      &opponent,
		OpponentEntry:   &entry,
		Status:          models.BattleActive,
		CreatedAt:       testNow.Add(-24 * time.Hour),
		EntryDeadline:   testNow.Add(48 * time.Hour),
		EndsAt:          testNow.Add(5 * 24 * time.Hour),
	}
}

// pendingBattle is an open battle by alice nobody has entered.
func pendingBattle() *models.Battle {
	b := testBattle()
	b.OpponentID = nil
	b.OpponentEntry = nil
	b.Status = models.BattlePending
	return b
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func battleRows(battles ...*models.Battle) *sqlmock.Rows {
	rows := sqlmock.NewRows(battleColumnNames)
	for _, b := range battles {
		rows.AddRow(
			b.ID, b.Title, b.BeatID, b.ChallengerID, b.ChallengerEntry, nullable(b.OpponentID), nullable(b.OpponentEntry),
			string(b.Status), b.ChallengerVotes, b.OpponentVotes, nullable(b.WinnerID), b.CreatedAt, b.EntryDeadline, b.EndsAt, nullable(b.CompletedAt),
		)
	}
	return rows
}
