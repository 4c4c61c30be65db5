package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beatclash/backend/internal/models"
	"github.com/google/uuid"
)

const battleColumns = `id, title, beat_id, challenger_id, challenger_entry, opponent_id, opponent_entry,
	status, challenger_votes, opponent_votes, winner_id, created_at, entry_deadline, ends_at, completed_at`

// checkBattleID rejects ids the uuid column could never hold.
func checkBattleID(battleID string) error {
	if _, err := uuid.Parse(battleID); err != nil {
		return ErrBattleNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBattle(row rowScanner) (*models.Battle, error) {
	var b models.Battle
	var opponentID, opponentEntry, winnerID sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&b.ID, &b.Title, &b.BeatID, &b.ChallengerID, &b.ChallengerEntry, &opponentID, &opponentEntry,
		&b.Status, &b.ChallengerVotes, &b.OpponentVotes, &winnerID, &b.CreatedAt, &b.EntryDeadline, &b.EndsAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan battle: %w", err)
	}

	if opponentID.Valid {
		b.OpponentID = &opponentID.String
	}
	if opponentEntry.Valid {
		b.OpponentEntry = &opponentEntry.String
	}
	if winnerID.Valid {
		b.WinnerID = &winnerID.String
	}
	if completedAt.Valid {
		b.CompletedAt = &completedAt.Time
	}
	return &b, nil
}

// lockBattle reads a battle row under FOR UPDATE; the lock is held until tx ends.
func lockBattle(ctx context.Context, tx *sql.Tx, battleID string) (*models.Battle, error) {
	return scanBattle(tx.QueryRowContext(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE id = $1 FOR UPDATE`, battleID))
}

// shareBattle reads a battle row under FOR SHARE, which keeps settlement and
// cancellation out until tx ends without serializing readers against each other.
func shareBattle(ctx context.Context, tx *sql.Tx, battleID string) (*models.Battle, error) {
	return scanBattle(tx.QueryRowContext(ctx,
		`SELECT `+battleColumns+` FROM battles WHERE id = $1 FOR SHARE`, battleID))
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readBattle(ctx context.Context, q queryRower, battleID string) (*models.Battle, error) {
	return scanBattle(q.QueryRowContext(ctx, `SELECT `+battleColumns+` FROM battles WHERE id = $1`, battleID))
}

// IdentityDirectory answers whether a user id refers to a usable account
type IdentityDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// AccountDirectory resolves identities against the accounts table
type AccountDirectory struct {
	db *sql.DB
}

func NewAccountDirectory(db *sql.DB) *AccountDirectory {
	return &AccountDirectory{db: db}
}

func (d *AccountDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	var active bool
	err := d.db.QueryRowContext(ctx, `SELECT active FROM accounts WHERE id = $1`, userID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return active, nil
}
