package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/beatclash/backend/internal/config"
	"github.com/beatclash/backend/internal/models"
	"github.com/google/uuid"
)

// BattleService owns the pre-settlement part of the battle state machine:
// creation, acceptance and cancellation.
type BattleService struct {
	store    *Store
	identity IdentityDirectory
	notifier Notifier
	clock    Clock
	config   *config.BattleConfig
}

type CreateBattleRequest struct {
	CreatorID  string `json:"-"`
	BeatID     string `json:"beatId" validate:"required,max=64"`
	Title      string `json:"title" validate:"required,min=1,max=120"`
	EntryRef   string `json:"entryRef" validate:"max=512"`
	OpponentID string `json:"opponentId,omitempty" validate:"omitempty,max=64"` // direct challenge
}

type AcceptBattleRequest struct {
	EntryRef string `json:"entryRef" validate:"required,max=512"`
}

func NewBattleService(store *Store, identity IdentityDirectory, notifier Notifier, clock Clock, cfg *config.BattleConfig) *BattleService {
	return &BattleService{
		store:    store,
		identity: identity,
		notifier: notifier,
		clock:    clock,
		config:   cfg,
	}
}

// CreateBattle opens a battle. Without an opponent it is Pending and open to
// anyone; with one it is a Challenge only that user may accept.
func (s *BattleService) CreateBattle(ctx context.Context, req CreateBattleRequest) (*models.Battle, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.BeatID == "" {
		return nil, ErrMissingBattleFields
	}
	if req.OpponentID != "" && req.OpponentID == req.CreatorID {
		return nil, ErrSelfBattle
	}

	if err := s.requireIdentity(ctx, req.CreatorID); err != nil {
		return nil, err
	}
	status := models.BattlePending
	var opponentID *string
	if req.OpponentID != "" {
		if err := s.requireIdentity(ctx, req.OpponentID); err != nil {
			return nil, err
		}
		status = models.BattleChallenge
		opponentID = &req.OpponentID
	}

	now := s.clock.Now()
	battle := &models.Battle{
		ID:              uuid.NewString(),
		Title:           req.Title,
		BeatID:          req.BeatID,
		ChallengerID:    req.CreatorID,
		ChallengerEntry: req.EntryRef,
		OpponentID:      opponentID,
		Status:          status,
		CreatedAt:       now,
		EntryDeadline:   now.Add(s.config.EntryWindow),
		EndsAt:          now.Add(s.config.VotingWindow),
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO battles (id, title, beat_id, challenger_id, challenger_entry, opponent_id, status,
			challenger_votes, opponent_votes, created_at, entry_deadline, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $9, $10)`,
		battle.ID, battle.Title, battle.BeatID, battle.ChallengerID, battle.ChallengerEntry, opponentID,
		string(battle.Status), battle.CreatedAt, battle.EntryDeadline, battle.EndsAt)
	if err != nil {
		log.Printf("[BATTLE] Failed to create battle for %s: %v", req.CreatorID, err)
		return nil, fmt.Errorf("create battle: %w", err)
	}

	log.Printf("[BATTLE] Created %s battle %s by %s", battle.Status, battle.ID, battle.ChallengerID)
	return battle, nil
}

// AcceptBattle seats the second participant and starts the voting window.
func (s *BattleService) AcceptBattle(ctx context.Context, battleID, accepterID string, req AcceptBattleRequest) (*models.Battle, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}
	req.EntryRef = strings.TrimSpace(req.EntryRef)
	if req.EntryRef == "" {
		return nil, ErrEntryRequired
	}
	if err := s.requireIdentity(ctx, accepterID); err != nil {
		return nil, err
	}

	var battle *models.Battle
	err := s.store.InTx(ctx, "accept battle", func(tx *sql.Tx) error {
		b, err := lockBattle(ctx, tx, battleID)
		if err != nil {
			return err
		}

		switch {
		case b.Status.IsTerminal():
			return ErrBattleTerminal
		case b.Status == models.BattleActive || b.HasOpponentEntry():
			return ErrBattleFull
		case b.ChallengerID == accepterID:
			return ErrSelfBattle
		case b.Status == models.BattleChallenge && (b.OpponentID == nil || *b.OpponentID != accepterID):
			return ErrNotParticipant
		}

		now := s.clock.Now()
		if !now.Before(b.EntryDeadline) {
			return ErrDeadlinePassed
		}

		endsAt := now.Add(s.config.VotingWindow)
		result, err := tx.ExecContext(ctx, `
			UPDATE battles
			SET opponent_id = $1, opponent_entry = $2, status = 'Active', ends_at = $3
			WHERE id = $4 AND status IN ('Pending', 'Challenge') AND opponent_entry IS NULL`,
			accepterID, req.EntryRef, endsAt, battleID)
		if err != nil {
			return fmt.Errorf("accept battle: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrBattleFull
		}

		b.OpponentID = &accepterID
		b.OpponentEntry = &req.EntryRef
		b.Status = models.BattleActive
		b.EndsAt = endsAt
		battle = b
		return nil
	})
	if err != nil {
		log.Printf("[BATTLE] Accept of %s by %s rejected: %v", battleID, accepterID, err)
		return nil, err
	}

	log.Printf("[BATTLE] Battle %s accepted by %s, voting ends %s", battle.ID, accepterID, battle.EndsAt.Format("2006-01-02T15:04:05Z07:00"))
	notifyAfterCommit(ctx, "accepted", battle.ID, func(ctx context.Context) error {
		return s.notifier.BattleAccepted(ctx, battle)
	})
	return battle, nil
}

// CancelBattle withdraws a battle nobody has entered yet. Only the challenger may cancel.
func (s *BattleService) CancelBattle(ctx context.Context, battleID, callerID string) (*models.Battle, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}
	var battle *models.Battle
	err := s.store.InTx(ctx, "cancel battle", func(tx *sql.Tx) error {
		b, err := lockBattle(ctx, tx, battleID)
		if err != nil {
			return err
		}

		switch {
		case b.Status.IsTerminal():
			return ErrBattleTerminal
		case b.ChallengerID != callerID:
			return ErrNotParticipant
		case b.Status == models.BattleActive || b.HasOpponentEntry():
			return ErrBattleFull
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE battles SET status = 'Cancelled'
			WHERE id = $1 AND status IN ('Pending', 'Challenge') AND opponent_entry IS NULL`, battleID)
		if err != nil {
			return fmt.Errorf("cancel battle: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrBattleFull
		}

		b.Status = models.BattleCancelled
		battle = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[BATTLE] Battle %s cancelled by %s", battleID, callerID)
	notifyAfterCommit(ctx, "cancelled", battle.ID, func(ctx context.Context) error {
		return s.notifier.BattleCancelled(ctx, battle)
	})
	return battle, nil
}

func (s *BattleService) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()
	return readBattle(ctx, s.store.DB(), battleID)
}

// ListBattles returns the newest battles, optionally filtered by status.
func (s *BattleService) ListBattles(ctx context.Context, status string, limit int) ([]models.Battle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + battleColumns + ` FROM battles`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	battles := []models.Battle{}
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		battles = append(battles, *b)
	}
	return battles, rows.Err()
}

func (s *BattleService) requireIdentity(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrAccountNotFound
	}
	ok, err := s.identity.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("identity lookup: %w", err)
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}
