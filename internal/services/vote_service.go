package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beatclash/backend/internal/audit"
	"github.com/beatclash/backend/internal/config"
	"github.com/beatclash/backend/internal/models"
	"github.com/google/uuid"
)

// VoteService is the vote register. A vote, its flame debit and the battle
// counter increment commit or roll back together.
type VoteService struct {
	store  *Store
	ledger *LedgerService
	clock  Clock
	config *config.BattleConfig
	audit  *audit.AuditLogger
}

type CastVoteRequest struct {
	Side string `json:"side" validate:"required,max=64"` // "challenger", "opponent" or a participant id
}

func NewVoteService(store *Store, ledger *LedgerService, clock Clock, cfg *config.BattleConfig, auditLogger *audit.AuditLogger) *VoteService {
	return &VoteService{
		store:  store,
		ledger: ledger,
		clock:  clock,
		config: cfg,
		audit:  auditLogger,
	}
}

// CastVote spends VoteCost flames on one vote for side.
//
// The vote row goes in first with ON CONFLICT DO NOTHING, so the unique
// (battle_id, voter_id) constraint decides a race between two requests of the
// same voter: the loser inserts nothing, never reaches the debit and rolls back.
// The debit and the guarded counter increment follow in the same transaction.
func (s *VoteService) CastVote(ctx context.Context, battleID, voterID, side string) (*models.VoteReceipt, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}

	var receipt *models.VoteReceipt
	err := s.store.InTx(ctx, "cast vote", func(tx *sql.Tx) error {
		b, err := readBattle(ctx, tx, battleID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if b.Status != models.BattleActive {
			return ErrBattleNotActive
		}
		if !now.Before(b.EndsAt) {
			return ErrBattleExpired
		}

		candidateID, resolved, err := resolveSide(b, side)
		if err != nil {
			return err
		}
		if b.IsParticipant(voterID) {
			return ErrInvalidTarget
		}

		balance, err := s.ledger.spendableBalance(ctx, tx, voterID)
		if err != nil {
			return err
		}
		if balance < s.config.VoteCost {
			return ErrInsufficientBalance
		}

		vote := models.Vote{
			ID:          uuid.NewString(),
			BattleID:    battleID,
			VoterID:     voterID,
			CandidateID: candidateID,
			Side:        resolved,
			CreatedAt:   now,
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO votes (id, battle_id, voter_id, candidate_id, side, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (battle_id, voter_id) DO NOTHING`,
			vote.ID, vote.BattleID, vote.VoterID, vote.CandidateID, string(vote.Side), vote.CreatedAt)
		if isUniqueViolation(err) {
			return ErrAlreadyVoted
		}
		if err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrAlreadyVoted
		}

		newBalance, err := s.ledger.DebitTx(ctx, tx, voterID, s.config.VoteCost, models.ReasonVote, &battleID)
		if err != nil {
			return err
		}

		if err := incrementTally(ctx, tx, battleID, resolved, now); err != nil {
			return err
		}

		receipt = &models.VoteReceipt{Vote: vote, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		log.Printf("[VOTE] Vote by %s on %s rejected: %v", voterID, battleID, err)
		return nil, err
	}

	s.audit.LogLedger(voterID, battleID, models.ReasonVote, -s.config.VoteCost, receipt.NewBalance)
	log.Printf("[VOTE] %s voted %s on battle %s", voterID, receipt.Vote.Side, battleID)
	return receipt, nil
}

// incrementTally bumps one side's counter while the battle is still Active and
// open. Zero rows means settlement or the deadline got there first.
func incrementTally(ctx context.Context, tx *sql.Tx, battleID string, side models.VoteSide, now time.Time) error {
	column := "challenger_votes"
	if side == models.SideOpponent {
		column = "opponent_votes"
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE battles SET `+column+` = `+column+` + 1
		WHERE id = $1 AND status = 'Active' AND ends_at > $2`, battleID, now)
	if err != nil {
		return fmt.Errorf("increment tally: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBattleNotActive
	}
	return nil
}

// resolveSide maps a side name or participant id onto a seated participant.
func resolveSide(b *models.Battle, side string) (string, models.VoteSide, error) {
	opponentSeated := b.HasOpponentEntry() && b.OpponentID != nil && *b.OpponentID != ""

	switch {
	case side == string(models.SideChallenger) || side == b.ChallengerID:
		return b.ChallengerID, models.SideChallenger, nil
	case side == string(models.SideOpponent) || (opponentSeated && side == *b.OpponentID):
		if !opponentSeated {
			return "", "", ErrInvalidTarget
		}
		return *b.OpponentID, models.SideOpponent, nil
	}
	return "", "", ErrInvalidTarget
}

// GetVote returns the voter's vote on a battle, or nil if they have not voted.
func (s *VoteService) GetVote(ctx context.Context, battleID, voterID string) (*models.Vote, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	var vote models.Vote
	var side string
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT id, battle_id, voter_id, candidate_id, side, created_at
		FROM votes WHERE battle_id = $1 AND voter_id = $2`, battleID, voterID).
		Scan(&vote.ID, &vote.BattleID, &vote.VoterID, &vote.CandidateID, &side, &vote.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	vote.Side = models.VoteSide(side)
	return &vote, nil
}

// TallyMatches checks that the battle counters equal the stored vote rows.
func (s *VoteService) TallyMatches(ctx context.Context, battleID string) (bool, error) {
	if err := checkBattleID(battleID); err != nil {
		return false, err
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	var matches bool
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT b.challenger_votes = COUNT(v.id) FILTER (WHERE v.side = 'challenger')
		   AND b.opponent_votes = COUNT(v.id) FILTER (WHERE v.side = 'opponent')
		FROM battles b
		LEFT JOIN votes v ON v.battle_id = b.id
		WHERE b.id = $1
		GROUP BY b.challenger_votes, b.opponent_votes`, battleID).Scan(&matches)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrBattleNotFound
	}
	return matches, err
}
