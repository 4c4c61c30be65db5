package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/beatclash/backend/internal/audit"
	"github.com/beatclash/backend/internal/config"
	"github.com/beatclash/backend/internal/models"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// SettlementService owns the Active -> Closed transition. Explicit calls and
// the sweep both go through settle.
type SettlementService struct {
	store    *Store
	ledger   *LedgerService
	notifier Notifier
	clock    Clock
	config   *config.BattleConfig
	audit    *audit.AuditLogger
}

func NewSettlementService(store *Store, ledger *LedgerService, notifier Notifier, clock Clock, cfg *config.BattleConfig, auditLogger *audit.AuditLogger) *SettlementService {
	return &SettlementService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		clock:    clock,
		config:   cfg,
		audit:    auditLogger,
	}
}

// DetermineWinner applies strict majority. Equal counts are a tie.
func DetermineWinner(b *models.Battle) *string {
	switch {
	case b.ChallengerVotes > b.OpponentVotes:
		id := b.ChallengerID
		return &id
	case b.OpponentVotes > b.ChallengerVotes && b.OpponentID != nil:
		id := *b.OpponentID
		return &id
	}
	return nil
}

// SettleBattle closes the battle now regardless of its deadline (admin path).
// Settling an already Closed battle is a no-op that returns the stored outcome
// with Settled=false.
func (s *SettlementService) SettleBattle(ctx context.Context, battleID string) (*models.Settlement, error) {
	return s.settle(ctx, battleID, false)
}

// SettleIfExpired closes the battle only once its voting window is over.
func (s *SettlementService) SettleIfExpired(ctx context.Context, battleID string) (*models.Settlement, error) {
	return s.settle(ctx, battleID, true)
}

func (s *SettlementService) settle(ctx context.Context, battleID string, requireExpired bool) (*models.Settlement, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}

	var settlement *models.Settlement
	err := s.store.InTx(ctx, "settle battle", func(tx *sql.Tx) error {
		b, err := lockBattle(ctx, tx, battleID)
		if err != nil {
			return err
		}

		if b.Status == models.BattleClosed {
			settlement = settlementOf(b, 0, false)
			return nil
		}
		if b.Status != models.BattleActive {
			return ErrBattleNotActive
		}

		now := s.clock.Now()
		if requireExpired && now.Before(b.EndsAt) {
			return ErrVotingOpen
		}

		winnerID := DetermineWinner(b)
		result, err := tx.ExecContext(ctx, `
			UPDATE battles
			SET status = 'Closed', winner_id = $1, completed_at = $2
			WHERE id = $3 AND status = 'Active'`,
			winnerID, now, battleID)
		if err != nil {
			return fmt.Errorf("close battle: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// another settler won the compare-and-set
			settlement = settlementOf(b, 0, false)
			return nil
		}

		var reward int64
		if winnerID != nil && s.config.WinnerReward > 0 {
			if _, err := s.ledger.CreditTx(ctx, tx, *winnerID, s.config.WinnerReward, models.ReasonBattleReward, &battleID); err != nil {
				return fmt.Errorf("credit winner reward: %w", err)
			}
			reward = s.config.WinnerReward
		}

		b.Status = models.BattleClosed
		b.WinnerID = winnerID
		b.CompletedAt = &now
		settlement = settlementOf(b, reward, true)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrBattleNotActive) && !errors.Is(err, ErrVotingOpen) && !errors.Is(err, ErrBattleNotFound) {
			log.Printf("[SETTLEMENT] Failed to settle battle %s: %v", battleID, err)
			s.audit.LogError(battleID, "", err)
		}
		return nil, err
	}

	if settlement.Settled {
		log.Printf("[SETTLEMENT] Battle %s closed %d-%d", battleID, settlement.ChallengerVotes, settlement.OpponentVotes)
		s.audit.LogSettlement(battleID, settlement.WinnerID, settlement.ChallengerVotes, settlement.OpponentVotes, settlement.Reward)
		notifyAfterCommit(ctx, "settled", battleID, func(ctx context.Context) error {
			return s.notifier.BattleSettled(ctx, settlement)
		})
	}
	return settlement, nil
}

func settlementOf(b *models.Battle, reward int64, settled bool) *models.Settlement {
	return &models.Settlement{
		BattleID:        b.ID,
		WinnerID:        b.WinnerID,
		ChallengerVotes: b.ChallengerVotes,
		OpponentVotes:   b.OpponentVotes,
		Reward:          reward,
		CompletedAt:     b.CompletedAt,
		Settled:         settled,
	}
}

// SweepExpired settles every Active battle whose voting window has ended.
// One battle failing does not stop the others; failed ids are excluded for
// the rest of the pass and picked up again by the next one.
func (s *SettlementService) SweepExpired(ctx context.Context) (*models.SweepResult, error) {
	batchSize := s.config.SweepBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	workers := s.config.SweepConcurrency
	if workers <= 0 {
		workers = 1
	}

	result := &models.SweepResult{}
	failed := []string{}
	var mu sync.Mutex

	for {
		ids, err := s.expiredBattleIDs(ctx, batchSize, failed)
		if err != nil {
			return result, fmt.Errorf("list expired battles: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		result.Scanned += len(ids)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				settlement, err := s.settle(gctx, id, true)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil && settlement.Settled:
					result.Settled++
				case err == nil, errors.Is(err, ErrBattleNotActive), errors.Is(err, ErrVotingOpen):
					result.Skipped++
				default:
					result.Failed++
					failed = append(failed, id)
				}
				return nil
			})
		}
		g.Wait()

		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if len(ids) < batchSize {
			break
		}
	}

	if result.Scanned > 0 {
		log.Printf("[SWEEP] scanned=%d settled=%d skipped=%d failed=%d", result.Scanned, result.Settled, result.Skipped, result.Failed)
	}
	return result, nil
}

func (s *SettlementService) expiredBattleIDs(ctx context.Context, limit int, exclude []string) ([]string, error) {
	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id FROM battles
		WHERE status = 'Active' AND ends_at < $1 AND NOT (id::text = ANY($2))
		ORDER BY ends_at
		LIMIT $3`, s.clock.Now(), pq.Array(exclude), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RunSweeper sweeps once immediately and then every interval until ctx is done.
func (s *SettlementService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log.Printf("[SWEEP] sweeper start: interval=%s batch=%d workers=%d", interval, s.config.SweepBatchSize, s.config.SweepConcurrency)
	s.sweepOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SWEEP] sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *SettlementService) sweepOnce(ctx context.Context) {
	if _, err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[SWEEP] sweep failed: %v", err)
	}
}
