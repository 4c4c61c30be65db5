package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/beatclash/backend/internal/audit"
	"github.com/beatclash/backend/internal/config"
	"github.com/beatclash/backend/internal/models"
	"github.com/google/uuid"
)

type GiftService struct {
	store  *Store
	ledger *LedgerService
	clock  Clock
	config *config.BattleConfig
	audit  *audit.AuditLogger
}

type GiftRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type GiftTotal struct {
	BattleID string `json:"battleId"`
	Total    int64  `json:"total"`
	Count    int64  `json:"count"`
}

func NewGiftService(store *Store, ledger *LedgerService, clock Clock, cfg *config.BattleConfig, auditLogger *audit.AuditLogger) *GiftService {
	return &GiftService{
		store:  store,
		ledger: ledger,
		clock:  clock,
		config: cfg,
		audit:  auditLogger,
	}
}

// GiftFlames debits the gifter and records the gift in one transaction.
// The battle row is held FOR SHARE so a gift cannot land on a battle that
// settles or is cancelled underneath it.
func (s *GiftService) GiftFlames(ctx context.Context, battleID, gifterID string, amount int64) (*models.GiftReceipt, error) {
	if amount <= 0 || (s.config.MaxGift > 0 && amount > s.config.MaxGift) {
		return nil, ErrInvalidAmount
	}
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}

	var receipt *models.GiftReceipt
	err := s.store.InTx(ctx, "gift flames", func(tx *sql.Tx) error {
		b, err := shareBattle(ctx, tx, battleID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if b.Status != models.BattlePending && b.Status != models.BattleActive {
			return ErrNotAcceptingGifts
		}
		// an unanswered challenge can no longer become Active
		if b.Status == models.BattlePending && !now.Before(b.EntryDeadline) {
			return ErrNotAcceptingGifts
		}
		if !now.Before(b.EndsAt) {
			return ErrBattleExpired
		}

		balance, err := s.ledger.spendableBalance(ctx, tx, gifterID)
		if err != nil {
			return err
		}
		if balance < amount {
			return ErrInsufficientBalance
		}

		newBalance, err := s.ledger.DebitTx(ctx, tx, gifterID, amount, models.ReasonGift, &battleID)
		if err != nil {
			return err
		}

		gift := models.FlameGift{
			ID:        uuid.NewString(),
			BattleID:  battleID,
			GifterID:  gifterID,
			Amount:    amount,
			CreatedAt: now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO flame_gifts (id, battle_id, gifter_id, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			gift.ID, gift.BattleID, gift.GifterID, gift.Amount, gift.CreatedAt); err != nil {
			return fmt.Errorf("insert gift: %w", err)
		}

		receipt = &models.GiftReceipt{Gift: gift, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		log.Printf("[GIFT] Gift of %d by %s on %s rejected: %v", amount, gifterID, battleID, err)
		return nil, err
	}

	s.audit.LogLedger(gifterID, battleID, models.ReasonGift, -amount, receipt.NewBalance)
	log.Printf("[GIFT] %s gifted %d flames to battle %s", gifterID, amount, battleID)
	return receipt, nil
}

func (s *GiftService) GiftTotal(ctx context.Context, battleID string) (*GiftTotal, error) {
	if err := checkBattleID(battleID); err != nil {
		return nil, err
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	total := &GiftTotal{BattleID: battleID}
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM flame_gifts WHERE battle_id = $1`, battleID).
		Scan(&total.Total, &total.Count)
	if err != nil {
		return nil, err
	}
	return total, nil
}
