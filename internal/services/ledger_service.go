package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/beatclash/backend/internal/audit"
	"github.com/beatclash/backend/internal/models"
	"github.com/google/uuid"
)

// LedgerService owns account balances. Balances only change through DebitTx
// and CreditTx, each of which appends one ledger_transactions row in the same
// transaction as the balance update.
type LedgerService struct {
	store *Store
	clock Clock
	audit *audit.AuditLogger
}

func NewLedgerService(store *Store, clock Clock, auditLogger *audit.AuditLogger) *LedgerService {
	return &LedgerService{
		store: store,
		clock: clock,
		audit: auditLogger,
	}
}

// OpenAccount registers an account with a zero balance. Opening an existing account is a no-op.
func (s *LedgerService) OpenAccount(ctx context.Context, accountID string) error {
	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO accounts (id, balance, active, created_at, updated_at)
		VALUES ($1, 0, true, $2, $2)
		ON CONFLICT (id) DO NOTHING`,
		accountID, s.clock.Now())
	return err
}

// Debit removes amount from the account in its own transaction.
func (s *LedgerService) Debit(ctx context.Context, accountID string, amount int64, reason string) (int64, error) {
	var balance int64
	err := s.store.InTx(ctx, "debit", func(tx *sql.Tx) error {
		var err error
		balance, err = s.DebitTx(ctx, tx, accountID, amount, reason, nil)
		return err
	})
	if err == nil {
		s.audit.LogLedger(accountID, "", reason, -amount, balance)
	}
	return balance, err
}

// Credit adds amount to the account in its own transaction.
func (s *LedgerService) Credit(ctx context.Context, accountID string, amount int64, reason string) (int64, error) {
	var balance int64
	err := s.store.InTx(ctx, "credit", func(tx *sql.Tx) error {
		var err error
		balance, err = s.CreditTx(ctx, tx, accountID, amount, reason, nil)
		return err
	})
	if err == nil {
		s.audit.LogLedger(accountID, "", reason, amount, balance)
	}
	return balance, err
}

// DebitTx checks and applies the debit in one conditional statement so two
// concurrent debits can never both pass a stale balance check.
func (s *LedgerService) DebitTx(ctx context.Context, tx *sql.Tx, accountID string, amount int64, reason string, battleID *string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance - $1, updated_at = $2
		WHERE id = $3 AND active AND balance >= $1
		RETURNING balance`,
		amount, s.clock.Now(), accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// missing and deactivated accounts also match no rows
		if _, err := s.spendableBalance(ctx, tx, accountID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientBalance
	}
	if pqCode(err) == codeCheckViolation {
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, fmt.Errorf("debit account %s: %w", accountID, err)
	}

	if err := s.appendTransaction(ctx, tx, accountID, -amount, reason, battleID, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// CreditTx does not filter on active so rewards owed to a deactivated account
// still settle.
func (s *LedgerService) CreditTx(ctx context.Context, tx *sql.Tx, accountID string, amount int64, reason string, battleID *string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING balance`,
		amount, s.clock.Now(), accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit account %s: %w", accountID, err)
	}

	if err := s.appendTransaction(ctx, tx, accountID, amount, reason, battleID, balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *LedgerService) appendTransaction(ctx context.Context, tx *sql.Tx, accountID string, delta int64, reason string, battleID *string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (id, account_id, delta, reason, battle_id, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), accountID, delta, reason, battleID, balance, s.clock.Now())
	if err != nil {
		return fmt.Errorf("append ledger transaction: %w", err)
	}
	return nil
}

// spendableBalance reads the balance of an active account. It is a fast-fail
// check only; DebitTx is what enforces the balance.
func (s *LedgerService) spendableBalance(ctx context.Context, tx *sql.Tx, accountID string) (int64, error) {
	var balance int64
	var active bool
	err := tx.QueryRowContext(ctx, `SELECT balance, active FROM accounts WHERE id = $1`, accountID).
		Scan(&balance, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if !active {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (s *LedgerService) Balance(ctx context.Context, accountID string) (int64, error) {
	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	var balance int64
	err := s.store.DB().QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

func (s *LedgerService) History(ctx context.Context, accountID string, limit int) ([]models.LedgerTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, account_id, delta, reason, battle_id, balance, created_at
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.LedgerTransaction{}
	for rows.Next() {
		var entry models.LedgerTransaction
		var battleID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Delta, &entry.Reason, &battleID, &entry.Balance, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if battleID.Valid {
			entry.BattleID = &battleID.String
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// Reconcile replays the transaction log of an account and compares the fold
// with the live balance column.
func (s *LedgerService) Reconcile(ctx context.Context, accountID string) (*models.Reconciliation, error) {
	ctx, cancel := s.store.WithTimeout(ctx)
	defer cancel()

	rec := &models.Reconciliation{AccountID: accountID}
	err := s.store.DB().QueryRowContext(ctx, `
		SELECT a.balance, COALESCE(SUM(t.delta), 0), COUNT(t.id)
		FROM accounts a
		LEFT JOIN ledger_transactions t ON t.account_id = a.id
		WHERE a.id = $1
		GROUP BY a.balance`, accountID).Scan(&rec.Balance, &rec.Replayed, &rec.Entries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Consistent = rec.Balance == rec.Replayed
	if !rec.Consistent {
		log.Printf("[LEDGER] Reconciliation mismatch for %s: balance=%d replayed=%d", accountID, rec.Balance, rec.Replayed)
	}
	return rec, nil
}
