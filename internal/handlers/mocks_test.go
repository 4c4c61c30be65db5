package handlers

import (
	"context"
	"net/http"

	"github.com/beatclash/backend/internal/middleware"
	"github.com/beatclash/backend/internal/models"
	"github.com/beatclash/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

type MockBattles struct{ mock.Mock }

func (m *MockBattles) CreateBattle(ctx context.Context, req services.CreateBattleRequest) (*models.Battle, error) {
	args := m.Called(req)
	battle, _ := args.Get(0).(*models.Battle)
	return battle, args.Error(1)
}

func (m *MockBattles) AcceptBattle(ctx context.Context, battleID, accepterID string, req services.AcceptBattleRequest) (*models.Battle, error) {
	args := m.Called(battleID, accepterID, req)
	battle, _ := args.Get(0).(*models.Battle)
	return battle, args.Error(1)
}

func (m *MockBattles) CancelBattle(ctx context.Context, battleID, callerID string) (*models.Battle, error) {
	args := m.Called(battleID, callerID)
	battle, _ := args.Get(0).(*models.Battle)
	return battle, args.Error(1)
}

func (m *MockBattles) GetBattle(ctx context.Context, battleID string) (*models.Battle, error) {
	args := m.Called(battleID)
	battle, _ := args.Get(0).(*models.Battle)
	return battle, args.Error(1)
}

func (m *MockBattles) ListBattles(ctx context.Context, status string, limit int) ([]models.Battle, error) {
	args := m.Called(status, limit)
	battles, _ := args.Get(0).([]models.Battle)
	return battles, args.Error(1)
}

type MockVotes struct{ mock.Mock }

func (m *MockVotes) CastVote(ctx context.Context, battleID, voterID, side string) (*models.VoteReceipt, error) {
	args := m.Called(battleID, voterID, side)
	receipt, _ := args.Get(0).(*models.VoteReceipt)
	return receipt, args.Error(1)
}

func (m *MockVotes) GetVote(ctx context.Context, battleID, voterID string) (*models.Vote, error) {
	args := m.Called(battleID, voterID)
	vote, _ := args.Get(0).(*models.Vote)
	return vote, args.Error(1)
}

func (m *MockVotes) TallyMatches(ctx context.Context, battleID string) (bool, error) {
	args := m.Called(battleID)
	return args.Bool(0), args.Error(1)
}

type MockGifts struct{ mock.Mock }

func (m *MockGifts) GiftFlames(ctx context.Context, battleID, gifterID string, amount int64) (*models.GiftReceipt, error) {
	args := m.Called(battleID, gifterID, amount)
	receipt, _ := args.Get(0).(*models.GiftReceipt)
	return receipt, args.Error(1)
}

func (m *MockGifts) GiftTotal(ctx context.Context, battleID string) (*services.GiftTotal, error) {
	args := m.Called(battleID)
	total, _ := args.Get(0).(*services.GiftTotal)
	return total, args.Error(1)
}

type MockSettler struct{ mock.Mock }

func (m *MockSettler) SettleBattle(ctx context.Context, battleID string) (*models.Settlement, error) {
	args := m.Called(battleID)
	settlement, _ := args.Get(0).(*models.Settlement)
	return settlement, args.Error(1)
}

func (m *MockSettler) SettleIfExpired(ctx context.Context, battleID string) (*models.Settlement, error) {
	args := m.Called(battleID)
	settlement, _ := args.Get(0).(*models.Settlement)
	return settlement, args.Error(1)
}

func (m *MockSettler) SweepExpired(ctx context.Context) (*models.SweepResult, error) {
	args := m.Called()
	result, _ := args.Get(0).(*models.SweepResult)
	return result, args.Error(1)
}

type MockInvites struct{ mock.Mock }

func (m *MockInvites) CreateInvite(ctx context.Context, battleID, callerID string) (*services.Invite, error) {
	args := m.Called(battleID, callerID)
	invite, _ := args.Get(0).(*services.Invite)
	return invite, args.Error(1)
}

func (m *MockInvites) ResolveInvite(ctx context.Context, code string) (*models.Battle, error) {
	args := m.Called(code)
	battle, _ := args.Get(0).(*models.Battle)
	return battle, args.Error(1)
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) OpenAccount(ctx context.Context, accountID string) error {
	return m.Called(accountID).Error(0)
}

func (m *MockLedger) Balance(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) History(ctx context.Context, accountID string, limit int) ([]models.LedgerTransaction, error) {
	args := m.Called(accountID, limit)
	entries, _ := args.Get(0).([]models.LedgerTransaction)
	return entries, args.Error(1)
}

func (m *MockLedger) Reconcile(ctx context.Context, accountID string) (*models.Reconciliation, error) {
	args := m.Called(accountID)
	result, _ := args.Get(0).(*models.Reconciliation)
	return result, args.Error(1)
}

func (m *MockLedger) Credit(ctx context.Context, accountID string, amount int64, reason string) (int64, error) {
	args := m.Called(accountID, amount, reason)
	return args.Get(0).(int64), args.Error(1)
}

const testBattleID = "7f1c2a9e-3b54-4c1e-9d7a-0b6f5e4c3a21"

// asUser stands in for AuthMiddleware: the caller is taken from X-Test-User
// and X-Test-Role.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-Test-User")
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := middleware.WithUser(r.Context(), userID, r.Header.Get("X-Test-Role"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRouter(mount ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser)
	for _, m := range mount {
		m(r)
	}
	return r
}
