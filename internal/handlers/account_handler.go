package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/beatclash/backend/internal/middleware"
	"github.com/beatclash/backend/internal/models"
	"github.com/beatclash/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type AccountLedger interface {
	OpenAccount(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (int64, error)
	History(ctx context.Context, accountID string, limit int) ([]models.LedgerTransaction, error)
	Reconcile(ctx context.Context, accountID string) (*models.Reconciliation, error)
	Credit(ctx context.Context, accountID string, amount int64, reason string) (int64, error)
}

type AccountHandler struct {
	ledger    AccountLedger
	validator *services.ValidationHelper
}

type GrantRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   int64  `json:"balance"`
}

func NewAccountHandler(ledger AccountLedger) *AccountHandler {
	return &AccountHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

func (h *AccountHandler) Routes(r chi.Router) {
	r.Post("/accounts/me", h.OpenAccount)
	r.Get("/accounts/me/balance", h.Balance)
	r.Get("/accounts/me/ledger", h.History)
	r.Get("/accounts/me/reconcile", h.Reconcile)
	r.With(middleware.RequireAdmin).Post("/admin/accounts/{accountId}/grant", h.Grant)
}

// OpenAccount creates the caller's flame account
// @Summary Open account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.BalanceResponse
// @Router /accounts/me [post]
func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.ledger.OpenAccount(r.Context(), userID); err != nil {
		respondError(w, "open account", err)
		return
	}
	h.writeBalance(w, r, userID)
}

// Balance returns the caller's flame balance
// @Summary Balance
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.BalanceResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/me/balance [get]
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	h.writeBalance(w, r, userID)
}

func (h *AccountHandler) writeBalance(w http.ResponseWriter, r *http.Request, accountID string) {
	balance, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		respondError(w, "balance", err)
		return
	}
	services.SendJSON(w, http.StatusOK, BalanceResponse{AccountID: accountID, Balance: balance})
}

// History returns the caller's ledger, newest first
// @Summary Ledger history
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 200)"
// @Success 200 {array} models.LedgerTransaction
// @Router /accounts/me/ledger [get]
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.ledger.History(r.Context(), userID, limit)
	if err != nil {
		respondError(w, "ledger history", err)
		return
	}
	services.SendJSON(w, http.StatusOK, entries)
}

// Reconcile replays the caller's ledger against the stored balance
// @Summary Reconcile
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Reconciliation
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/me/reconcile [get]
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		respondError(w, "reconcile", err)
		return
	}
	services.SendJSON(w, http.StatusOK, result)
}

// Grant credits flames to an account
// @Summary Grant flames
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param request body handlers.GrantRequest true "Amount"
// @Success 200 {object} handlers.BalanceResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{accountId}/grant [post]
func (h *AccountHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if !h.validator.DecodeJSON(w, r, &req) {
		return
	}

	accountID := chi.URLParam(r, "accountId")
	balance, err := h.ledger.Credit(r.Context(), accountID, req.Amount, models.ReasonGrant)
	if err != nil {
		respondError(w, "grant", err)
		return
	}
	services.SendJSON(w, http.StatusOK, BalanceResponse{AccountID: accountID, Balance: balance})
}
