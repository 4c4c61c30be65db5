package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/beatclash/backend/internal/middleware"
	"github.com/beatclash/backend/internal/models"
	"github.com/beatclash/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type BattleManager interface {
	CreateBattle(ctx context.Context, req services.CreateBattleRequest) (*models.Battle, error)
	AcceptBattle(ctx context.Context, battleID, accepterID string, req services.AcceptBattleRequest) (*models.Battle, error)
	CancelBattle(ctx context.Context, battleID, callerID string) (*models.Battle, error)
	GetBattle(ctx context.Context, battleID string) (*models.Battle, error)
	ListBattles(ctx context.Context, status string, limit int) ([]models.Battle, error)
}

type VoteBook interface {
	CastVote(ctx context.Context, battleID, voterID, side string) (*models.VoteReceipt, error)
	GetVote(ctx context.Context, battleID, voterID string) (*models.Vote, error)
	TallyMatches(ctx context.Context, battleID string) (bool, error)
}

// TallyCheckResponse reports whether a battle's counters match its vote rows.
type TallyCheckResponse struct {
	BattleID   string `json:"battleId"`
	Consistent bool   `json:"consistent"`
}

type GiftGiver interface {
	GiftFlames(ctx context.Context, battleID, gifterID string, amount int64) (*models.GiftReceipt, error)
	GiftTotal(ctx context.Context, battleID string) (*services.GiftTotal, error)
}

type Settler interface {
	SettleBattle(ctx context.Context, battleID string) (*models.Settlement, error)
	SettleIfExpired(ctx context.Context, battleID string) (*models.Settlement, error)
	SweepExpired(ctx context.Context) (*models.SweepResult, error)
}

type BattleHandler struct {
	battles    BattleManager
	votes      VoteBook
	gifts      GiftGiver
	settlement Settler
	validator  *services.ValidationHelper
}

func NewBattleHandler(battles BattleManager, votes VoteBook, gifts GiftGiver, settlement Settler) *BattleHandler {
	return &BattleHandler{
		battles:    battles,
		votes:      votes,
		gifts:      gifts,
		settlement: settlement,
		validator:  services.NewValidationHelper(),
	}
}

// Routes mounts the battle endpoints. Callers must already be authenticated.
func (h *BattleHandler) Routes(r chi.Router) {
	r.Post("/battles", h.CreateBattle)
	r.Get("/battles", h.ListBattles)
	r.Get("/battles/{battleId}", h.GetBattle)
	r.Post("/battles/{battleId}/accept", h.AcceptBattle)
	r.Post("/battles/{battleId}/cancel", h.CancelBattle)
	r.Post("/battles/{battleId}/votes", h.CastVote)
	r.Get("/battles/{battleId}/votes/me", h.MyVote)
	r.Post("/battles/{battleId}/gifts", h.GiftFlames)
	r.Get("/battles/{battleId}/gifts", h.GiftTotal)
	r.Post("/battles/{battleId}/settle", h.SettleBattle)
	r.With(middleware.RequireAdmin).Post("/admin/sweep", h.Sweep)
	r.With(middleware.RequireAdmin).Get("/admin/battles/{battleId}/consistency", h.TallyCheck)
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return userID, ok
}

// CreateBattle opens a new battle
// @Summary Create battle
// @Description Open a battle on a beat. Naming an opponent makes it a direct challenge only they can accept.
// @Tags Battles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateBattleRequest true "Battle"
// @Success 201 {object} models.Battle
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /battles [post]
func (h *BattleHandler) CreateBattle(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.CreateBattleRequest
	if !h.validator.DecodeJSON(w, r, &req) {
		return
	}
	req.CreatorID = userID

	battle, err := h.battles.CreateBattle(r.Context(), req)
	if err != nil {
		respondError(w, "create battle", err)
		return
	}
	services.SendJSON(w, http.StatusCreated, battle)
}

// ListBattles lists recent battles
// @Summary List battles
// @Tags Battles
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, Challenge, Active, Closed or Cancelled"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {array} models.Battle
// @Router /battles [get]
func (h *BattleHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch models.BattleStatus(status) {
	case "", models.BattlePending, models.BattleChallenge, models.BattleActive, models.BattleClosed, models.BattleCancelled:
	default:
		services.SendErrorResponse(w, "Unknown status", http.StatusBadRequest, nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	battles, err := h.battles.ListBattles(r.Context(), status, limit)
	if err != nil {
		respondError(w, "list battles", err)
		return
	}
	services.SendJSON(w, http.StatusOK, battles)
}

// GetBattle returns one battle with its tallies
// @Summary Get battle
// @Tags Battles
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 200 {object} models.Battle
// @Failure 404 {object} services.ErrorResponse
// @Router /battles/{battleId} [get]
func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	battle, err := h.battles.GetBattle(r.Context(), chi.URLParam(r, "battleId"))
	if err != nil {
		respondError(w, "get battle", err)
		return
	}
	services.SendJSON(w, http.StatusOK, battle)
}

// AcceptBattle enters the caller as opponent
// @Summary Accept battle
// @Description Submit the second entry. Voting opens immediately.
// @Tags Battles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Param request body services.AcceptBattleRequest true "Entry"
// @Success 200 {object} models.Battle
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 410 {object} services.ErrorResponse
// @Router /battles/{battleId}/accept [post]
func (h *BattleHandler) AcceptBattle(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.AcceptBattleRequest
	if !h.validator.DecodeJSON(w, r, &req) {
		return
	}

	battle, err := h.battles.AcceptBattle(r.Context(), chi.URLParam(r, "battleId"), userID, req)
	if err != nil {
		respondError(w, "accept battle", err)
		return
	}
	services.SendJSON(w, http.StatusOK, battle)
}

// CancelBattle withdraws a battle nobody has entered
// @Summary Cancel battle
// @Tags Battles
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 200 {object} models.Battle
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /battles/{battleId}/cancel [post]
func (h *BattleHandler) CancelBattle(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	battle, err := h.battles.CancelBattle(r.Context(), chi.URLParam(r, "battleId"), userID)
	if err != nil {
		respondError(w, "cancel battle", err)
		return
	}
	services.SendJSON(w, http.StatusOK, battle)
}

// CastVote spends one flame on a vote
// @Summary Vote
// @Tags Votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Param request body services.CastVoteRequest true "Side or participant id"
// @Success 201 {object} models.VoteReceipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 410 {object} services.ErrorResponse
// @Router /battles/{battleId}/votes [post]
func (h *BattleHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.CastVoteRequest
	if !h.validator.DecodeJSON(w, r, &req) {
		return
	}

	receipt, err := h.votes.CastVote(r.Context(), chi.URLParam(r, "battleId"), userID, req.Side)
	if err != nil {
		respondError(w, "cast vote", err)
		return
	}
	services.SendJSON(w, http.StatusCreated, receipt)
}

// MyVote returns the caller's vote on a battle
// @Summary My vote
// @Tags Votes
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 200 {object} models.Vote
// @Failure 404 {object} services.ErrorResponse
// @Router /battles/{battleId}/votes/me [get]
func (h *BattleHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	vote, err := h.votes.GetVote(r.Context(), chi.URLParam(r, "battleId"), userID)
	if err != nil {
		respondError(w, "get vote", err)
		return
	}
	if vote == nil {
		services.SendErrorResponse(w, "No vote on this battle", http.StatusNotFound, nil)
		return
	}
	services.SendJSON(w, http.StatusOK, vote)
}

// GiftFlames sends flames to a battle
// @Summary Gift flames
// @Tags Gifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Param request body services.GiftRequest true "Amount"
// @Success 201 {object} models.GiftReceipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /battles/{battleId}/gifts [post]
func (h *BattleHandler) GiftFlames(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.GiftRequest
	if !h.validator.DecodeJSON(w, r, &req) {
		return
	}

	receipt, err := h.gifts.GiftFlames(r.Context(), chi.URLParam(r, "battleId"), userID, req.Amount)
	if err != nil {
		respondError(w, "gift flames", err)
		return
	}
	services.SendJSON(w, http.StatusCreated, receipt)
}

// GiftTotal sums the gifts a battle received
// @Summary Gift total
// @Tags Gifts
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 200 {object} services.GiftTotal
// @Router /battles/{battleId}/gifts [get]
func (h *BattleHandler) GiftTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.gifts.GiftTotal(r.Context(), chi.URLParam(r, "battleId"))
	if err != nil {
		respondError(w, "gift total", err)
		return
	}
	services.SendJSON(w, http.StatusOK, total)
}

// SettleBattle closes a battle
// @Summary Settle battle
// @Description Admins may settle at any time; everyone else only after voting has ended.
// @Tags Settlement
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 200 {object} models.Settlement
// @Failure 409 {object} services.ErrorResponse
// @Router /battles/{battleId}/settle [post]
func (h *BattleHandler) SettleBattle(w http.ResponseWriter, r *http.Request) {
	battleID := chi.URLParam(r, "battleId")

	var settlement *models.Settlement
	var err error
	if middleware.IsAdmin(r.Context()) {
		settlement, err = h.settlement.SettleBattle(r.Context(), battleID)
	} else {
		settlement, err = h.settlement.SettleIfExpired(r.Context(), battleID)
	}
	if err != nil {
		respondError(w, "settle battle", err)
		return
	}
	services.SendJSON(w, http.StatusOK, settlement)
}

// Sweep settles every expired battle now
// @Summary Run settlement sweep
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SweepResult
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/sweep [post]
func (h *BattleHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.settlement.SweepExpired(r.Context())
	if err != nil {
		respondError(w, "sweep", err)
		return
	}
	services.SendJSON(w, http.StatusOK, result)
}

// TallyCheck compares a battle's counters against its vote rows
// @Summary Check vote tally
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 200 {object} TallyCheckResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/battles/{battleId}/consistency [get]
func (h *BattleHandler) TallyCheck(w http.ResponseWriter, r *http.Request) {
	battleID := chi.URLParam(r, "battleId")

	consistent, err := h.votes.TallyMatches(r.Context(), battleID)
	if err != nil {
		respondError(w, "tally check", err)
		return
	}
	if !consistent {
		log.Printf("[TALLY] battle %s counters drifted from vote rows", battleID)
	}
	services.SendJSON(w, http.StatusOK, TallyCheckResponse{BattleID: battleID, Consistent: consistent})
}
