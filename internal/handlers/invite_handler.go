package handlers

import (
	"context"
	"net/http"

	"github.com/beatclash/backend/internal/models"
	"github.com/beatclash/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type InviteIssuer interface {
	CreateInvite(ctx context.Context, battleID, callerID string) (*services.Invite, error)
	ResolveInvite(ctx context.Context, code string) (*models.Battle, error)
}

type InviteHandler struct {
	invites InviteIssuer
}

func NewInviteHandler(invites InviteIssuer) *InviteHandler {
	return &InviteHandler{invites: invites}
}

func (h *InviteHandler) Routes(r chi.Router) {
	r.Post("/battles/{battleId}/invites", h.CreateInvite)
	r.Get("/invites/{code}", h.ResolveInvite)
}

// CreateInvite issues a shareable code with a QR image
// @Summary Create invite
// @Description Generate a short-lived invite code and QR for an open battle
// @Tags Invites
// @Produce json
// @Security BearerAuth
// @Param battleId path string true "Battle ID"
// @Success 201 {object} services.Invite
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /battles/{battleId}/invites [post]
func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	invite, err := h.invites.CreateInvite(r.Context(), chi.URLParam(r, "battleId"), userID)
	if err != nil {
		respondError(w, "create invite", err)
		return
	}
	services.SendJSON(w, http.StatusCreated, invite)
}

// ResolveInvite returns the battle behind a code
// @Summary Resolve invite
// @Tags Invites
// @Produce json
// @Security BearerAuth
// @Param code path string true "Invite code"
// @Success 200 {object} models.Battle
// @Failure 404 {object} services.ErrorResponse
// @Router /invites/{code} [get]
func (h *InviteHandler) ResolveInvite(w http.ResponseWriter, r *http.Request) {
	battle, err := h.invites.ResolveInvite(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, "resolve invite", err)
		return
	}
	services.SendJSON(w, http.StatusOK, battle)
}
