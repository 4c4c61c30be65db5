package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/beatclash/backend/internal/services"
)

// statusFor maps engine errors onto HTTP status codes. Anything it does not
// recognise is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrBattleNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSelfBattle),
		errors.Is(err, services.ErrInvalidTarget),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrMissingBattleFields),
		errors.Is(err, services.ErrEntryRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBattleFull),
		errors.Is(err, services.ErrAlreadyVoted),
		errors.Is(err, services.ErrBattleNotActive),
		errors.Is(err, services.ErrBattleTerminal),
		errors.Is(err, services.ErrNotAcceptingGifts),
		errors.Is(err, services.ErrVotingOpen):
		return http.StatusConflict
	case errors.Is(err, services.ErrDeadlinePassed),
		errors.Is(err, services.ErrBattleExpired):
		return http.StatusGone
	case errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvitesUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, tag string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s: %v", tag, err)
		services.SendErrorResponse(w, "Internal server error", status, nil)
		return
	}
	services.SendErrorResponse(w, err.Error(), status, nil)
}
