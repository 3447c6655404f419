package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"workhub/internal/gateway"
	"workhub/internal/money"
	"workhub/internal/services"

	"github.com/lib/pq"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service sentinel errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, services.ErrProjectNotFound):
		respondError(w, http.StatusNotFound, "project_not_found")
	case errors.Is(err, services.ErrMilestoneNotFound):
		respondError(w, http.StatusNotFound, "milestone_not_found")
	case errors.Is(err, services.ErrProposalNotFound):
		respondError(w, http.StatusNotFound, "proposal_not_found")
	case errors.Is(err, services.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found")
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, "access_denied")
	case errors.Is(err, services.ErrInvalidState):
		respondError(w, http.StatusBadRequest, "invalid_state")
	case errors.Is(err, services.ErrMilestoneAlreadyFunded):
		respondError(w, http.StatusBadRequest, "milestone_already_funded")
	case errors.Is(err, services.ErrAlreadyApplied):
		respondError(w, http.StatusBadRequest, "already_applied")
	case errors.Is(err, services.ErrInsufficientBalance):
		respondError(w, http.StatusBadRequest, "insufficient_balance")
	case errors.Is(err, services.ErrInsufficientConnects):
		respondError(w, http.StatusBadRequest, "insufficient_connects")
	case errors.Is(err, gateway.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "payment_gateway_unavailable")
	default:
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			respondError(w, http.StatusConflict, "duplicate_request")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func valueToMoney(value any) string {
	return money.FormatMinor(money.ValueToInt64(value))
}
