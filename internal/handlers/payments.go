package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"workhub/internal/auth"
	"workhub/internal/gateway"
	"workhub/internal/middleware"
	"workhub/internal/services"
	"workhub/internal/websocket"
)

type fundEscrowRequest struct {
	ProjectID string `json:"project_id"`
	Amount    string `json:"amount"`
}

func (h *Handler) FundEscrow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req fundEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "amount must be a positive decimal string")
		return
	}
	resp, err := h.payments.FundEscrow(r.Context(), services.FundEscrowRequest{
		ClientID:  userID,
		ProjectID: req.ProjectID,
		Amount:    amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type fundMilestoneRequest struct {
	ProjectID   string `json:"project_id"`
	MilestoneID string `json:"milestone_id"`
	Amount      string `json:"amount"`
}

func (h *Handler) FundMilestone(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req fundMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "amount must be a positive decimal string")
		return
	}
	resp, err := h.payments.FundMilestone(r.Context(), services.FundMilestoneRequest{
		ClientID:    userID,
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
		Amount:      amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type releaseEscrowRequest struct {
	ProjectID string `json:"project_id"`
}

func (h *Handler) ReleaseEscrow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req releaseEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.payments.ReleaseEscrow(r.Context(), services.ReleaseEscrowRequest{
		ClientID:  userID,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type releaseMilestoneRequest struct {
	ProjectID   string `json:"project_id"`
	MilestoneID string `json:"milestone_id"`
}

func (h *Handler) ReleaseMilestone(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req releaseMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.payments.ReleaseMilestone(r.Context(), services.ReleaseMilestoneRequest{
		ClientID:    userID,
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type connectsPurchaseRequest struct {
	Connects int `json:"connects"`
}

func (h *Handler) PurchaseConnects(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req connectsPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.payments.PurchaseConnects(r.Context(), services.ConnectsPurchaseRequest{
		UserID:   userID,
		Connects: req.Connects,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type subscriptionRequest struct {
	Months int `json:"months"`
}

func (h *Handler) PurchaseSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.payments.PurchaseSubscription(r.Context(), services.SubscriptionRequest{
		UserID: userID,
		Months: req.Months,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type promotionRequest struct {
	Weeks int `json:"weeks"`
}

func (h *Handler) PromoteProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.payments.PromoteProfile(r.Context(), services.PromotionRequest{
		UserID: userID,
		Weeks:  req.Weeks,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type withdrawalRequest struct {
	Amount    string `json:"amount"`
	Card      string `json:"card"`
	IsExpress bool   `json:"is_express"`
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "amount must be a positive decimal string")
		return
	}
	resp, err := h.payments.RequestWithdrawal(r.Context(), services.WithdrawalRequest{
		UserID:    userID,
		Amount:    amount,
		Card:      req.Card,
		IsExpress: req.IsExpress,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	available, err := h.payments.AvailableBalance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"available": available,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	rows, err := h.transactions.ListByUser(r.Context(), userID,
		r.URL.Query().Get("type"), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	for _, row := range rows {
		row["amount"] = valueToMoney(row["amount"])
		row["commission_amount"] = valueToMoney(row["commission_amount"])
		row["net_amount"] = valueToMoney(row["net_amount"])
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": rows,
		"page":         page,
		"limit":        limit,
	})
}

// MonobankWebhook receives payment status callbacks from the gateway.
// The payload is verified against the X-Sign header before the invoice
// is reconciled.
func (h *Handler) MonobankWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if !h.verifier.VerifyWebhookSignature(body, r.Header.Get("X-Sign")) {
		respondError(w, http.StatusBadRequest, "invalid signature")
		return
	}
	event, err := gateway.ParseWebhook(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	outcome, err := h.payments.HandleWebhook(r.Context(), event)
	if err != nil {
		log.Printf("webhook for invoice %s failed: %v", event.InvoiceID, err)
		respondError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"outcome": string(outcome),
	})
}

// WSPayments upgrades the connection and streams payment events for the
// authenticated user. Browsers cannot set headers on websocket dials, so
// the token travels as a query parameter.
func (h *Handler) WSPayments(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
