package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"workhub/internal/middleware"
	"workhub/internal/services"

	"github.com/go-chi/chi/v5"
)

type submitProposalRequest struct {
	ProjectID      string `json:"project_id"`
	CoverLetter    string `json:"cover_letter"`
	ProposedAmount string `json:"proposed_amount"`
}

func (h *Handler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req submitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmountMinor(req.ProposedAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "proposed_amount must be a positive decimal string")
		return
	}
	proposal, err := h.proposalSvc.Submit(r.Context(), services.SubmitProposalRequest{
		FreelancerID:   userID,
		ProjectID:      req.ProjectID,
		CoverLetter:    req.CoverLetter,
		ProposedAmount: amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, proposal)
}

func (h *Handler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	proposalID := chi.URLParam(r, "proposalID")
	result, err := h.proposalSvc.Accept(r.Context(), userID, proposalID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) WithdrawProposal(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	proposalID := chi.URLParam(r, "proposalID")
	if err := h.proposalSvc.Withdraw(r.Context(), userID, proposalID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *Handler) MyProposals(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	page := parseInt(r.URL.Query().Get("page"), 1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}
	rows, err := h.proposals.ListByFreelancer(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}
	for _, row := range rows {
		row["proposed_amount"] = valueToMoney(row["proposed_amount"])
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"proposals": rows,
		"page":      page,
		"limit":     limit,
	})
}

// ProjectProposals lists the proposals on a project for its owner.
func (h *Handler) ProjectProposals(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "projectID")
	project, err := h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if project.ClientID != userID {
		respondError(w, http.StatusForbidden, "access_denied")
		return
	}
	rows, err := h.proposals.ListByProject(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}
	for _, row := range rows {
		row["proposed_amount"] = valueToMoney(row["proposed_amount"])
	}
	respondJSON(w, http.StatusOK, map[string]any{"proposals": rows})
}
