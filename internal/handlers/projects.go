package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"workhub/internal/middleware"
	"workhub/internal/models"
	"workhub/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type milestoneRequest struct {
	Title  string `json:"title"`
	Amount string `json:"amount"`
}

type createProjectRequest struct {
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Budget          string             `json:"budget"`
	ConnectsToApply int                `json:"connects_to_apply"`
	Milestones      []milestoneRequest `json:"milestones"`
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Description == "" {
		respondError(w, http.StatusBadRequest, "title and description are required")
		return
	}
	budget, err := parseAmountMinor(req.Budget)
	if err != nil {
		respondError(w, http.StatusBadRequest, "budget must be a positive decimal string")
		return
	}
	connects := req.ConnectsToApply
	if connects <= 0 {
		connects = 4
	}

	type milestoneInput struct {
		title  string
		amount int64
	}
	milestones := make([]milestoneInput, 0, len(req.Milestones))
	for _, m := range req.Milestones {
		amount, err := parseAmountMinor(m.Amount)
		if err != nil || m.Title == "" {
			respondError(w, http.StatusBadRequest, "each milestone needs a title and a positive amount")
			return
		}
		milestones = append(milestones, milestoneInput{title: m.Title, amount: amount})
	}

	projectID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.projects.Create(r.Context(), tx, store.ProjectInput{
			ID:              projectID,
			ClientID:        userID,
			Title:           req.Title,
			Description:     req.Description,
			Status:          string(models.ProjectDraft),
			Budget:          budget,
			ConnectsToApply: connects,
		}); err != nil {
			return err
		}
		for i, m := range milestones {
			if err := h.projects.CreateMilestone(r.Context(), tx, store.MilestoneInput{
				ID:        uuid.NewString(),
				ProjectID: projectID,
				Title:     m.title,
				Amount:    m.amount,
				Position:  i + 1,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	project, err := h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	respondJSON(w, http.StatusCreated, project)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
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
	milestones, err := h.projects.ListMilestones(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load milestones")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"project":    project,
		"milestones": milestones,
	})
}

// PublishProject moves a draft project into open so freelancers can
// apply.
func (h *Handler) PublishProject(w http.ResponseWriter, r *http.Request) {
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
	if project.Status != models.ProjectDraft {
		respondError(w, http.StatusBadRequest, "only draft projects can be published")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.projects.Publish(r.Context(), tx, projectID)
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	project, err = h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	respondJSON(w, http.StatusOK, project)
}
