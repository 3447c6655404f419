package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"workhub/internal/db"
	"workhub/internal/models"
	"workhub/internal/store"
	"workhub/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrAlreadyApplied       = errors.New("proposal already submitted for this project")
	ErrInsufficientConnects = errors.New("not enough connects")
)

type ProposalService struct {
	txRunner  db.TxRunner
	users     UserStore
	projects  ProjectStore
	proposals ProposalStore
	audit     AuditStore
}

type ProposalStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ProposalInput) error
	GetForUpdate(ctx context.Context, tx store.Getter, proposalID string) (models.Proposal, error)
	ExistsForProject(ctx context.Context, tx store.Getter, projectID, freelancerID string) (bool, error)
	UpdateStatus(ctx context.Context, tx store.Execer, proposalID string, status models.ProposalStatus) error
	RejectPending(ctx context.Context, tx store.Execer, projectID, exceptID string) (int64, error)
}

func NewProposalService(txRunner db.TxRunner, users UserStore, projects ProjectStore, proposals ProposalStore, audit AuditStore) *ProposalService {
	return &ProposalService{
		txRunner:  txRunner,
		users:     users,
		projects:  projects,
		proposals: proposals,
		audit:     audit,
	}
}

type SubmitProposalRequest struct {
	FreelancerID   string `validate:"required"`
	ProjectID      string `validate:"required"`
	CoverLetter    string `validate:"required,min=30"`
	ProposedAmount int64  `validate:"required,gt=0"`
}

// Submit spends the project's connects price and files a pending
// proposal. One proposal per freelancer per project.
func (s *ProposalService) Submit(ctx context.Context, req SubmitProposalRequest) (models.Proposal, error) {
	if err := validator.Struct(req); err != nil {
		return models.Proposal{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var proposal models.Proposal
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		project, err := s.projects.GetForUpdate(ctx, tx, req.ProjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return err
		}
		if project.Status != models.ProjectOpen {
			return ErrInvalidState
		}
		exists, err := s.proposals.ExistsForProject(ctx, tx, req.ProjectID, req.FreelancerID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyApplied
		}
		freelancer, err := s.users.GetForUpdate(ctx, tx, req.FreelancerID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if freelancer.ConnectsBalance < project.ConnectsToApply {
			return ErrInsufficientConnects
		}
		if err := s.users.AdjustConnects(ctx, tx, req.FreelancerID, -project.ConnectsToApply); err != nil {
			return err
		}
		if err := s.projects.AdjustProposalsCount(ctx, tx, req.ProjectID, 1); err != nil {
			return err
		}
		proposalID := uuid.NewString()
		if err := s.proposals.Create(ctx, tx, store.ProposalInput{
			ID:             proposalID,
			ProjectID:      req.ProjectID,
			FreelancerID:   req.FreelancerID,
			CoverLetter:    req.CoverLetter,
			ProposedAmount: req.ProposedAmount,
			ConnectsSpent:  project.ConnectsToApply,
		}); err != nil {
			return err
		}
		proposal = models.Proposal{
			ID:             proposalID,
			ProjectID:      req.ProjectID,
			FreelancerID:   req.FreelancerID,
			CoverLetter:    req.CoverLetter,
			ProposedAmount: req.ProposedAmount,
			ConnectsSpent:  project.ConnectsToApply,
			Status:         models.ProposalPending,
		}
		return nil
	})
	if err != nil {
		return models.Proposal{}, err
	}
	return proposal, nil
}

type AcceptResult struct {
	ProposalID   string `json:"proposal_id"`
	ProjectID    string `json:"project_id"`
	FreelancerID string `json:"freelancer_id"`
	Rejected     int64  `json:"rejected_proposals"`
}

// Accept locks the proposal and its project, assigns the freelancer and
// rejects every other pending proposal in the same transaction.
func (s *ProposalService) Accept(ctx context.Context, clientID, proposalID string) (AcceptResult, error) {
	var result AcceptResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		proposal, err := s.proposals.GetForUpdate(ctx, tx, proposalID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProposalNotFound
		}
		if err != nil {
			return err
		}
		project, err := s.projects.GetForUpdate(ctx, tx, proposal.ProjectID)
		if err != nil {
			return err
		}
		if project.ClientID != clientID {
			return ErrForbidden
		}
		if project.Status != models.ProjectOpen || proposal.Status != models.ProposalPending {
			return ErrInvalidState
		}
		if err := s.proposals.UpdateStatus(ctx, tx, proposalID, models.ProposalAccepted); err != nil {
			return err
		}
		if err := s.projects.AssignFreelancer(ctx, tx, project.ID, proposal.FreelancerID); err != nil {
			return err
		}
		rejected, err := s.proposals.RejectPending(ctx, tx, project.ID, proposalID)
		if err != nil {
			return err
		}
		result = AcceptResult{
			ProposalID:   proposalID,
			ProjectID:    project.ID,
			FreelancerID: proposal.FreelancerID,
			Rejected:     rejected,
		}
		data, _ := json.Marshal(map[string]any{"freelancer_id": proposal.FreelancerID, "rejected": rejected})
		return s.audit.Log(ctx, tx, clientID, "proposal_accepted", "proposal", proposalID, string(data))
	})
	if err != nil {
		return AcceptResult{}, err
	}
	return result, nil
}

// Withdraw retracts the freelancer's own pending proposal. Spent
// connects are not refunded.
func (s *ProposalService) Withdraw(ctx context.Context, freelancerID, proposalID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		proposal, err := s.proposals.GetForUpdate(ctx, tx, proposalID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProposalNotFound
		}
		if err != nil {
			return err
		}
		if proposal.FreelancerID != freelancerID {
			return ErrForbidden
		}
		if proposal.Status != models.ProposalPending {
			return ErrInvalidState
		}
		if err := s.proposals.UpdateStatus(ctx, tx, proposalID, models.ProposalWithdrawn); err != nil {
			return err
		}
		return s.projects.AdjustProposalsCount(ctx, tx, proposal.ProjectID, -1)
	})
}
