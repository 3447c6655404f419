package store

import (
	"context"

	"workhub/internal/models"
)

type ProjectStore struct {
	db DB
}

func NewProjectStore(db DB) *ProjectStore {
	return &ProjectStore{db: db}
}

type ProjectInput struct {
	ID              string
	ClientID        string
	Title           string
	Description     string
	Status          string
	Budget          int64
	ConnectsToApply int
}

type MilestoneInput struct {
	ID        string
	ProjectID string
	Title     string
	Amount    int64
	Position  int
}

func (s *ProjectStore) Create(ctx context.Context, tx Execer, input ProjectInput) error {
	query := `
		INSERT INTO projects (id, client_id, title, description, status, budget, connects_to_apply)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.ClientID, input.Title, input.Description, input.Status,
		input.Budget, input.ConnectsToApply,
	)
	return err
}

func (s *ProjectStore) CreateMilestone(ctx context.Context, tx Execer, input MilestoneInput) error {
	query := `
		INSERT INTO milestones (id, project_id, title, amount, status, position)
		VALUES ($1, $2, $3, $4, 'pending', $5)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.ProjectID, input.Title, input.Amount, input.Position,
	)
	return err
}

func (s *ProjectStore) GetByID(ctx context.Context, projectID string) (models.Project, error) {
	var project models.Project
	err := s.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1`, projectID)
	return project, err
}

func (s *ProjectStore) GetForUpdate(ctx context.Context, tx Getter, projectID string) (models.Project, error) {
	var project models.Project
	err := tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1 FOR UPDATE`, projectID)
	return project, err
}

func (s *ProjectStore) UpdateStatus(ctx context.Context, tx Execer, projectID string, status models.ProjectStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE projects SET status = $1 WHERE id = $2`, status, projectID)
	return err
}

func (s *ProjectStore) Publish(ctx context.Context, tx Execer, projectID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = 'open', published_at = NOW() WHERE id = $1`,
		projectID,
	)
	return err
}

func (s *ProjectStore) MarkCompleted(ctx context.Context, tx Execer, projectID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET status = 'completed', completed_at = NOW() WHERE id = $1`,
		projectID,
	)
	return err
}

func (s *ProjectStore) SetEscrowFunded(ctx context.Context, tx Execer, projectID string, amount int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET escrow_funded = TRUE, escrow_amount = $1 WHERE id = $2`,
		amount, projectID,
	)
	return err
}

// AssignFreelancer records the accepted freelancer and moves the project
// into in_progress.
func (s *ProjectStore) AssignFreelancer(ctx context.Context, tx Execer, projectID, freelancerID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET selected_freelancer_id = $1, status = 'in_progress' WHERE id = $2`,
		freelancerID, projectID,
	)
	return err
}

func (s *ProjectStore) AdjustProposalsCount(ctx context.Context, tx Execer, projectID string, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET proposals_count = proposals_count + $1 WHERE id = $2`,
		delta, projectID,
	)
	return err
}

func (s *ProjectStore) GetMilestone(ctx context.Context, milestoneID string) (models.Milestone, error) {
	var milestone models.Milestone
	err := s.db.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1`, milestoneID)
	return milestone, err
}

func (s *ProjectStore) GetMilestoneForUpdate(ctx context.Context, tx Getter, milestoneID string) (models.Milestone, error) {
	var milestone models.Milestone
	err := tx.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1 FOR UPDATE`, milestoneID)
	return milestone, err
}

func (s *ProjectStore) UpdateMilestoneStatus(ctx context.Context, tx Execer, milestoneID string, status models.MilestoneStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE milestones SET status = $1 WHERE id = $2`, status, milestoneID)
	return err
}

func (s *ProjectStore) ListMilestones(ctx context.Context, projectID string) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := s.db.SelectContext(ctx, &milestones,
		`SELECT * FROM milestones WHERE project_id = $1 ORDER BY position`,
		projectID,
	)
	return milestones, err
}
