package store

import (
	"context"

	"workhub/internal/models"
)

type ProposalStore struct {
	db DB
}

func NewProposalStore(db DB) *ProposalStore {
	return &ProposalStore{db: db}
}

type ProposalInput struct {
	ID             string
	ProjectID      string
	FreelancerID   string
	CoverLetter    string
	ProposedAmount int64
	ConnectsSpent  int
}

func (s *ProposalStore) Create(ctx context.Context, tx Execer, input ProposalInput) error {
	query := `
		INSERT INTO proposals (id, project_id, freelancer_id, cover_letter, proposed_amount, connects_spent, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.ProjectID, input.FreelancerID, input.CoverLetter,
		input.ProposedAmount, input.ConnectsSpent,
	)
	return err
}

func (s *ProposalStore) GetByID(ctx context.Context, proposalID string) (models.Proposal, error) {
	var proposal models.Proposal
	err := s.db.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1`, proposalID)
	return proposal, err
}

func (s *ProposalStore) GetForUpdate(ctx context.Context, tx Getter, proposalID string) (models.Proposal, error) {
	var proposal models.Proposal
	err := tx.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`, proposalID)
	return proposal, err
}

// ExistsForProject reports whether the freelancer already has a proposal
// on the project, in any status.
func (s *ProposalStore) ExistsForProject(ctx context.Context, tx Getter, projectID, freelancerID string) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM proposals WHERE project_id = $1 AND freelancer_id = $2`,
		projectID, freelancerID,
	)
	return count > 0, err
}

func (s *ProposalStore) UpdateStatus(ctx context.Context, tx Execer, proposalID string, status models.ProposalStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE proposals SET status = $1 WHERE id = $2`, status, proposalID)
	return err
}

// RejectPending rejects every pending sibling proposal on the project
// except the accepted one and returns how many were rejected.
func (s *ProposalStore) RejectPending(ctx context.Context, tx Execer, projectID, exceptID string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE proposals SET status = 'rejected' WHERE project_id = $1 AND id <> $2 AND status = 'pending'`,
		projectID, exceptID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type proposalRow struct {
	ID             string  `db:"id"`
	ProjectID      string  `db:"project_id"`
	ProjectTitle   *string `db:"project_title"`
	FreelancerID   string  `db:"freelancer_id"`
	Freelancer     *string `db:"freelancer_username"`
	CoverLetter    string  `db:"cover_letter"`
	ProposedAmount int64   `db:"proposed_amount"`
	ConnectsSpent  int     `db:"connects_spent"`
	Status         string  `db:"status"`
	CreatedAt      any     `db:"created_at"`
}

func (s *ProposalStore) ListByFreelancer(ctx context.Context, freelancerID string, limit, offset int) ([]map[string]any, error) {
	var rows []proposalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.project_id, pr.title AS project_title, p.freelancer_id,
		       u.username AS freelancer_username, p.cover_letter, p.proposed_amount,
		       p.connects_spent, p.status, p.created_at
		FROM proposals p
		LEFT JOIN projects pr ON pr.id = p.project_id
		LEFT JOIN users u ON u.id = p.freelancer_id
		WHERE p.freelancer_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`, freelancerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return proposalRowsToMaps(rows), nil
}

func (s *ProposalStore) ListByProject(ctx context.Context, projectID string) ([]map[string]any, error) {
	var rows []proposalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.id, p.project_id, pr.title AS project_title, p.freelancer_id,
		       u.username AS freelancer_username, p.cover_letter, p.proposed_amount,
		       p.connects_spent, p.status, p.created_at
		FROM proposals p
		LEFT JOIN projects pr ON pr.id = p.project_id
		LEFT JOIN users u ON u.id = p.freelancer_id
		WHERE p.project_id = $1
		ORDER BY p.created_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	return proposalRowsToMaps(rows), nil
}

func proposalRowsToMaps(rows []proposalRow) []map[string]any {
	maps := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		maps = append(maps, map[string]any{
			"id":                  row.ID,
			"project_id":          row.ProjectID,
			"project_title":       derefStringPtr(row.ProjectTitle),
			"freelancer_id":       row.FreelancerID,
			"freelancer_username": derefStringPtr(row.Freelancer),
			"cover_letter":        row.CoverLetter,
			"proposed_amount":     row.ProposedAmount,
			"connects_spent":      row.ConnectsSpent,
			"status":              row.Status,
			"created_at":          row.CreatedAt,
		})
	}
	return maps
}
