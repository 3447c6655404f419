package store

import (
	"context"
	"fmt"
	"time"

	"workhub/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

type TransactionInput struct {
	ID               string
	PayerID          *string
	PayeeID          *string
	ProjectID        *string
	Type             string
	Amount           int64
	CommissionAmount int64
	CommissionRate   string
	NetAmount        int64
	Status           string
	InvoiceID        *string
	Description      string
	Metadata         string
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO transactions (id, payer_id, payee_id, project_id, type, amount, commission_amount,
		                          commission_rate, net_amount, status, invoice_id, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.PayerID, input.PayeeID, input.ProjectID, input.Type,
		input.Amount, input.CommissionAmount, input.CommissionRate, input.NetAmount,
		input.Status, input.InvoiceID, input.Description, input.Metadata,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var entry models.Transaction
	err := s.db.GetContext(ctx, &entry, `SELECT * FROM transactions WHERE id = $1`, transactionID)
	return entry, err
}

// GetByInvoiceForUpdate locks the entry matching a gateway invoice so a
// concurrent duplicate webhook blocks behind the first delivery.
func (s *TransactionStore) GetByInvoiceForUpdate(ctx context.Context, tx Getter, invoiceID string) (models.Transaction, error) {
	var entry models.Transaction
	err := tx.GetContext(ctx, &entry, `SELECT * FROM transactions WHERE invoice_id = $1 FOR UPDATE`, invoiceID)
	return entry, err
}

func (s *TransactionStore) MarkCompleted(ctx context.Context, tx Execer, transactionID string, completedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = 'completed', completed_at = $1 WHERE id = $2`,
		completedAt, transactionID,
	)
	return err
}

func (s *TransactionStore) UpdateStatus(ctx context.Context, tx Execer, transactionID string, status models.TransactionStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, transactionID)
	return err
}

// SumWithdrawalsInFlight totals pending and processing withdrawal
// amounts for the payee.
func (s *TransactionStore) SumWithdrawalsInFlight(ctx context.Context, tx Getter, userID string) (int64, error) {
	var total int64
	err := tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE payee_id = $1 AND type = 'withdrawal' AND status IN ('pending', 'processing')
	`, userID)
	return total, err
}

type transactionRow struct {
	ID               string  `db:"id"`
	PayerID          *string `db:"payer_id"`
	PayerUsername    *string `db:"payer_username"`
	PayeeID          *string `db:"payee_id"`
	PayeeUsername    *string `db:"payee_username"`
	ProjectID        *string `db:"project_id"`
	ProjectTitle     *string `db:"project_title"`
	Type             string  `db:"type"`
	Status           string  `db:"status"`
	Amount           int64   `db:"amount"`
	CommissionAmount int64   `db:"commission_amount"`
	NetAmount        int64   `db:"net_amount"`
	Description      string  `db:"description"`
	CreatedAt        any     `db:"created_at"`
	CompletedAt      any     `db:"completed_at"`
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType, status string, limit, offset int) ([]map[string]any, error) {
	var rows []transactionRow
	query := `
		SELECT t.id, t.payer_id, pu.username AS payer_username, t.payee_id, eu.username AS payee_username,
		       t.project_id, pr.title AS project_title, t.type, t.status, t.amount,
		       t.commission_amount, t.net_amount, t.description, t.created_at, t.completed_at
		FROM transactions t
		LEFT JOIN users pu ON pu.id = t.payer_id
		LEFT JOIN users eu ON eu.id = t.payee_id
		LEFT JOIN projects pr ON pr.id = t.project_id
		WHERE (t.payer_id = $1 OR t.payee_id = $1)
	`
	args := []any{userID}
	param := 2
	if txType != "" {
		query += fmt.Sprintf(" AND t.type = $%d", param)
		args = append(args, txType)
		param++
	}
	if status != "" {
		query += fmt.Sprintf(" AND t.status = $%d", param)
		args = append(args, status)
		param++
	}
	query += fmt.Sprintf(" ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d", param, param+1)
	args = append(args, limit, offset)
	var err = s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return transactionRowsToMaps(rows), nil
}

func transactionRowsToMaps(rows []transactionRow) []map[string]any {
	maps := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		maps = append(maps, map[string]any{
			"id":                row.ID,
			"payer_id":          derefStringPtr(row.PayerID),
			"payer_username":    derefStringPtr(row.PayerUsername),
			"payee_id":          derefStringPtr(row.PayeeID),
			"payee_username":    derefStringPtr(row.PayeeUsername),
			"project_id":        derefStringPtr(row.ProjectID),
			"project_title":     derefStringPtr(row.ProjectTitle),
			"type":              row.Type,
			"status":            row.Status,
			"amount":            row.Amount,
			"commission_amount": row.CommissionAmount,
			"net_amount":        row.NetAmount,
			"description":       row.Description,
			"created_at":        row.CreatedAt,
			"completed_at":      row.CompletedAt,
		})
	}
	return maps
}

func derefStringPtr(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
