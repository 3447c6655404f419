package store

import (
	"context"
	"time"

	"workhub/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type UserInput struct {
	ID              string
	Email           string
	Username        string
	PasswordHash    string
	Role            string
	ConnectsBalance int
}

func (s *UserStore) Create(ctx context.Context, tx Execer, input UserInput) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, connects_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.Email, input.Username, input.PasswordHash, input.Role, input.ConnectsBalance,
	)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, userID)
	return user, err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	return user, err
}

func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.User, error) {
	var user models.User
	err := tx.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1 FOR UPDATE`, userID)
	return user, err
}

// AdjustConnects shifts connects_balance by delta, which may be negative.
func (s *UserStore) AdjustConnects(ctx context.Context, tx Execer, userID string, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET connects_balance = connects_balance + $1 WHERE id = $2`,
		delta, userID,
	)
	return err
}

// AdjustTotals shifts the earned/spent aggregates in kopiykas.
func (s *UserStore) AdjustTotals(ctx context.Context, tx Execer, userID string, earnedDelta, spentDelta int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET total_earned = total_earned + $1, total_spent = total_spent + $2 WHERE id = $3`,
		earnedDelta, spentDelta, userID,
	)
	return err
}

func (s *UserStore) SetSubscription(ctx context.Context, tx Execer, userID string, subType models.SubscriptionType, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET subscription_type = $1, subscription_expires_at = $2 WHERE id = $3`,
		subType, expiresAt, userID,
	)
	return err
}

func (s *UserStore) SetPromotedUntil(ctx context.Context, tx Execer, userID string, until time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET profile_promoted_until = $1 WHERE id = $2`,
		until, userID,
	)
	return err
}
