package models

import "time"

type UserRole string

const (
	RoleFreelancer UserRole = "freelancer"
	RoleClient     UserRole = "client"
	RoleBoth       UserRole = "both"
)

type SubscriptionType string

const (
	SubscriptionFree           SubscriptionType = "free"
	SubscriptionFreelancerPlus SubscriptionType = "freelancer_plus"
)

type User struct {
	ID                    string           `db:"id" json:"id"`
	Email                 string           `db:"email" json:"email"`
	Username              string           `db:"username" json:"username"`
	PasswordHash          string           `db:"password_hash" json:"-"`
	Role                  UserRole         `db:"role" json:"role"`
	TotalEarned           int64            `db:"total_earned" json:"total_earned"`
	TotalSpent            int64            `db:"total_spent" json:"total_spent"`
	ConnectsBalance       int              `db:"connects_balance" json:"connects_balance"`
	SubscriptionType      SubscriptionType `db:"subscription_type" json:"subscription_type"`
	SubscriptionExpiresAt *time.Time       `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	ProfilePromotedUntil  *time.Time       `db:"profile_promoted_until" json:"profile_promoted_until,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
}

type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
	ProjectDisputed   ProjectStatus = "disputed"
)

type Project struct {
	ID                   string        `db:"id" json:"id"`
	ClientID             string        `db:"client_id" json:"client_id"`
	Title                string        `db:"title" json:"title"`
	Description          string        `db:"description" json:"description"`
	Status               ProjectStatus `db:"status" json:"status"`
	Budget               int64         `db:"budget" json:"budget"`
	ConnectsToApply      int           `db:"connects_to_apply" json:"connects_to_apply"`
	ProposalsCount       int           `db:"proposals_count" json:"proposals_count"`
	SelectedFreelancerID *string       `db:"selected_freelancer_id" json:"selected_freelancer_id,omitempty"`
	EscrowFunded         bool          `db:"escrow_funded" json:"escrow_funded"`
	EscrowAmount         int64         `db:"escrow_amount" json:"escrow_amount"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	PublishedAt          *time.Time    `db:"published_at" json:"published_at,omitempty"`
	CompletedAt          *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneFunded    MilestoneStatus = "funded"
	MilestoneReleased  MilestoneStatus = "released"
	MilestoneCancelled MilestoneStatus = "cancelled"
)

type Milestone struct {
	ID        string          `db:"id" json:"id"`
	ProjectID string          `db:"project_id" json:"project_id"`
	Title     string          `db:"title" json:"title"`
	Amount    int64           `db:"amount" json:"amount"`
	Status    MilestoneStatus `db:"status" json:"status"`
	Position  int             `db:"position" json:"position"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

type Proposal struct {
	ID             string         `db:"id" json:"id"`
	ProjectID      string         `db:"project_id" json:"project_id"`
	FreelancerID   string         `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter    string         `db:"cover_letter" json:"cover_letter"`
	ProposedAmount int64          `db:"proposed_amount" json:"proposed_amount"`
	ConnectsSpent  int            `db:"connects_spent" json:"connects_spent"`
	Status         ProposalStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

type TransactionType string

const (
	TypeEscrowFund          TransactionType = "escrow_fund"
	TypeEscrowRelease       TransactionType = "escrow_release"
	TypeEscrowRefund        TransactionType = "escrow_refund"
	TypeMilestoneFund       TransactionType = "milestone_fund"
	TypeMilestoneRelease    TransactionType = "milestone_release"
	TypeConnectsPurchase    TransactionType = "connects_purchase"
	TypeSubscriptionPayment TransactionType = "subscription_payment"
	TypeProfilePromotion    TransactionType = "profile_promotion"
	TypeWithdrawal          TransactionType = "withdrawal"
	TypeCommission          TransactionType = "commission"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
	StatusRefunded   TransactionStatus = "refunded"
)

// Terminal reports whether the status admits no further transitions.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

type Transaction struct {
	ID               string            `db:"id" json:"id"`
	PayerID          *string           `db:"payer_id" json:"payer_id,omitempty"`
	PayeeID          *string           `db:"payee_id" json:"payee_id,omitempty"`
	ProjectID        *string           `db:"project_id" json:"project_id,omitempty"`
	Type             TransactionType   `db:"type" json:"type"`
	Amount           int64             `db:"amount" json:"amount"`
	CommissionAmount int64             `db:"commission_amount" json:"commission_amount"`
	CommissionRate   string            `db:"commission_rate" json:"commission_rate"`
	NetAmount        int64             `db:"net_amount" json:"net_amount"`
	Status           TransactionStatus `db:"status" json:"status"`
	InvoiceID        *string           `db:"invoice_id" json:"invoice_id,omitempty"`
	Description      string            `db:"description" json:"description"`
	Metadata         string            `db:"metadata" json:"-"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
}
