package handlers

import (
	"context"

	"workhub/internal/config"
	"workhub/internal/db"
	"workhub/internal/gateway"
	"workhub/internal/models"
	"workhub/internal/services"
	"workhub/internal/store"
	"workhub/internal/websocket"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, input store.UserInput) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type ProjectStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ProjectInput) error
	CreateMilestone(ctx context.Context, tx store.Execer, input store.MilestoneInput) error
	GetByID(ctx context.Context, projectID string) (models.Project, error)
	Publish(ctx context.Context, tx store.Execer, projectID string) error
	ListMilestones(ctx context.Context, projectID string) ([]models.Milestone, error)
}

type ProposalStore interface {
	ListByFreelancer(ctx context.Context, freelancerID string, limit, offset int) ([]map[string]any, error)
	ListByProject(ctx context.Context, projectID string) ([]map[string]any, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID, txType, status string, limit, offset int) ([]map[string]any, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type PaymentService interface {
	FundEscrow(ctx context.Context, req services.FundEscrowRequest) (services.InvoiceResponse, error)
	FundMilestone(ctx context.Context, req services.FundMilestoneRequest) (services.InvoiceResponse, error)
	PurchaseConnects(ctx context.Context, req services.ConnectsPurchaseRequest) (services.InvoiceResponse, error)
	PurchaseSubscription(ctx context.Context, req services.SubscriptionRequest) (services.InvoiceResponse, error)
	PromoteProfile(ctx context.Context, req services.PromotionRequest) (services.InvoiceResponse, error)
	RequestWithdrawal(ctx context.Context, req services.WithdrawalRequest) (services.WithdrawalResponse, error)
	AvailableBalance(ctx context.Context, userID string) (int64, error)
	HandleWebhook(ctx context.Context, event gateway.WebhookEvent) (services.Outcome, error)
	ReleaseEscrow(ctx context.Context, req services.ReleaseEscrowRequest) (services.ReleaseResponse, error)
	ReleaseMilestone(ctx context.Context, req services.ReleaseMilestoneRequest) (services.ReleaseResponse, error)
}

type ProposalService interface {
	Submit(ctx context.Context, req services.SubmitProposalRequest) (models.Proposal, error)
	Accept(ctx context.Context, clientID, proposalID string) (services.AcceptResult, error)
	Withdraw(ctx context.Context, freelancerID, proposalID string) error
}

type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type Handler struct {
	cfg          config.Config
	txRunner     db.TxRunner
	users        UserStore
	projects     ProjectStore
	proposals    ProposalStore
	transactions TransactionStore
	audit        AuditStore
	payments     PaymentService
	proposalSvc  ProposalService
	verifier     WebhookVerifier
	hub          *websocket.Hub
}

func New(cfg config.Config, txRunner db.TxRunner, users UserStore, projects ProjectStore, proposals ProposalStore, transactions TransactionStore, audit AuditStore, payments PaymentService, proposalSvc ProposalService, verifier WebhookVerifier, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:          cfg,
		txRunner:     txRunner,
		users:        users,
		projects:     projects,
		proposals:    proposals,
		transactions: transactions,
		audit:        audit,
		payments:     payments,
		proposalSvc:  proposalSvc,
		verifier:     verifier,
		hub:          hub,
	}
}
