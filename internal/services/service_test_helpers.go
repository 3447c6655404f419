package services

import (
	"context"
	"time"

	"workhub/internal/gateway"
	"workhub/internal/models"
	"workhub/internal/store"
	"workhub/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

type stubUsers struct {
	getByID         func(ctx context.Context, userID string) (models.User, error)
	getForUpdate    func(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	adjustConnects  func(ctx context.Context, tx store.Execer, userID string, delta int) error
	adjustTotals    func(ctx context.Context, tx store.Execer, userID string, earnedDelta, spentDelta int64) error
	setSubscription func(ctx context.Context, tx store.Execer, userID string, subType models.SubscriptionType, expiresAt time.Time) error
	setPromoted     func(ctx context.Context, tx store.Execer, userID string, until time.Time) error
}

func (s stubUsers) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByID == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByID(ctx, userID)
}

func (s stubUsers) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error) {
	if s.getForUpdate == nil {
		return models.User{ID: userID}, nil
	}
	return s.getForUpdate(ctx, tx, userID)
}

func (s stubUsers) AdjustConnects(ctx context.Context, tx store.Execer, userID string, delta int) error {
	if s.adjustConnects == nil {
		return nil
	}
	return s.adjustConnects(ctx, tx, userID, delta)
}

func (s stubUsers) AdjustTotals(ctx context.Context, tx store.Execer, userID string, earnedDelta, spentDelta int64) error {
	if s.adjustTotals == nil {
		return nil
	}
	return s.adjustTotals(ctx, tx, userID, earnedDelta, spentDelta)
}

func (s stubUsers) SetSubscription(ctx context.Context, tx store.Execer, userID string, subType models.SubscriptionType, expiresAt time.Time) error {
	if s.setSubscription == nil {
		return nil
	}
	return s.setSubscription(ctx, tx, userID, subType, expiresAt)
}

func (s stubUsers) SetPromotedUntil(ctx context.Context, tx store.Execer, userID string, until time.Time) error {
	if s.setPromoted == nil {
		return nil
	}
	return s.setPromoted(ctx, tx, userID, until)
}

type stubProjects struct {
	getByID               func(ctx context.Context, projectID string) (models.Project, error)
	getForUpdate          func(ctx context.Context, tx store.Getter, projectID string) (models.Project, error)
	setEscrowFunded       func(ctx context.Context, tx store.Execer, projectID string, amount int64) error
	markCompleted         func(ctx context.Context, tx store.Execer, projectID string) error
	assignFreelancer      func(ctx context.Context, tx store.Execer, projectID, freelancerID string) error
	adjustProposalsCount  func(ctx context.Context, tx store.Execer, projectID string, delta int) error
	getMilestone          func(ctx context.Context, milestoneID string) (models.Milestone, error)
	getMilestoneForUpdate func(ctx context.Context, tx store.Getter, milestoneID string) (models.Milestone, error)
	updateMilestoneStatus func(ctx context.Context, tx store.Execer, milestoneID string, status models.MilestoneStatus) error
}

func (s stubProjects) GetByID(ctx context.Context, projectID string) (models.Project, error) {
	if s.getByID == nil {
		return models.Project{ID: projectID}, nil
	}
	return s.getByID(ctx, projectID)
}

func (s stubProjects) GetForUpdate(ctx context.Context, tx store.Getter, projectID string) (models.Project, error) {
	if s.getForUpdate == nil {
		return models.Project{ID: projectID}, nil
	}
	return s.getForUpdate(ctx, tx, projectID)
}

func (s stubProjects) SetEscrowFunded(ctx context.Context, tx store.Execer, projectID string, amount int64) error {
	if s.setEscrowFunded == nil {
		return nil
	}
	return s.setEscrowFunded(ctx, tx, projectID, amount)
}

func (s stubProjects) MarkCompleted(ctx context.Context, tx store.Execer, projectID string) error {
	if s.markCompleted == nil {
		return nil
	}
	return s.markCompleted(ctx, tx, projectID)
}

func (s stubProjects) AssignFreelancer(ctx context.Context, tx store.Execer, projectID, freelancerID string) error {
	if s.assignFreelancer == nil {
		return nil
	}
	return s.assignFreelancer(ctx, tx, projectID, freelancerID)
}

func (s stubProjects) AdjustProposalsCount(ctx context.Context, tx store.Execer, projectID string, delta int) error {
	if s.adjustProposalsCount == nil {
		return nil
	}
	return s.adjustProposalsCount(ctx, tx, projectID, delta)
}

func (s stubProjects) GetMilestone(ctx context.Context, milestoneID string) (models.Milestone, error) {
	if s.getMilestone == nil {
		return models.Milestone{ID: milestoneID}, nil
	}
	return s.getMilestone(ctx, milestoneID)
}

func (s stubProjects) GetMilestoneForUpdate(ctx context.Context, tx store.Getter, milestoneID string) (models.Milestone, error) {
	if s.getMilestoneForUpdate == nil {
		return models.Milestone{ID: milestoneID}, nil
	}
	return s.getMilestoneForUpdate(ctx, tx, milestoneID)
}

func (s stubProjects) UpdateMilestoneStatus(ctx context.Context, tx store.Execer, milestoneID string, status models.MilestoneStatus) error {
	if s.updateMilestoneStatus == nil {
		return nil
	}
	return s.updateMilestoneStatus(ctx, tx, milestoneID, status)
}

type stubTransactions struct {
	create                 func(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	getByInvoiceForUpdate  func(ctx context.Context, tx store.Getter, invoiceID string) (models.Transaction, error)
	markCompleted          func(ctx context.Context, tx store.Execer, transactionID string, completedAt time.Time) error
	updateStatus           func(ctx context.Context, tx store.Execer, transactionID string, status models.TransactionStatus) error
	sumWithdrawalsInFlight func(ctx context.Context, tx store.Getter, userID string) (int64, error)
}

func (s stubTransactions) Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	if s.create == nil {
		return nil
	}
	return s.create(ctx, tx, input)
}

func (s stubTransactions) GetByInvoiceForUpdate(ctx context.Context, tx store.Getter, invoiceID string) (models.Transaction, error) {
	if s.getByInvoiceForUpdate == nil {
		return models.Transaction{}, nil
	}
	return s.getByInvoiceForUpdate(ctx, tx, invoiceID)
}

func (s stubTransactions) MarkCompleted(ctx context.Context, tx store.Execer, transactionID string, completedAt time.Time) error {
	if s.markCompleted == nil {
		return nil
	}
	return s.markCompleted(ctx, tx, transactionID, completedAt)
}

func (s stubTransactions) UpdateStatus(ctx context.Context, tx store.Execer, transactionID string, status models.TransactionStatus) error {
	if s.updateStatus == nil {
		return nil
	}
	return s.updateStatus(ctx, tx, transactionID, status)
}

func (s stubTransactions) SumWithdrawalsInFlight(ctx context.Context, tx store.Getter, userID string) (int64, error) {
	if s.sumWithdrawalsInFlight == nil {
		return 0, nil
	}
	return s.sumWithdrawalsInFlight(ctx, tx, userID)
}

type stubProposals struct {
	create           func(ctx context.Context, tx store.Execer, input store.ProposalInput) error
	getForUpdate     func(ctx context.Context, tx store.Getter, proposalID string) (models.Proposal, error)
	existsForProject func(ctx context.Context, tx store.Getter, projectID, freelancerID string) (bool, error)
	updateStatus     func(ctx context.Context, tx store.Execer, proposalID string, status models.ProposalStatus) error
	rejectPending    func(ctx context.Context, tx store.Execer, projectID, exceptID string) (int64, error)
}

func (s stubProposals) Create(ctx context.Context, tx store.Execer, input store.ProposalInput) error {
	if s.create == nil {
		return nil
	}
	return s.create(ctx, tx, input)
}

func (s stubProposals) GetForUpdate(ctx context.Context, tx store.Getter, proposalID string) (models.Proposal, error) {
	if s.getForUpdate == nil {
		return models.Proposal{ID: proposalID}, nil
	}
	return s.getForUpdate(ctx, tx, proposalID)
}

func (s stubProposals) ExistsForProject(ctx context.Context, tx store.Getter, projectID, freelancerID string) (bool, error) {
	if s.existsForProject == nil {
		return false, nil
	}
	return s.existsForProject(ctx, tx, projectID, freelancerID)
}

func (s stubProposals) UpdateStatus(ctx context.Context, tx store.Execer, proposalID string, status models.ProposalStatus) error {
	if s.updateStatus == nil {
		return nil
	}
	return s.updateStatus(ctx, tx, proposalID, status)
}

func (s stubProposals) RejectPending(ctx context.Context, tx store.Execer, projectID, exceptID string) (int64, error) {
	if s.rejectPending == nil {
		return 0, nil
	}
	return s.rejectPending(ctx, tx, projectID, exceptID)
}

type stubAudit struct {
	log func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAudit) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.log == nil {
		return nil
	}
	return s.log(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubGateway struct {
	createInvoice    func(ctx context.Context, amount int64, reference, destination string) (gateway.Invoice, error)
	invoiceStatus    func(ctx context.Context, invoiceID string) (string, error)
	createWithdrawal func(ctx context.Context, card string, amount int64, reference string) (gateway.Withdrawal, error)
}

func (s stubGateway) CreateInvoice(ctx context.Context, amount int64, reference, destination string) (gateway.Invoice, error) {
	if s.createInvoice == nil {
		return gateway.Invoice{InvoiceID: "inv-stub", PaymentURL: "https://pay/inv-stub"}, nil
	}
	return s.createInvoice(ctx, amount, reference, destination)
}

func (s stubGateway) InvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	if s.invoiceStatus == nil {
		return gateway.StatusCreated, nil
	}
	return s.invoiceStatus(ctx, invoiceID)
}

func (s stubGateway) CreateWithdrawal(ctx context.Context, card string, amount int64, reference string) (gateway.Withdrawal, error) {
	if s.createWithdrawal == nil {
		return gateway.Withdrawal{WithdrawalID: "wd-stub", Status: "processing", Card: "****1234"}, nil
	}
	return s.createWithdrawal(ctx, card, amount, reference)
}

func (s stubGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return true
}

type recordingHub struct {
	events map[string][]websocket.PaymentEvent
}

func newRecordingHub() *recordingHub {
	return &recordingHub{events: make(map[string][]websocket.PaymentEvent)}
}

func (h *recordingHub) BroadcastPayment(userID string, event websocket.PaymentEvent) {
	h.events[userID] = append(h.events[userID], event)
}

func strPtr(value string) *string {
	return &value
}
