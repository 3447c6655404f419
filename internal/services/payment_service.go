package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"workhub/internal/commission"
	"workhub/internal/db"
	"workhub/internal/gateway"
	"workhub/internal/models"
	"workhub/internal/money"
	"workhub/internal/store"
	"workhub/internal/validator"
	"workhub/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrValidation             = errors.New("invalid request")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrForbidden              = errors.New("not a party to this resource")
	ErrInvalidState           = errors.New("operation not allowed in current state")
	ErrInsufficientBalance    = errors.New("insufficient available balance")
	ErrProjectNotFound        = errors.New("project not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrMilestoneNotFound      = errors.New("milestone not found")
	ErrMilestoneAlreadyFunded = errors.New("milestone already funded")
)

// Outcome classifies what a webhook delivery did.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

type PaymentService struct {
	txRunner     db.TxRunner
	users        UserStore
	projects     ProjectStore
	transactions TransactionStore
	audit        AuditStore
	gateway      gateway.Client
	schedule     commission.Schedule
	prices       Prices
	hub          PaymentHub
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	AdjustConnects(ctx context.Context, tx store.Execer, userID string, delta int) error
	AdjustTotals(ctx context.Context, tx store.Execer, userID string, earnedDelta, spentDelta int64) error
	SetSubscription(ctx context.Context, tx store.Execer, userID string, subType models.SubscriptionType, expiresAt time.Time) error
	SetPromotedUntil(ctx context.Context, tx store.Execer, userID string, until time.Time) error
}

type ProjectStore interface {
	GetByID(ctx context.Context, projectID string) (models.Project, error)
	GetForUpdate(ctx context.Context, tx store.Getter, projectID string) (models.Project, error)
	SetEscrowFunded(ctx context.Context, tx store.Execer, projectID string, amount int64) error
	MarkCompleted(ctx context.Context, tx store.Execer, projectID string) error
	AssignFreelancer(ctx context.Context, tx store.Execer, projectID, freelancerID string) error
	AdjustProposalsCount(ctx context.Context, tx store.Execer, projectID string, delta int) error
	GetMilestone(ctx context.Context, milestoneID string) (models.Milestone, error)
	GetMilestoneForUpdate(ctx context.Context, tx store.Getter, milestoneID string) (models.Milestone, error)
	UpdateMilestoneStatus(ctx context.Context, tx store.Execer, milestoneID string, status models.MilestoneStatus) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetByInvoiceForUpdate(ctx context.Context, tx store.Getter, invoiceID string) (models.Transaction, error)
	MarkCompleted(ctx context.Context, tx store.Execer, transactionID string, completedAt time.Time) error
	UpdateStatus(ctx context.Context, tx store.Execer, transactionID string, status models.TransactionStatus) error
	SumWithdrawalsInFlight(ctx context.Context, tx store.Getter, userID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type PaymentHub interface {
	BroadcastPayment(userID string, event websocket.PaymentEvent)
}

// Prices are the platform's fixed prices and fees in kopiykas.
type Prices struct {
	ConnectsPer20        int64
	SubscriptionMonthly  int64
	PromotionWeekly      int64
	WithdrawalFee        int64
	WithdrawalFeeExpress int64
}

func NewPaymentService(txRunner db.TxRunner, users UserStore, projects ProjectStore, transactions TransactionStore, audit AuditStore, gw gateway.Client, schedule commission.Schedule, prices Prices, hub PaymentHub) *PaymentService {
	return &PaymentService{
		txRunner:     txRunner,
		users:        users,
		projects:     projects,
		transactions: transactions,
		audit:        audit,
		gateway:      gw,
		schedule:     schedule,
		prices:       prices,
		hub:          hub,
	}
}

type InvoiceResponse struct {
	TransactionID string    `json:"transaction_id"`
	InvoiceID     string    `json:"invoice_id"`
	PaymentURL    string    `json:"payment_url"`
	Amount        int64     `json:"amount"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type FundEscrowRequest struct {
	ClientID  string `validate:"required"`
	ProjectID string `validate:"required"`
	Amount    int64  `validate:"required,gt=0"`
}

// FundEscrow creates a gateway invoice for the full project escrow and a
// matching pending entry. The escrow is marked funded only when the
// gateway confirms payment through the webhook.
func (s *PaymentService) FundEscrow(ctx context.Context, req FundEscrowRequest) (InvoiceResponse, error) {
	if err := validator.Struct(req); err != nil {
		return InvoiceResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return InvoiceResponse{}, ErrProjectNotFound
	}
	if err != nil {
		return InvoiceResponse{}, err
	}
	if project.ClientID != req.ClientID {
		return InvoiceResponse{}, ErrForbidden
	}
	if project.Status != models.ProjectInProgress || project.EscrowFunded {
		return InvoiceResponse{}, ErrInvalidState
	}

	reference := fmt.Sprintf("escrow_%s_%s", req.ProjectID, req.ClientID)
	invoice, err := s.gateway.CreateInvoice(ctx, req.Amount, reference, "Escrow for project: "+project.Title)
	if err != nil {
		return InvoiceResponse{}, err
	}

	transactionID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.projects.GetForUpdate(ctx, tx, req.ProjectID)
		if err != nil {
			return err
		}
		if locked.Status != models.ProjectInProgress || locked.EscrowFunded {
			return ErrInvalidState
		}
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:          transactionID,
			PayerID:     &req.ClientID,
			ProjectID:   &req.ProjectID,
			Type:        string(models.TypeEscrowFund),
			Amount:      req.Amount,
			NetAmount:   req.Amount,
			Status:      string(models.StatusPending),
			InvoiceID:   &invoice.InvoiceID,
			Description: "Escrow for project: " + project.Title,
			Metadata:    "{}",
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}
	return InvoiceResponse{
		TransactionID: transactionID,
		InvoiceID:     invoice.InvoiceID,
		PaymentURL:    invoice.PaymentURL,
		Amount:        req.Amount,
		ExpiresAt:     invoice.ExpiresAt,
	}, nil
}

type FundMilestoneRequest struct {
	ClientID    string `validate:"required"`
	ProjectID   string `validate:"required"`
	MilestoneID string `validate:"required"`
	Amount      int64  `validate:"required,gt=0"`
}

// FundMilestone invoices a single pending milestone. The requested
// amount must match the amount the milestone was created with.
func (s *PaymentService) FundMilestone(ctx context.Context, req FundMilestoneRequest) (InvoiceResponse, error) {
	if err := validator.Struct(req); err != nil {
		return InvoiceResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return InvoiceResponse{}, ErrProjectNotFound
	}
	if err != nil {
		return InvoiceResponse{}, err
	}
	if project.ClientID != req.ClientID {
		return InvoiceResponse{}, ErrForbidden
	}
	if project.Status != models.ProjectInProgress {
		return InvoiceResponse{}, ErrInvalidState
	}
	milestone, err := s.projects.GetMilestone(ctx, req.MilestoneID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && milestone.ProjectID != req.ProjectID) {
		return InvoiceResponse{}, ErrMilestoneNotFound
	}
	if err != nil {
		return InvoiceResponse{}, err
	}
	if milestone.Status != models.MilestonePending {
		return InvoiceResponse{}, ErrMilestoneAlreadyFunded
	}
	if req.Amount != milestone.Amount {
		return InvoiceResponse{}, ErrInvalidAmount
	}

	reference := fmt.Sprintf("milestone_%s_%s", req.ProjectID, req.MilestoneID)
	invoice, err := s.gateway.CreateInvoice(ctx, milestone.Amount, reference, "Milestone: "+milestone.Title)
	if err != nil {
		return InvoiceResponse{}, err
	}

	metadata, err := models.EncodeMeta(models.MilestoneMeta{MilestoneID: req.MilestoneID})
	if err != nil {
		return InvoiceResponse{}, err
	}
	transactionID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.projects.GetMilestoneForUpdate(ctx, tx, req.MilestoneID)
		if err != nil {
			return err
		}
		if locked.Status != models.MilestonePending {
			return ErrMilestoneAlreadyFunded
		}
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:          transactionID,
			PayerID:     &req.ClientID,
			ProjectID:   &req.ProjectID,
			Type:        string(models.TypeMilestoneFund),
			Amount:      milestone.Amount,
			NetAmount:   milestone.Amount,
			Status:      string(models.StatusPending),
			InvoiceID:   &invoice.InvoiceID,
			Description: "Milestone: " + milestone.Title,
			Metadata:    metadata,
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}
	return InvoiceResponse{
		TransactionID: transactionID,
		InvoiceID:     invoice.InvoiceID,
		PaymentURL:    invoice.PaymentURL,
		Amount:        milestone.Amount,
		ExpiresAt:     invoice.ExpiresAt,
	}, nil
}

type ConnectsPurchaseRequest struct {
	UserID   string `validate:"required"`
	Connects int    `validate:"required,gt=0"`
}

// PurchaseConnects invoices a pack of connects. Packs are sold in
// multiples of 20.
func (s *PaymentService) PurchaseConnects(ctx context.Context, req ConnectsPurchaseRequest) (InvoiceResponse, error) {
	if err := validator.Struct(req); err != nil {
		return InvoiceResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Connects%20 != 0 {
		return InvoiceResponse{}, ErrInvalidAmount
	}
	amount := int64(req.Connects/20) * s.prices.ConnectsPer20
	metadata, err := models.EncodeMeta(models.ConnectsPurchaseMeta{Connects: req.Connects})
	if err != nil {
		return InvoiceResponse{}, err
	}
	description := fmt.Sprintf("Purchase of %d connects", req.Connects)
	return s.invoicePurchase(ctx, req.UserID, models.TypeConnectsPurchase, amount, description, metadata)
}

type SubscriptionRequest struct {
	UserID string `validate:"required"`
	Months int    `validate:"required,gt=0,lte=12"`
}

func (s *PaymentService) PurchaseSubscription(ctx context.Context, req SubscriptionRequest) (InvoiceResponse, error) {
	if err := validator.Struct(req); err != nil {
		return InvoiceResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	amount := int64(req.Months) * s.prices.SubscriptionMonthly
	metadata, err := models.EncodeMeta(models.SubscriptionMeta{
		SubscriptionType: models.SubscriptionFreelancerPlus,
		Months:           req.Months,
	})
	if err != nil {
		return InvoiceResponse{}, err
	}
	description := fmt.Sprintf("Freelancer Plus subscription, %d month(s)", req.Months)
	return s.invoicePurchase(ctx, req.UserID, models.TypeSubscriptionPayment, amount, description, metadata)
}

type PromotionRequest struct {
	UserID string `validate:"required"`
	Weeks  int    `validate:"required,gt=0,lte=8"`
}

func (s *PaymentService) PromoteProfile(ctx context.Context, req PromotionRequest) (InvoiceResponse, error) {
	if err := validator.Struct(req); err != nil {
		return InvoiceResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	amount := int64(req.Weeks) * s.prices.PromotionWeekly
	metadata, err := models.EncodeMeta(models.PromotionMeta{Weeks: req.Weeks})
	if err != nil {
		return InvoiceResponse{}, err
	}
	description := fmt.Sprintf("Profile promotion, %d week(s)", req.Weeks)
	return s.invoicePurchase(ctx, req.UserID, models.TypeProfilePromotion, amount, description, metadata)
}

// invoicePurchase is the shared path for self-service purchases that
// charge the user through an invoice and settle on the webhook.
func (s *PaymentService) invoicePurchase(ctx context.Context, userID string, txType models.TransactionType, amount int64, description, metadata string) (InvoiceResponse, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InvoiceResponse{}, ErrUserNotFound
		}
		return InvoiceResponse{}, err
	}
	reference := fmt.Sprintf("%s_%s_%d", txType, userID, time.Now().UnixNano())
	invoice, err := s.gateway.CreateInvoice(ctx, amount, reference, description)
	if err != nil {
		return InvoiceResponse{}, err
	}
	transactionID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:          transactionID,
			PayerID:     &userID,
			Type:        string(txType),
			Amount:      amount,
			NetAmount:   amount,
			Status:      string(models.StatusPending),
			InvoiceID:   &invoice.InvoiceID,
			Description: description,
			Metadata:    metadata,
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}
	return InvoiceResponse{
		TransactionID: transactionID,
		InvoiceID:     invoice.InvoiceID,
		PaymentURL:    invoice.PaymentURL,
		Amount:        amount,
		ExpiresAt:     invoice.ExpiresAt,
	}, nil
}

type WithdrawalRequest struct {
	UserID    string `validate:"required"`
	Amount    int64  `validate:"required,gt=0"`
	Card      string `validate:"required"`
	IsExpress bool
}

type WithdrawalResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	NetAmount     int64  `json:"net_amount"`
	Status        string `json:"status"`
	Card          string `json:"card"`
}

// RequestWithdrawal debits the requested amount from the freelancer's
// available balance and queues a card payout of the amount minus a flat
// fee. The entry is created directly in processing; completion happens
// out-of-band.
func (s *PaymentService) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (WithdrawalResponse, error) {
	if err := validator.Struct(req); err != nil {
		return WithdrawalResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validator.ValidateCard(req.Card); err != nil {
		return WithdrawalResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fee := s.prices.WithdrawalFee
	if req.IsExpress {
		fee = s.prices.WithdrawalFeeExpress
	}

	transactionID := uuid.NewString()
	payout, err := s.gateway.CreateWithdrawal(ctx, req.Card, req.Amount, transactionID)
	if err != nil {
		return WithdrawalResponse{}, err
	}
	metadata, err := models.EncodeMeta(models.WithdrawalMeta{Card: payout.Card, IsExpress: req.IsExpress})
	if err != nil {
		return WithdrawalResponse{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, req.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		inFlight, err := s.transactions.SumWithdrawalsInFlight(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user.TotalEarned-inFlight < req.Amount+fee {
			return ErrInsufficientBalance
		}
		// The entry holds the requested amount; the fee comes out of the
		// payout, so the balance moves by exactly the requested amount.
		return s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:               transactionID,
			PayeeID:          &req.UserID,
			Type:             string(models.TypeWithdrawal),
			Amount:           req.Amount,
			CommissionAmount: fee,
			CommissionRate:   "0",
			NetAmount:        req.Amount - fee,
			Status:           string(models.StatusProcessing),
			Description:      "Withdrawal to card " + payout.Card,
			Metadata:         metadata,
		})
	})
	if err != nil {
		return WithdrawalResponse{}, err
	}
	return WithdrawalResponse{
		TransactionID: transactionID,
		Amount:        req.Amount,
		Fee:           fee,
		NetAmount:     req.Amount - fee,
		Status:        string(models.StatusProcessing),
		Card:          payout.Card,
	}, nil
}

// AvailableBalance is total earnings minus withdrawals that are still in
// flight, in kopiykas.
func (s *PaymentService) AvailableBalance(ctx context.Context, userID string) (int64, error) {
	var available int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err := s.users.GetForUpdate(ctx, tx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		inFlight, err := s.transactions.SumWithdrawalsInFlight(ctx, tx, userID)
		if err != nil {
			return err
		}
		available = user.TotalEarned - inFlight
		return nil
	})
	return available, err
}

// HandleWebhook reconciles a gateway status callback against the ledger.
// Unknown invoices and entries already in a terminal status are ignored,
// so duplicate deliveries are harmless.
func (s *PaymentService) HandleWebhook(ctx context.Context, event gateway.WebhookEvent) (Outcome, error) {
	outcome := OutcomeIgnored
	var entry models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		found, err := s.transactions.GetByInvoiceForUpdate(ctx, tx, event.InvoiceID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		entry = found
		if entry.Status.Terminal() {
			return nil
		}
		switch event.Status {
		case gateway.StatusSuccess:
			now := time.Now().UTC()
			if err := s.transactions.MarkCompleted(ctx, tx, entry.ID, now); err != nil {
				return err
			}
			if err := s.applyCompletion(ctx, tx, entry); err != nil {
				return err
			}
			entry.Status = models.StatusCompleted
			outcome = OutcomeCompleted
			data, _ := json.Marshal(map[string]string{"invoice_id": event.InvoiceID})
			return s.audit.Log(ctx, tx, "", "payment_completed", "transaction", entry.ID, string(data))
		case gateway.StatusFailure, gateway.StatusExpired:
			if err := s.transactions.UpdateStatus(ctx, tx, entry.ID, models.StatusFailed); err != nil {
				return err
			}
			entry.Status = models.StatusFailed
			outcome = OutcomeFailed
			data, _ := json.Marshal(map[string]string{"invoice_id": event.InvoiceID, "gateway_status": event.Status})
			return s.audit.Log(ctx, tx, "", "payment_failed", "transaction", entry.ID, string(data))
		default:
			// created/processing/hold carry no transition.
			return nil
		}
	})
	if err != nil {
		return outcome, err
	}
	log.Printf("webhook invoice=%s gateway_status=%s outcome=%s", event.InvoiceID, event.Status, outcome)
	if outcome != OutcomeIgnored {
		s.notifyParties(entry)
	}
	return outcome, nil
}

// applyCompletion dispatches the side effect of a successful payment by
// entry type. Runs inside the reconciliation transaction.
func (s *PaymentService) applyCompletion(ctx context.Context, tx *sqlx.Tx, entry models.Transaction) error {
	meta, err := models.DecodeMeta(entry.Type, entry.Metadata)
	if err != nil {
		return err
	}
	switch entry.Type {
	case models.TypeEscrowFund:
		if entry.ProjectID == nil {
			return fmt.Errorf("escrow entry %s has no project", entry.ID)
		}
		project, err := s.projects.GetForUpdate(ctx, tx, *entry.ProjectID)
		if err != nil {
			return err
		}
		if project.EscrowFunded {
			return nil
		}
		return s.projects.SetEscrowFunded(ctx, tx, *entry.ProjectID, entry.Amount)
	case models.TypeMilestoneFund:
		m, ok := meta.(models.MilestoneMeta)
		if !ok || m.MilestoneID == "" {
			return fmt.Errorf("milestone entry %s has no milestone id", entry.ID)
		}
		milestone, err := s.projects.GetMilestoneForUpdate(ctx, tx, m.MilestoneID)
		if err != nil {
			return err
		}
		if milestone.Status != models.MilestonePending {
			return nil
		}
		return s.projects.UpdateMilestoneStatus(ctx, tx, m.MilestoneID, models.MilestoneFunded)
	case models.TypeConnectsPurchase:
		m, ok := meta.(models.ConnectsPurchaseMeta)
		if !ok || entry.PayerID == nil {
			return fmt.Errorf("connects entry %s is malformed", entry.ID)
		}
		return s.users.AdjustConnects(ctx, tx, *entry.PayerID, m.Connects)
	case models.TypeSubscriptionPayment:
		m, ok := meta.(models.SubscriptionMeta)
		if !ok || entry.PayerID == nil {
			return fmt.Errorf("subscription entry %s is malformed", entry.ID)
		}
		user, err := s.users.GetForUpdate(ctx, tx, *entry.PayerID)
		if err != nil {
			return err
		}
		base := time.Now().UTC()
		if user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(base) {
			base = *user.SubscriptionExpiresAt
		}
		subType := m.SubscriptionType
		if subType == "" {
			subType = models.SubscriptionFreelancerPlus
		}
		expires := base.Add(time.Duration(m.Months) * 30 * 24 * time.Hour)
		return s.users.SetSubscription(ctx, tx, *entry.PayerID, subType, expires)
	case models.TypeProfilePromotion:
		m, ok := meta.(models.PromotionMeta)
		if !ok || entry.PayerID == nil {
			return fmt.Errorf("promotion entry %s is malformed", entry.ID)
		}
		user, err := s.users.GetForUpdate(ctx, tx, *entry.PayerID)
		if err != nil {
			return err
		}
		base := time.Now().UTC()
		if user.ProfilePromotedUntil != nil && user.ProfilePromotedUntil.After(base) {
			base = *user.ProfilePromotedUntil
		}
		until := base.Add(time.Duration(m.Weeks) * 7 * 24 * time.Hour)
		return s.users.SetPromotedUntil(ctx, tx, *entry.PayerID, until)
	}
	// Releases and withdrawals are never settled through an invoice.
	return nil
}

func (s *PaymentService) notifyParties(entry models.Transaction) {
	event := websocket.PaymentEvent{
		TransactionID: entry.ID,
		Type:          string(entry.Type),
		Status:        string(entry.Status),
		Amount:        money.FormatMinor(entry.Amount),
	}
	if entry.ProjectID != nil {
		event.ProjectID = *entry.ProjectID
	}
	if entry.PayerID != nil {
		s.hub.BroadcastPayment(*entry.PayerID, event)
	}
	if entry.PayeeID != nil && (entry.PayerID == nil || *entry.PayeeID != *entry.PayerID) {
		s.hub.BroadcastPayment(*entry.PayeeID, event)
	}
}

type ReleaseEscrowRequest struct {
	ClientID  string `validate:"required"`
	ProjectID string `validate:"required"`
}

type ReleaseResponse struct {
	TransactionID    string `json:"transaction_id"`
	Amount           int64  `json:"amount"`
	CommissionAmount int64  `json:"commission_amount"`
	CommissionRate   string `json:"commission_rate"`
	NetAmount        int64  `json:"net_amount"`
}

// ReleaseEscrow pays the funded escrow out to the selected freelancer,
// minus the tiered platform commission, and completes the project.
func (s *PaymentService) ReleaseEscrow(ctx context.Context, req ReleaseEscrowRequest) (ReleaseResponse, error) {
	if err := validator.Struct(req); err != nil {
		return ReleaseResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var resp ReleaseResponse
	var entry models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		project, err := s.projects.GetForUpdate(ctx, tx, req.ProjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return err
		}
		if project.ClientID != req.ClientID {
			return ErrForbidden
		}
		if project.Status != models.ProjectInProgress || !project.EscrowFunded || project.SelectedFreelancerID == nil {
			return ErrInvalidState
		}
		freelancerID := *project.SelectedFreelancerID
		freelancer, err := s.users.GetForUpdate(ctx, tx, freelancerID)
		if err != nil {
			return err
		}
		commissionAmount, net, rate := s.schedule.Split(project.EscrowAmount, freelancer.TotalEarned)
		transactionID := uuid.NewString()
		now := time.Now().UTC()
		input := store.TransactionInput{
			ID:               transactionID,
			PayerID:          &req.ClientID,
			PayeeID:          &freelancerID,
			ProjectID:        &req.ProjectID,
			Type:             string(models.TypeEscrowRelease),
			Amount:           project.EscrowAmount,
			CommissionAmount: commissionAmount,
			CommissionRate:   rate.String(),
			NetAmount:        net,
			Status:           string(models.StatusCompleted),
			Description:      "Escrow release: " + project.Title,
			Metadata:         "{}",
		}
		if err := s.transactions.Create(ctx, tx, input); err != nil {
			return err
		}
		if err := s.transactions.MarkCompleted(ctx, tx, transactionID, now); err != nil {
			return err
		}
		if err := s.users.AdjustTotals(ctx, tx, freelancerID, net, 0); err != nil {
			return err
		}
		if err := s.users.AdjustTotals(ctx, tx, req.ClientID, 0, project.EscrowAmount); err != nil {
			return err
		}
		if err := s.projects.MarkCompleted(ctx, tx, req.ProjectID); err != nil {
			return err
		}
		resp = ReleaseResponse{
			TransactionID:    transactionID,
			Amount:           project.EscrowAmount,
			CommissionAmount: commissionAmount,
			CommissionRate:   rate.String(),
			NetAmount:        net,
		}
		entry = models.Transaction{
			ID:      transactionID,
			PayerID: &req.ClientID,
			PayeeID: &freelancerID,
			Type:    models.TypeEscrowRelease,
			Status:  models.StatusCompleted,
			Amount:  project.EscrowAmount,
		}
		entry.ProjectID = &req.ProjectID
		data, _ := json.Marshal(map[string]any{"net_amount": net, "commission_amount": commissionAmount})
		return s.audit.Log(ctx, tx, req.ClientID, "escrow_release", "transaction", transactionID, string(data))
	})
	if err != nil {
		return ReleaseResponse{}, err
	}
	s.notifyParties(entry)
	return resp, nil
}

type ReleaseMilestoneRequest struct {
	ClientID    string `validate:"required"`
	ProjectID   string `validate:"required"`
	MilestoneID string `validate:"required"`
}

// ReleaseMilestone pays a funded milestone out to the selected
// freelancer, minus commission. The project stays in progress.
func (s *PaymentService) ReleaseMilestone(ctx context.Context, req ReleaseMilestoneRequest) (ReleaseResponse, error) {
	if err := validator.Struct(req); err != nil {
		return ReleaseResponse{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var resp ReleaseResponse
	var entry models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		project, err := s.projects.GetForUpdate(ctx, tx, req.ProjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return err
		}
		if project.ClientID != req.ClientID {
			return ErrForbidden
		}
		if project.Status != models.ProjectInProgress || project.SelectedFreelancerID == nil {
			return ErrInvalidState
		}
		milestone, err := s.projects.GetMilestoneForUpdate(ctx, tx, req.MilestoneID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMilestoneNotFound
		}
		if err != nil {
			return err
		}
		if milestone.ProjectID != req.ProjectID {
			return ErrMilestoneNotFound
		}
		if milestone.Status != models.MilestoneFunded {
			return ErrInvalidState
		}
		freelancerID := *project.SelectedFreelancerID
		freelancer, err := s.users.GetForUpdate(ctx, tx, freelancerID)
		if err != nil {
			return err
		}
		commissionAmount, net, rate := s.schedule.Split(milestone.Amount, freelancer.TotalEarned)
		metadata, err := models.EncodeMeta(models.MilestoneMeta{MilestoneID: req.MilestoneID})
		if err != nil {
			return err
		}
		transactionID := uuid.NewString()
		now := time.Now().UTC()
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:               transactionID,
			PayerID:          &req.ClientID,
			PayeeID:          &freelancerID,
			ProjectID:        &req.ProjectID,
			Type:             string(models.TypeMilestoneRelease),
			Amount:           milestone.Amount,
			CommissionAmount: commissionAmount,
			CommissionRate:   rate.String(),
			NetAmount:        net,
			Status:           string(models.StatusCompleted),
			Description:      "Milestone release: " + milestone.Title,
			Metadata:         metadata,
		}); err != nil {
			return err
		}
		if err := s.transactions.MarkCompleted(ctx, tx, transactionID, now); err != nil {
			return err
		}
		if err := s.projects.UpdateMilestoneStatus(ctx, tx, req.MilestoneID, models.MilestoneReleased); err != nil {
			return err
		}
		if err := s.users.AdjustTotals(ctx, tx, freelancerID, net, 0); err != nil {
			return err
		}
		if err := s.users.AdjustTotals(ctx, tx, req.ClientID, 0, milestone.Amount); err != nil {
			return err
		}
		resp = ReleaseResponse{
			TransactionID:    transactionID,
			Amount:           milestone.Amount,
			CommissionAmount: commissionAmount,
			CommissionRate:   rate.String(),
			NetAmount:        net,
		}
		entry = models.Transaction{
			ID:        transactionID,
			PayerID:   &req.ClientID,
			PayeeID:   &freelancerID,
			ProjectID: &req.ProjectID,
			Type:      models.TypeMilestoneRelease,
			Status:    models.StatusCompleted,
			Amount:    milestone.Amount,
		}
		data, _ := json.Marshal(map[string]any{"milestone_id": req.MilestoneID, "net_amount": net})
		return s.audit.Log(ctx, tx, req.ClientID, "milestone_release", "transaction", transactionID, string(data))
	})
	if err != nil {
		return ReleaseResponse{}, err
	}
	s.notifyParties(entry)
	return resp, nil
}
