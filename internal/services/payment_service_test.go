package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"workhub/internal/commission"
	"workhub/internal/gateway"
	"workhub/internal/models"
	"workhub/internal/store"
)

var testPrices = Prices{
	ConnectsPer20:        10000,
	SubscriptionMonthly:  19900,
	PromotionWeekly:      29900,
	WithdrawalFee:        2000,
	WithdrawalFeeExpress: 5000,
}

func newTestPaymentService(users UserStore, projects ProjectStore, txs TransactionStore, gw gateway.Client, hub PaymentHub) *PaymentService {
	return NewPaymentService(fakeTxRunner{}, users, projects, txs, stubAudit{}, gw, commission.Default(), testPrices, hub)
}

func TestHandleWebhookCompletesEscrowFund(t *testing.T) {
	ctx := context.Background()
	entry := models.Transaction{
		ID:        "tx-1",
		PayerID:   strPtr("client-1"),
		ProjectID: strPtr("proj-1"),
		Type:      models.TypeEscrowFund,
		Amount:    50000,
		Status:    models.StatusPending,
		InvoiceID: strPtr("inv-1"),
		Metadata:  "{}",
	}
	completed := false
	funded := false
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, invoiceID string) (models.Transaction, error) {
			if invoiceID != "inv-1" {
				t.Fatalf("unexpected invoice lookup: %s", invoiceID)
			}
			return entry, nil
		},
		markCompleted: func(_ context.Context, _ store.Execer, transactionID string, _ time.Time) error {
			if transactionID != "tx-1" {
				t.Fatalf("unexpected transaction completed: %s", transactionID)
			}
			completed = true
			return nil
		},
	}
	projects := stubProjects{
		getForUpdate: func(_ context.Context, _ store.Getter, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, Status: models.ProjectInProgress}, nil
		},
		setEscrowFunded: func(_ context.Context, _ store.Execer, projectID string, amount int64) error {
			if projectID != "proj-1" || amount != 50000 {
				t.Fatalf("unexpected escrow funding: %s %d", projectID, amount)
			}
			funded = true
			return nil
		},
	}
	hub := newRecordingHub()
	svc := newTestPaymentService(stubUsers{}, projects, txs, stubGateway{}, hub)

	outcome, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-1", Status: gateway.StatusSuccess, Amount: 50000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	if !completed || !funded {
		t.Fatalf("expected completion and escrow funding, got %v/%v", completed, funded)
	}
	if len(hub.events["client-1"]) != 1 {
		t.Fatalf("expected payer notification, got %#v", hub.events)
	}
	if hub.events["client-1"][0].Status != "completed" {
		t.Fatalf("unexpected event: %#v", hub.events["client-1"][0])
	}
}

func TestHandleWebhookDuplicateDeliveryIgnored(t *testing.T) {
	ctx := context.Background()
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, _ string) (models.Transaction, error) {
			return models.Transaction{ID: "tx-1", Type: models.TypeEscrowFund, Status: models.StatusCompleted}, nil
		},
		markCompleted: func(_ context.Context, _ store.Execer, _ string, _ time.Time) error {
			t.Fatalf("terminal entry must not transition again")
			return nil
		},
	}
	projects := stubProjects{
		setEscrowFunded: func(_ context.Context, _ store.Execer, _ string, _ int64) error {
			t.Fatalf("side effect must not run twice")
			return nil
		},
	}
	hub := newRecordingHub()
	svc := newTestPaymentService(stubUsers{}, projects, txs, stubGateway{}, hub)

	outcome, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-1", Status: gateway.StatusSuccess})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
	if len(hub.events) != 0 {
		t.Fatalf("no notifications expected, got %#v", hub.events)
	}
}

func TestHandleWebhookUnknownInvoice(t *testing.T) {
	ctx := context.Background()
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, _ string) (models.Transaction, error) {
			return models.Transaction{}, sql.ErrNoRows
		},
	}
	svc := newTestPaymentService(stubUsers{}, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	outcome, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-unknown", Status: gateway.StatusSuccess})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
}

func TestHandleWebhookFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	var gotStatus models.TransactionStatus
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, _ string) (models.Transaction, error) {
			return models.Transaction{ID: "tx-1", PayerID: strPtr("u-1"), Type: models.TypeConnectsPurchase, Status: models.StatusPending}, nil
		},
		updateStatus: func(_ context.Context, _ store.Execer, transactionID string, status models.TransactionStatus) error {
			if transactionID != "tx-1" {
				t.Fatalf("unexpected transaction: %s", transactionID)
			}
			gotStatus = status
			return nil
		},
	}
	users := stubUsers{
		adjustConnects: func(_ context.Context, _ store.Execer, _ string, _ int) error {
			t.Fatalf("failed payment must not credit connects")
			return nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	outcome, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-1", Status: gateway.StatusExpired})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", outcome)
	}
	if gotStatus != models.StatusFailed {
		t.Fatalf("expected failed status, got %s", gotStatus)
	}
}

func TestHandleWebhookIntermediateStatusIgnored(t *testing.T) {
	ctx := context.Background()
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, _ string) (models.Transaction, error) {
			return models.Transaction{ID: "tx-1", Type: models.TypeEscrowFund, Status: models.StatusPending}, nil
		},
		markCompleted: func(_ context.Context, _ store.Execer, _ string, _ time.Time) error {
			t.Fatalf("no transition expected")
			return nil
		},
		updateStatus: func(_ context.Context, _ store.Execer, _ string, _ models.TransactionStatus) error {
			t.Fatalf("no transition expected")
			return nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	outcome, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-1", Status: gateway.StatusProcessing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
}

func TestHandleWebhookSubscriptionExtendsActive(t *testing.T) {
	ctx := context.Background()
	current := time.Now().UTC().Add(10 * 24 * time.Hour)
	metadata, _ := models.EncodeMeta(models.SubscriptionMeta{SubscriptionType: models.SubscriptionFreelancerPlus, Months: 2})
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, _ string) (models.Transaction, error) {
			return models.Transaction{
				ID:       "tx-1",
				PayerID:  strPtr("u-1"),
				Type:     models.TypeSubscriptionPayment,
				Status:   models.StatusPending,
				Metadata: metadata,
			}, nil
		},
	}
	var gotExpiry time.Time
	users := stubUsers{
		getForUpdate: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, SubscriptionType: models.SubscriptionFreelancerPlus, SubscriptionExpiresAt: &current}, nil
		},
		setSubscription: func(_ context.Context, _ store.Execer, _ string, subType models.SubscriptionType, expiresAt time.Time) error {
			if subType != models.SubscriptionFreelancerPlus {
				t.Fatalf("unexpected subscription type: %s", subType)
			}
			gotExpiry = expiresAt
			return nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	outcome, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-1", Status: gateway.StatusSuccess})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", outcome)
	}
	want := current.Add(60 * 24 * time.Hour)
	if !gotExpiry.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, gotExpiry)
	}
}

func TestHandleWebhookCreditsConnects(t *testing.T) {
	ctx := context.Background()
	metadata, _ := models.EncodeMeta(models.ConnectsPurchaseMeta{Connects: 40})
	txs := stubTransactions{
		getByInvoiceForUpdate: func(_ context.Context, _ store.Getter, _ string) (models.Transaction, error) {
			return models.Transaction{
				ID:       "tx-1",
				PayerID:  strPtr("u-1"),
				Type:     models.TypeConnectsPurchase,
				Status:   models.StatusPending,
				Metadata: metadata,
			}, nil
		},
	}
	credited := 0
	users := stubUsers{
		adjustConnects: func(_ context.Context, _ store.Execer, userID string, delta int) error {
			if userID != "u-1" {
				t.Fatalf("unexpected user: %s", userID)
			}
			credited = delta
			return nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	if _, err := svc.HandleWebhook(ctx, gateway.WebhookEvent{InvoiceID: "inv-1", Status: gateway.StatusSuccess}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if credited != 40 {
		t.Fatalf("expected 40 connects credited, got %d", credited)
	}
}

func TestFundEscrowGatewayDownWritesNothing(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getByID: func(_ context.Context, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress}, nil
		},
	}
	txs := stubTransactions{
		create: func(_ context.Context, _ store.Execer, _ store.TransactionInput) error {
			t.Fatalf("no entry may be written when the gateway is down")
			return nil
		},
	}
	gw := stubGateway{
		createInvoice: func(_ context.Context, _ int64, _, _ string) (gateway.Invoice, error) {
			return gateway.Invoice{}, gateway.ErrUnavailable
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, txs, gw, newRecordingHub())

	_, err := svc.FundEscrow(ctx, FundEscrowRequest{ClientID: "client-1", ProjectID: "proj-1", Amount: 50000})
	if !errors.Is(err, gateway.ErrUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestFundEscrowNotOwner(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getByID: func(_ context.Context, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "someone-else", Status: models.ProjectInProgress}, nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.FundEscrow(ctx, FundEscrowRequest{ClientID: "client-1", ProjectID: "proj-1", Amount: 100})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestFundEscrowAlreadyFunded(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getByID: func(_ context.Context, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress, EscrowFunded: true}, nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.FundEscrow(ctx, FundEscrowRequest{ClientID: "client-1", ProjectID: "proj-1", Amount: 100})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestFundMilestoneAlreadyFunded(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getByID: func(_ context.Context, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress}, nil
		},
		getMilestone: func(_ context.Context, milestoneID string) (models.Milestone, error) {
			return models.Milestone{ID: milestoneID, ProjectID: "proj-1", Status: models.MilestoneFunded}, nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.FundMilestone(ctx, FundMilestoneRequest{ClientID: "client-1", ProjectID: "proj-1", MilestoneID: "m-1", Amount: 20000})
	if !errors.Is(err, ErrMilestoneAlreadyFunded) {
		t.Fatalf("expected ErrMilestoneAlreadyFunded, got %v", err)
	}
}

func TestFundMilestoneAmountMismatch(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getByID: func(_ context.Context, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress}, nil
		},
		getMilestone: func(_ context.Context, milestoneID string) (models.Milestone, error) {
			return models.Milestone{ID: milestoneID, ProjectID: "proj-1", Status: models.MilestonePending, Amount: 20000}, nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.FundMilestone(ctx, FundMilestoneRequest{ClientID: "client-1", ProjectID: "proj-1", MilestoneID: "m-1", Amount: 15000})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPurchaseConnectsRejectsOddPack(t *testing.T) {
	ctx := context.Background()
	svc := newTestPaymentService(stubUsers{}, stubProjects{}, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.PurchaseConnects(ctx, ConnectsPurchaseRequest{UserID: "u-1", Connects: 15})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	users := stubUsers{
		getForUpdate: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, TotalEarned: 10000}, nil
		},
	}
	txs := stubTransactions{
		sumWithdrawalsInFlight: func(_ context.Context, _ store.Getter, _ string) (int64, error) {
			return 5000, nil
		},
		create: func(_ context.Context, _ store.Execer, _ store.TransactionInput) error {
			t.Fatalf("no entry may be written on insufficient balance")
			return nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	// available 5000, requested 4000 + 2000 fee.
	_, err := svc.RequestWithdrawal(ctx, WithdrawalRequest{UserID: "u-1", Amount: 4000, Card: "1234123412341234"})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestRequestWithdrawalCreatesProcessingEntry(t *testing.T) {
	ctx := context.Background()
	users := stubUsers{
		getForUpdate: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, TotalEarned: 100000}, nil
		},
	}
	var created store.TransactionInput
	txs := stubTransactions{
		create: func(_ context.Context, _ store.Execer, input store.TransactionInput) error {
			created = input
			return nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	resp, err := svc.RequestWithdrawal(ctx, WithdrawalRequest{UserID: "u-1", Amount: 40000, Card: "1234123412341234", IsExpress: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Type != "withdrawal" || created.Status != "processing" {
		t.Fatalf("unexpected entry: %#v", created)
	}
	if created.Amount != 40000 || created.CommissionAmount != 5000 || created.NetAmount != 35000 {
		t.Fatalf("unexpected amounts: %#v", created)
	}
	if created.Amount-created.CommissionAmount != created.NetAmount {
		t.Fatalf("net invariant violated: %#v", created)
	}
	if !strings.Contains(created.Metadata, "****1234") {
		t.Fatalf("expected masked card in metadata: %s", created.Metadata)
	}
	if resp.Amount != 40000 || resp.Fee != 5000 || resp.NetAmount != 35000 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestWithdrawalMovesBalanceByRequestedAmount(t *testing.T) {
	ctx := context.Background()
	users := stubUsers{
		getForUpdate: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, TotalEarned: 100000}, nil
		},
	}
	var inFlight int64
	txs := stubTransactions{
		sumWithdrawalsInFlight: func(_ context.Context, _ store.Getter, _ string) (int64, error) {
			return inFlight, nil
		},
		create: func(_ context.Context, _ store.Execer, input store.TransactionInput) error {
			inFlight += input.Amount
			return nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	before, err := svc.AvailableBalance(ctx, "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, WithdrawalRequest{UserID: "u-1", Amount: 40000, Card: "1234123412341234"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, err := svc.AvailableBalance(ctx, "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before-after != 40000 {
		t.Fatalf("expected balance to move by 40000, moved by %d (before=%d after=%d)", before-after, before, after)
	}
}

func TestAvailableBalance(t *testing.T) {
	ctx := context.Background()
	users := stubUsers{
		getForUpdate: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, TotalEarned: 100000}, nil
		},
	}
	txs := stubTransactions{
		sumWithdrawalsInFlight: func(_ context.Context, _ store.Getter, _ string) (int64, error) {
			return 30000, nil
		},
	}
	svc := newTestPaymentService(users, stubProjects{}, txs, stubGateway{}, newRecordingHub())

	available, err := svc.AvailableBalance(ctx, "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 70000 {
		t.Fatalf("expected 70000, got %d", available)
	}
}

func TestReleaseEscrowComputesCommission(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getForUpdate: func(_ context.Context, _ store.Getter, projectID string) (models.Project, error) {
			return models.Project{
				ID:                   projectID,
				ClientID:             "client-1",
				Title:                "Landing page",
				Status:               models.ProjectInProgress,
				EscrowFunded:         true,
				EscrowAmount:         50000,
				SelectedFreelancerID: strPtr("fl-1"),
			}, nil
		},
	}
	var created store.TransactionInput
	txs := stubTransactions{
		create: func(_ context.Context, _ store.Execer, input store.TransactionInput) error {
			created = input
			return nil
		},
	}
	totals := map[string][2]int64{}
	users := stubUsers{
		getForUpdate: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, TotalEarned: 0}, nil
		},
		adjustTotals: func(_ context.Context, _ store.Execer, userID string, earnedDelta, spentDelta int64) error {
			totals[userID] = [2]int64{earnedDelta, spentDelta}
			return nil
		},
	}
	hub := newRecordingHub()
	svc := newTestPaymentService(users, projects, txs, stubGateway{}, hub)

	resp, err := svc.ReleaseEscrow(ctx, ReleaseEscrowRequest{ClientID: "client-1", ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CommissionAmount != 10000 || resp.NetAmount != 40000 {
		t.Fatalf("unexpected split: %#v", resp)
	}
	if created.Type != "escrow_release" || created.Status != "completed" {
		t.Fatalf("unexpected entry: %#v", created)
	}
	if created.Amount-created.CommissionAmount != created.NetAmount {
		t.Fatalf("net invariant violated: %#v", created)
	}
	if totals["fl-1"] != [2]int64{40000, 0} {
		t.Fatalf("unexpected freelancer totals: %#v", totals)
	}
	if totals["client-1"] != [2]int64{0, 50000} {
		t.Fatalf("unexpected client totals: %#v", totals)
	}
	if len(hub.events["fl-1"]) != 1 || len(hub.events["client-1"]) != 1 {
		t.Fatalf("expected both parties notified: %#v", hub.events)
	}
}

func TestReleaseEscrowRequiresFundedEscrow(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getForUpdate: func(_ context.Context, _ store.Getter, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress, SelectedFreelancerID: strPtr("fl-1")}, nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.ReleaseEscrow(ctx, ReleaseEscrowRequest{ClientID: "client-1", ProjectID: "proj-1"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestReleaseMilestoneRequiresFunded(t *testing.T) {
	ctx := context.Background()
	projects := stubProjects{
		getForUpdate: func(_ context.Context, _ store.Getter, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress, SelectedFreelancerID: strPtr("fl-1")}, nil
		},
		getMilestoneForUpdate: func(_ context.Context, _ store.Getter, milestoneID string) (models.Milestone, error) {
			return models.Milestone{ID: milestoneID, ProjectID: "proj-1", Status: models.MilestonePending}, nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	_, err := svc.ReleaseMilestone(ctx, ReleaseMilestoneRequest{ClientID: "client-1", ProjectID: "proj-1", MilestoneID: "m-1"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestReleaseMilestoneMarksReleased(t *testing.T) {
	ctx := context.Background()
	var milestoneStatus models.MilestoneStatus
	projects := stubProjects{
		getForUpdate: func(_ context.Context, _ store.Getter, projectID string) (models.Project, error) {
			return models.Project{ID: projectID, ClientID: "client-1", Status: models.ProjectInProgress, SelectedFreelancerID: strPtr("fl-1")}, nil
		},
		getMilestoneForUpdate: func(_ context.Context, _ store.Getter, milestoneID string) (models.Milestone, error) {
			return models.Milestone{ID: milestoneID, ProjectID: "proj-1", Title: "Design", Amount: 20000, Status: models.MilestoneFunded}, nil
		},
		updateMilestoneStatus: func(_ context.Context, _ store.Execer, _ string, status models.MilestoneStatus) error {
			milestoneStatus = status
			return nil
		},
		markCompleted: func(_ context.Context, _ store.Execer, _ string) error {
			t.Fatalf("milestone release must not complete the project")
			return nil
		},
	}
	svc := newTestPaymentService(stubUsers{}, projects, stubTransactions{}, stubGateway{}, newRecordingHub())

	resp, err := svc.ReleaseMilestone(ctx, ReleaseMilestoneRequest{ClientID: "client-1", ProjectID: "proj-1", MilestoneID: "m-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if milestoneStatus != models.MilestoneReleased {
		t.Fatalf("expected released, got %s", milestoneStatus)
	}
	if resp.CommissionAmount != 4000 || resp.NetAmount != 16000 {
		t.Fatalf("unexpected split: %#v", resp)
	}
}
