package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestTransactionStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO transactions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 13 || args[0] != "tx-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	err := store.Create(ctx, execer, TransactionInput{ID: "tx-1", Amount: 50000, Status: "pending"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreGetByInvoiceForUpdate(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE invoice_id = $1 FOR UPDATE") {
				t.Fatalf("expected row lock in query: %s", query)
			}
			if len(args) != 1 || args[0] != "inv-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return nil
		},
	}
	store := NewTransactionStore(stubDB{})
	if _, err := store.GetByInvoiceForUpdate(ctx, getter, "inv-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreMarkCompleted(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET status = 'completed'") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != now || args[1] != "tx-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	if err := store.MarkCompleted(ctx, execer, "tx-1", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreSumWithdrawalsInFlight(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "type = 'withdrawal'") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "status IN ('pending', 'processing')") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*int64) = 7000
			return nil
		},
	}
	store := NewTransactionStore(stubDB{})
	total, err := store.SumWithdrawalsInFlight(ctx, getter, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 7000 {
		t.Fatalf("unexpected total: %d", total)
	}
}

func TestTransactionStoreListByUser(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "LEFT JOIN users pu") || !strings.Contains(query, "LEFT JOIN users eu") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "LEFT JOIN projects pr") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "WHERE (t.payer_id = $1 OR t.payee_id = $1)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "LIMIT $2 OFFSET $3") {
				t.Fatalf("unexpected limit/offset: %s", query)
			}
			if len(args) != 3 || args[0] != "user-1" || args[1] != 20 || args[2] != 0 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]transactionRow) = []transactionRow{{ID: "tx-1", Amount: 100}}
			return nil
		},
	})
	rows, err := store.ListByUser(ctx, "user-1", "", "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "tx-1" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestTransactionStoreListByUserWithFilters(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "AND t.type = $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "AND t.status = $3") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "LIMIT $4 OFFSET $5") {
				t.Fatalf("unexpected limit/offset: %s", query)
			}
			if len(args) != 5 || args[1] != "withdrawal" || args[2] != "processing" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]transactionRow) = []transactionRow{{ID: "tx-2"}}
			return nil
		},
	})
	rows, err := store.ListByUser(ctx, "user-1", "withdrawal", "processing", 10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}
