package wallet

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TestWalletReconciliation_Integration connects to a real PostgreSQL via
// DATABASE_URL and verifies lazy wallet creation, the audit ledger, and the
// used/remaining computation against approved issue costs.
func TestWalletReconciliation_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if !tableExists(ctx, t, pool, "property_wallets") || !tableExists(ctx, t, pool, "wallet_transactions") || !tableExists(ctx, t, pool, "issues") {
		t.Skip("database schema missing; apply migrations/0001_init.sql first")
	}

	var (
		landlordID string
		tenantID   string
		propertyID string
		issueID    string
	)

	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,$2,'x','landlord') RETURNING id`,
		fmt.Sprintf("landlord+%d@example.com", time.Now().UnixNano()), "Lena Landlord").Scan(&landlordID); err != nil {
		t.Fatalf("seed landlord: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,$2,'x','tenant') RETURNING id`,
		fmt.Sprintf("tenant+%d@example.com", time.Now().UnixNano()), "Tom Tenant").Scan(&tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO properties (address, landlord_id) VALUES ($1,$2) RETURNING id`,
		fmt.Sprintf("%d Integration Ave", time.Now().UnixNano()%10000), landlordID).Scan(&propertyID); err != nil {
		t.Fatalf("seed property: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO issues (property_id, tenant_id, category, status, description, estimated_cost)
        VALUES ($1,$2,'plumbing','approved','leaking sink',120.00) RETURNING id`, propertyID, tenantID).Scan(&issueID); err != nil {
		t.Fatalf("seed approved issue: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM wallet_transactions WHERE property_id = $1`, propertyID)
		pool.Exec(ctx2, `DELETE FROM property_wallets WHERE property_id = $1`, propertyID)
		pool.Exec(ctx2, `DELETE FROM issues WHERE id = $1`, issueID)
		pool.Exec(ctx2, `DELETE FROM properties WHERE id = $1`, propertyID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2)`, landlordID, tenantID)
	})

	svc := NewService(pool, NewRepository(pool))

	// Reads before the first top-up must not create a wallet.
	summary, err := svc.Get(ctx, propertyID)
	if err != nil {
		t.Fatalf("get before topup: %v", err)
	}
	if !summary.Balance.IsZero() {
		t.Fatalf("expected zero balance before topup, got %s", summary.Balance)
	}
	if got, want := summary.Remaining.String(), "-120"; got != want {
		t.Fatalf("expected remaining %s before topup, got %s", want, got)
	}
	var walletCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM property_wallets WHERE property_id = $1`, propertyID).Scan(&walletCount); err != nil {
		t.Fatalf("count wallets: %v", err)
	}
	if walletCount != 0 {
		t.Fatalf("read path created a wallet: count=%d", walletCount)
	}

	// First top-up lazily creates the wallet and appends one ledger row.
	summary, err = svc.Topup(ctx, propertyID, decimal.RequireFromString("200.00"), "initial funding")
	if err != nil {
		t.Fatalf("topup: %v", err)
	}
	if got, want := summary.Balance.String(), "200"; got != want {
		t.Fatalf("expected balance %s, got %s", want, got)
	}
	if got, want := summary.Used.String(), "120"; got != want {
		t.Fatalf("expected used %s, got %s", want, got)
	}
	if got, want := summary.Remaining.String(), "80"; got != want {
		t.Fatalf("expected remaining %s, got %s", want, got)
	}

	var txnCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE property_id = $1`, propertyID).Scan(&txnCount); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if txnCount != 1 {
		t.Fatalf("expected 1 ledger row after topup, got %d", txnCount)
	}

	// SetBalance is the administrative path and leaves the ledger alone.
	summary, err = svc.SetBalance(ctx, propertyID, decimal.RequireFromString("500.00"))
	if err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if got, want := summary.Remaining.String(), "380"; got != want {
		t.Fatalf("expected remaining %s after set, got %s", want, got)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE property_id = $1`, propertyID).Scan(&txnCount); err != nil {
		t.Fatalf("recount transactions: %v", err)
	}
	if txnCount != 1 {
		t.Fatalf("expected ledger untouched by set balance, got %d rows", txnCount)
	}

	// Exactly one wallet row exists regardless of how many mutations ran.
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM property_wallets WHERE property_id = $1`, propertyID).Scan(&walletCount); err != nil {
		t.Fatalf("recount wallets: %v", err)
	}
	if walletCount != 1 {
		t.Fatalf("expected exactly one wallet, got %d", walletCount)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
