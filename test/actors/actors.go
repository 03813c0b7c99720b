package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var categories = []struct {
	name string
	cost string
}{
	{"heating", "160.00"},
	{"plumbing", "120.00"},
	{"electrical", "200.00"},
	{"other", "80.00"},
}

// Reporter files pending issues for the property and occasionally drops an
// orphan chat message that the backfiller should later claim.
func Reporter(ctx context.Context, pool *pgxpool.Pool, propertyID, tenantID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if rand.Intn(3) == 0 {
			_, err := pool.Exec(ctx, `INSERT INTO chat_messages (property_id, tenant_id, role, content)
                                       VALUES ($1,$2,'tenant',$3)`,
				propertyID, tenantID, fmt.Sprintf("orphan report %d", rand.Int63()))
			if err != nil && !isRetryable(err) {
				return fmt.Errorf("reporter orphan message: %w", err)
			}
		}
		c := categories[rand.Intn(len(categories))]
		_, err := pool.Exec(ctx, `INSERT INTO issues (property_id, tenant_id, category, status, description, estimated_cost)
                                   VALUES ($1,$2,$3,'pending',$4,$5)`,
			propertyID, tenantID, c.name, fmt.Sprintf("%s issue %d", c.name, rand.Int63()), c.cost)
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("reporter insert issue: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Approver races over pending issues and flips each to a terminal state
// under a row lock, the same way the service does.
func Approver(ctx context.Context, pool *pgxpool.Pool, propertyID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			if isRetryable(err) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		var issueID string
		err = tx.QueryRow(ctx, `SELECT id FROM issues WHERE property_id=$1 AND status='pending' LIMIT 1 FOR UPDATE`, propertyID).Scan(&issueID)
		if err == nil {
			status := "approved"
			if rand.Intn(4) == 0 {
				status = "rejected"
			}
			_, err = tx.Exec(ctx, `UPDATE issues SET status=$2, updated_at=NOW() WHERE id=$1 AND status='pending'`, issueID, status)
			if err == nil {
				_ = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Topper performs concurrent top-ups, exercising lazy wallet creation and
// the balance/ledger pairing inside one transaction.
func Topper(ctx context.Context, pool *pgxpool.Pool, propertyID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		amount := fmt.Sprintf("%d.%02d", 5+rand.Intn(45), rand.Intn(100))
		tx, err := pool.Begin(ctx)
		if err != nil {
			if isRetryable(err) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO property_wallets (property_id, balance) VALUES ($1, 0) ON CONFLICT (property_id) DO NOTHING`, propertyID)
		if err == nil {
			var one int
			err = tx.QueryRow(ctx, `SELECT 1 FROM property_wallets WHERE property_id=$1 FOR UPDATE`, propertyID).Scan(&one)
		}
		if err == nil {
			_, err = tx.Exec(ctx, `UPDATE property_wallets SET balance = balance + $2, updated_at = NOW() WHERE property_id=$1`, propertyID, amount)
		}
		if err == nil {
			_, err = tx.Exec(ctx, `INSERT INTO wallet_transactions (property_id, amount, note) VALUES ($1,$2,'stress topup')`, propertyID, amount)
		}
		if err == nil {
			err = tx.Commit(ctx)
		}
		_ = tx.Rollback(ctx)
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("topper: %w", err)
		}
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
}

// Backfiller claims orphan messages for issues that have no thread yet,
// limited to messages created at or before the issue.
func Backfiller(ctx context.Context, pool *pgxpool.Pool, propertyID, tenantID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			if isRetryable(err) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		var issueID string
		var createdAt time.Time
		err = tx.QueryRow(ctx, `SELECT i.id, i.created_at FROM issues i
                                 WHERE i.property_id=$1
                                   AND NOT EXISTS (SELECT 1 FROM chat_messages m WHERE m.issue_id = i.id)
                                 ORDER BY random() LIMIT 1`, propertyID).Scan(&issueID, &createdAt)
		if err == nil {
			_, err = tx.Exec(ctx, `UPDATE chat_messages SET issue_id=$1
                                    WHERE issue_id IS NULL AND property_id=$2 AND tenant_id=$3 AND created_at <= $4`,
				issueID, propertyID, tenantID, createdAt)
			if err == nil {
				err = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		if err != nil && !noRowsOrRetryable(err) {
			return fmt.Errorf("backfiller: %w", err)
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization failure, deadlock, admin shutdown from chaos
		switch pgErr.Code {
		case "40001", "40P01", "57P01":
			return true
		}
	}
	// connection churn caused by chaos backend kills
	return pgconn.SafeToRetry(err) || errors.Is(err, pgx.ErrTxClosed)
}

func noRowsOrRetryable(err error) bool {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	return isRetryable(err)
}
