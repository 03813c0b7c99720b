package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"fixflow/test/actors"
	"fixflow/test/chaos"
	"fixflow/test/infra"
	"fixflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestWalletTriageConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("FIXFLOW_STRESS_PG_DSN") != "":
		dsn = os.Getenv("FIXFLOW_STRESS_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if !dockerAvailable(ctx) {
			t.Skip("docker unavailable and no -dsn provided")
		}
		pgC, dsn, err = infra.StartPostgres16(ctx, "")
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// reporters and approvers battling over the same property's issues
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.Reporter(ctx2, pool, seedData.propertyID, seedData.tenantID, stop)
		})
		g.Go(func() error { return actors.Approver(ctx2, pool, seedData.propertyID, stop) })
	}

	// concurrent top-ups racing over lazy wallet creation
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error { return actors.Topper(ctx2, pool, seedData.propertyID, stop) })
	}
	// orphan message backfill
	g.Go(func() error {
		return actors.Backfiller(ctx2, pool, seedData.propertyID, seedData.tenantID, stop)
	})
	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	landlordID string
	tenantID   string
	propertyID string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,$2,'x','landlord') RETURNING id`,
		fmt.Sprintf("landlord%d@example.com", rand.Int63()), "Stress Landlord").Scan(&s.landlordID); err != nil {
		t.Fatalf("seed landlord: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,$2,'x','tenant') RETURNING id`,
		fmt.Sprintf("tenant%d@example.com", rand.Int63()), "Stress Tenant").Scan(&s.tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO properties (address, landlord_id) VALUES ($1,$2) RETURNING id`,
		fmt.Sprintf("%d Stress Lane", rand.Int63n(9999)), s.landlordID).Scan(&s.propertyID); err != nil {
		t.Fatalf("seed property: %v", err)
	}
	// a vendor per specialty so triage matches are deterministic
	specs := []string{"heating", "plumbing", "electrical", "general"}
	for _, sp := range specs {
		_, _ = pool.Exec(ctx, `INSERT INTO vendors (name, specialty, hourly_rate, rating, email) VALUES ($1,$2,80,4.5,$3)`,
			fmt.Sprintf("Stress %s", sp), sp, fmt.Sprintf("%s@vendors.example.com", sp))
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"issues", `SELECT id, property_id, category, status, estimated_cost, created_at FROM issues ORDER BY created_at DESC LIMIT 50`},
		{"property_wallets", `SELECT id, property_id, balance, updated_at FROM property_wallets ORDER BY updated_at DESC LIMIT 50`},
		{"wallet_transactions", `SELECT id, property_id, amount, note, created_at FROM wallet_transactions ORDER BY created_at DESC LIMIT 50`},
		{"chat_messages", `SELECT id, issue_id, property_id, role, created_at FROM chat_messages ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
