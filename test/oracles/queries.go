package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_one_wallet_per_property",
			SQL: `SELECT property_id, COUNT(*) FROM property_wallets
                  GROUP BY property_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_balance_matches_ledger",
			SQL: `SELECT w.property_id, w.balance, COALESCE(t.total, 0) AS ledger
                  FROM property_wallets w
                  LEFT JOIN (
                      SELECT property_id, SUM(amount) AS total
                      FROM wallet_transactions
                      GROUP BY property_id
                  ) t ON t.property_id = w.property_id
                  WHERE w.balance <> COALESCE(t.total, 0)`,
		},
		{
			Name: "O3_claimed_messages_match_issue",
			SQL: `SELECT m.id FROM chat_messages m
                  JOIN issues i ON i.id = m.issue_id
                  WHERE m.property_id <> i.property_id OR m.tenant_id <> i.tenant_id`,
		},
		{
			Name: "O4_claim_window",
			SQL: `SELECT m.id FROM chat_messages m
                  JOIN issues i ON i.id = m.issue_id
                  WHERE m.created_at > i.created_at`,
		},
		{
			Name: "O5_nonnegative_estimates",
			SQL:  `SELECT id FROM issues WHERE estimated_cost < 0`,
		},
		{
			Name: "O6_status_domain",
			SQL:  `SELECT id FROM issues WHERE status NOT IN ('pending','approved','rejected')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
