package wallet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service owns the wallet ledger: balance mutations, the append-only top-up
// audit log, and the derived used/remaining summary.
type Service struct {
	pool TxBeginner
	repo Repository
}

// NewService builds a wallet service on the given pool and repository.
func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{pool: pool, repo: repo}
}

// Topup increments the property's wallet balance and appends an audit
// transaction, creating the wallet lazily on first use. The amount may be
// negative; corrections are legitimate top-ups. Returns the recomputed
// summary so callers never observe a stale used/remaining pair.
func (s *Service) Topup(ctx context.Context, propertyID string, amount decimal.Decimal, note string) (Summary, error) {
	if propertyID == "" {
		return Summary{}, fmt.Errorf("wallet: missing property id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("wallet: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.CheckProperty(ctx, tx, propertyID); err != nil {
		return Summary{}, err
	}

	if _, err := s.repo.GetOrCreateForUpdate(ctx, tx, propertyID); err != nil {
		return Summary{}, err
	}

	updated, err := s.repo.IncrementBalance(ctx, tx, propertyID, amount)
	if err != nil {
		return Summary{}, err
	}

	if _, err := s.repo.AppendTransaction(ctx, tx, propertyID, amount, note); err != nil {
		return Summary{}, err
	}

	used, err := s.repo.SumApproved(ctx, tx, propertyID)
	if err != nil {
		return Summary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("wallet: commit tx: %w", err)
	}

	return summarize(updated.PropertyID, updated.Balance, used), nil
}

// SetBalance overwrites the wallet balance directly. This is the
// administrative correction path: no audit transaction is appended.
func (s *Service) SetBalance(ctx context.Context, propertyID string, balance decimal.Decimal) (Summary, error) {
	if propertyID == "" {
		return Summary{}, fmt.Errorf("wallet: missing property id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("wallet: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.CheckProperty(ctx, tx, propertyID); err != nil {
		return Summary{}, err
	}

	if _, err := s.repo.GetOrCreateForUpdate(ctx, tx, propertyID); err != nil {
		return Summary{}, err
	}

	updated, err := s.repo.SetBalance(ctx, tx, propertyID, balance)
	if err != nil {
		return Summary{}, err
	}

	used, err := s.repo.SumApproved(ctx, tx, propertyID)
	if err != nil {
		return Summary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Summary{}, fmt.Errorf("wallet: commit tx: %w", err)
	}

	return summarize(updated.PropertyID, updated.Balance, used), nil
}

// Get returns the property's wallet summary. Reads do not create wallets:
// a property with no wallet yet reports a zero balance against whatever
// approved issue costs it has accrued.
func (s *Service) Get(ctx context.Context, propertyID string) (Summary, error) {
	if propertyID == "" {
		return Summary{}, fmt.Errorf("wallet: missing property id")
	}

	balance := decimal.Zero
	if w, err := s.repo.Find(ctx, propertyID); err != nil {
		return Summary{}, err
	} else if w != nil {
		balance = w.Balance
	}

	used, err := s.repo.SumApprovedDirect(ctx, propertyID)
	if err != nil {
		return Summary{}, err
	}

	return summarize(propertyID, balance, used), nil
}

// List returns the summary for every wallet, recomputing used/remaining
// per property.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(wallets))
	for _, w := range wallets {
		used, err := s.repo.SumApprovedDirect(ctx, w.PropertyID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(w.PropertyID, w.Balance, used))
	}
	return summaries, nil
}

// Transactions returns the property's append-only top-up audit log.
func (s *Service) Transactions(ctx context.Context, propertyID string) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, propertyID)
}

func summarize(propertyID string, balance, used decimal.Decimal) Summary {
	return Summary{
		PropertyID: propertyID,
		Balance:    balance,
		Used:       used,
		Remaining:  balance.Sub(used),
	}
}
