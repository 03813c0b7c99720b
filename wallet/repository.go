package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrPropertyNotFound signals a financial operation against an unknown property.
var ErrPropertyNotFound = errors.New("wallet: property not found")

// Repository handles data access for wallets and their audit log.
type Repository interface {
	CheckProperty(ctx context.Context, tx pgx.Tx, propertyID string) error
	GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, propertyID string) (Wallet, error)
	IncrementBalance(ctx context.Context, tx pgx.Tx, propertyID string, amount decimal.Decimal) (Wallet, error)
	SetBalance(ctx context.Context, tx pgx.Tx, propertyID string, balance decimal.Decimal) (Wallet, error)
	AppendTransaction(ctx context.Context, tx pgx.Tx, propertyID string, amount decimal.Decimal, note string) (Transaction, error)
	SumApproved(ctx context.Context, tx pgx.Tx, propertyID string) (decimal.Decimal, error)
	Find(ctx context.Context, propertyID string) (*Wallet, error)
	ListWallets(ctx context.Context) ([]Wallet, error)
	SumApprovedDirect(ctx context.Context, propertyID string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, propertyID string) ([]Transaction, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed wallet repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const walletColumns = `id, property_id, balance::text, created_at, updated_at`

// CheckProperty verifies the property exists before any wallet mutation.
func (r *PGRepository) CheckProperty(ctx context.Context, tx pgx.Tx, propertyID string) error {
	var one int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM properties WHERE id = $1`, propertyID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPropertyNotFound
		}
		return fmt.Errorf("wallet: check property: %w", err)
	}
	return nil
}

// GetOrCreateForUpdate returns the property's wallet, creating it with a
// zero balance if absent, and locks the row for the rest of the transaction.
// The insert-on-conflict upsert keeps concurrent first access safe: the
// unique constraint on property_id guarantees exactly one wallet wins.
func (r *PGRepository) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, propertyID string) (Wallet, error) {
	const upsert = `
		INSERT INTO property_wallets (property_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (property_id) DO NOTHING`

	if _, err := tx.Exec(ctx, upsert, propertyID); err != nil {
		return Wallet{}, fmt.Errorf("wallet: upsert wallet: %w", err)
	}

	const query = `SELECT ` + walletColumns + ` FROM property_wallets WHERE property_id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, propertyID))
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet: lock wallet: %w", err)
	}
	return w, nil
}

func (r *PGRepository) IncrementBalance(ctx context.Context, tx pgx.Tx, propertyID string, amount decimal.Decimal) (Wallet, error) {
	const query = `
		UPDATE property_wallets
		SET balance = balance + $2,
		    updated_at = now()
		WHERE property_id = $1
		RETURNING ` + walletColumns

	w, err := scanWallet(tx.QueryRow(ctx, query, propertyID, amount.String()))
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet: increment balance: %w", err)
	}
	return w, nil
}

func (r *PGRepository) SetBalance(ctx context.Context, tx pgx.Tx, propertyID string, balance decimal.Decimal) (Wallet, error) {
	const query = `
		UPDATE property_wallets
		SET balance = $2,
		    updated_at = now()
		WHERE property_id = $1
		RETURNING ` + walletColumns

	w, err := scanWallet(tx.QueryRow(ctx, query, propertyID, balance.String()))
	if err != nil {
		return Wallet{}, fmt.Errorf("wallet: set balance: %w", err)
	}
	return w, nil
}

func (r *PGRepository) AppendTransaction(ctx context.Context, tx pgx.Tx, propertyID string, amount decimal.Decimal, note string) (Transaction, error) {
	const query = `
		INSERT INTO wallet_transactions (property_id, amount, note)
		VALUES ($1, $2, $3)
		RETURNING id, property_id, amount::text, note, created_at`

	txn, err := scanTransaction(tx.QueryRow(ctx, query, propertyID, amount.String(), note))
	if err != nil {
		return Transaction{}, fmt.Errorf("wallet: append transaction: %w", err)
	}
	return txn, nil
}

const sumApprovedSQL = `
	SELECT COALESCE(SUM(estimated_cost), 0)::text
	FROM issues
	WHERE property_id = $1 AND status = 'approved'`

// SumApproved computes the "used" aggregate inside a transaction.
func (r *PGRepository) SumApproved(ctx context.Context, tx pgx.Tx, propertyID string) (decimal.Decimal, error) {
	return scanSum(tx.QueryRow(ctx, sumApprovedSQL, propertyID))
}

// SumApprovedDirect computes the "used" aggregate on the read path.
func (r *PGRepository) SumApprovedDirect(ctx context.Context, propertyID string) (decimal.Decimal, error) {
	return scanSum(r.pool.QueryRow(ctx, sumApprovedSQL, propertyID))
}

// Find returns the property's wallet, or nil when none exists yet. Reads
// never create a wallet.
func (r *PGRepository) Find(ctx context.Context, propertyID string) (*Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM property_wallets WHERE property_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, propertyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("wallet: find: %w", err)
	}
	return &w, nil
}

func (r *PGRepository) ListWallets(ctx context.Context) ([]Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM property_wallets ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("wallet: query wallets: %w", err)
	}
	defer rows.Close()

	list := []Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("wallet: scan wallet: %w", err)
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func (r *PGRepository) ListTransactions(ctx context.Context, propertyID string) ([]Transaction, error) {
	const query = `
		SELECT id, property_id, amount::text, note, created_at
		FROM wallet_transactions
		WHERE property_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("wallet: query transactions: %w", err)
	}
	defer rows.Close()

	list := []Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("wallet: scan transaction: %w", err)
		}
		list = append(list, txn)
	}
	return list, rows.Err()
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w          Wallet
		rawBalance string
	)
	if err := row.Scan(&w.ID, &w.PropertyID, &rawBalance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Wallet{}, err
	}
	balance, err := decimal.NewFromString(rawBalance)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse balance %q: %w", rawBalance, err)
	}
	w.Balance = balance
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		txn       Transaction
		rawAmount string
	)
	if err := row.Scan(&txn.ID, &txn.PropertyID, &rawAmount, &txn.Note, &txn.CreatedAt); err != nil {
		return Transaction{}, err
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount %q: %w", rawAmount, err)
	}
	txn.Amount = amount
	return txn, nil
}

func scanSum(row pgx.Row) (decimal.Decimal, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		return decimal.Decimal{}, fmt.Errorf("wallet: sum approved: %w", err)
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("wallet: parse sum %q: %w", raw, err)
	}
	return sum, nil
}
