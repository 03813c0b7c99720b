package issue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound signals that the issue does not exist.
var ErrNotFound = errors.New("issue: not found")

// Repository handles data access for issues.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, issue Issue) (Issue, error)
	Get(ctx context.Context, id string) (Issue, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Issue, error)
	List(ctx context.Context) ([]Issue, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Issue, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed issue repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const issueColumns = `id, property_id, tenant_id, category, status, description, estimated_cost::text, vendor_id, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, issue Issue) (Issue, error) {
	const query = `
		INSERT INTO issues (id, property_id, tenant_id, category, status, description, estimated_cost, vendor_id)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + issueColumns

	row := tx.QueryRow(ctx, query,
		issue.ID,
		issue.PropertyID,
		issue.TenantID,
		issue.Category,
		issue.Status,
		issue.Description,
		issue.EstimatedCost.String(),
		issue.VendorID,
	)

	created, err := scanIssue(row)
	if err != nil {
		return Issue{}, fmt.Errorf("issue: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE id = $1`

	found, err := scanIssue(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, ErrNotFound
		}
		return Issue{}, fmt.Errorf("issue: get: %w", err)
	}
	return found, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE id = $1 FOR UPDATE`

	found, err := scanIssue(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issue{}, ErrNotFound
		}
		return Issue{}, fmt.Errorf("issue: get for update: %w", err)
	}
	return found, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("issue: query list: %w", err)
	}
	defer rows.Close()

	list := []Issue{}
	for rows.Next() {
		found, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("issue: scan list: %w", err)
		}
		list = append(list, found)
	}
	return list, rows.Err()
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Issue, error) {
	const query = `
		UPDATE issues
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + issueColumns

	updated, err := scanIssue(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		return Issue{}, fmt.Errorf("issue: update status: %w", err)
	}
	return updated, nil
}

func scanIssue(row pgx.Row) (Issue, error) {
	var (
		found   Issue
		rawCost string
	)
	if err := row.Scan(
		&found.ID,
		&found.PropertyID,
		&found.TenantID,
		&found.Category,
		&found.Status,
		&found.Description,
		&rawCost,
		&found.VendorID,
		&found.CreatedAt,
		&found.UpdatedAt,
	); err != nil {
		return Issue{}, err
	}

	cost, err := decimal.NewFromString(rawCost)
	if err != nil {
		return Issue{}, fmt.Errorf("parse estimated cost %q: %w", rawCost, err)
	}
	found.EstimatedCost = cost
	return found, nil
}
