package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIssueNotFound signals that the referenced issue does not exist.
var ErrIssueNotFound = errors.New("chat: issue not found")

// IssueRef is the slice of issue state the message workflow needs.
type IssueRef struct {
	ID         string
	PropertyID string
	TenantID   string
	CreatedAt  time.Time
}

// Repository handles data access for chat messages.
type Repository interface {
	GetIssueRef(ctx context.Context, tx pgx.Tx, issueID string) (IssueRef, error)
	ListForIssue(ctx context.Context, tx pgx.Tx, issueID string) ([]Message, error)
	ClaimOrphans(ctx context.Context, tx pgx.Tx, ref IssueRef) ([]Message, error)
	Create(ctx context.Context, tx pgx.Tx, msg Message) (Message, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed chat repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const messageColumns = `id, issue_id, property_id, tenant_id, role, content, created_at`

// GetIssueRef reads the owning issue inside the caller's transaction so the
// backfill decision and claim observe the same snapshot.
func (r *PGRepository) GetIssueRef(ctx context.Context, tx pgx.Tx, issueID string) (IssueRef, error) {
	const query = `SELECT id, property_id, tenant_id, created_at FROM issues WHERE id = $1`

	var ref IssueRef
	if err := tx.QueryRow(ctx, query, issueID).Scan(&ref.ID, &ref.PropertyID, &ref.TenantID, &ref.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IssueRef{}, ErrIssueNotFound
		}
		return IssueRef{}, fmt.Errorf("chat: get issue ref: %w", err)
	}
	return ref, nil
}

func (r *PGRepository) ListForIssue(ctx context.Context, tx pgx.Tx, issueID string) ([]Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM chat_messages
		WHERE issue_id = $1
		ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("chat: query messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// ClaimOrphans stamps the issue id onto unlinked messages for the same
// tenant/property pair that predate the issue, as one batch update, and
// returns them in chronological order.
func (r *PGRepository) ClaimOrphans(ctx context.Context, tx pgx.Tx, ref IssueRef) ([]Message, error) {
	const query = `
		WITH claimed AS (
			UPDATE chat_messages
			SET issue_id = $1
			WHERE issue_id IS NULL
			  AND property_id = $2
			  AND tenant_id = $3
			  AND created_at <= $4
			RETURNING ` + messageColumns + `
		)
		SELECT ` + messageColumns + ` FROM claimed ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, ref.ID, ref.PropertyID, ref.TenantID, ref.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("chat: claim orphans: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, msg Message) (Message, error) {
	const query = `
		INSERT INTO chat_messages (id, issue_id, property_id, tenant_id, role, content)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING ` + messageColumns

	row := tx.QueryRow(ctx, query, msg.ID, msg.IssueID, msg.PropertyID, msg.TenantID, msg.Role, msg.Content)
	created, err := scanMessage(row)
	if err != nil {
		return Message{}, fmt.Errorf("chat: create message: %w", err)
	}
	return created, nil
}

// AppendTenantReport records the tenant's original report against a freshly
// created issue. Satisfies the issue service's MessageWriter collaborator.
func (r *PGRepository) AppendTenantReport(ctx context.Context, tx pgx.Tx, issueID, propertyID, tenantID, content string) error {
	_, err := r.Create(ctx, tx, Message{
		IssueID:    &issueID,
		PropertyID: propertyID,
		TenantID:   tenantID,
		Role:       RoleTenant,
		Content:    content,
	})
	return err
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	list := []Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("chat: scan message: %w", err)
		}
		list = append(list, msg)
	}
	return list, rows.Err()
}

func scanMessage(row pgx.Row) (Message, error) {
	var msg Message
	return msg, row.Scan(
		&msg.ID,
		&msg.IssueID,
		&msg.PropertyID,
		&msg.TenantID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)
}
