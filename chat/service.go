package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service owns message listing (with orphan backfill) and creation.
type Service struct {
	pool        TxBeginner
	repo        Repository
	idGenerator func() string
}

// NewService builds a chat service on the given pool and repository.
func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
	}
}

// WithIDGenerator overrides message id generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// ListForIssue returns an issue's messages in chronological order. When the
// issue has no directly linked messages, orphaned messages for the same
// tenant/property pair created before the issue are claimed for it in the
// same transaction and returned. The claim happens at most once: after it,
// the messages are directly linked and later reads take the fast path.
func (s *Service) ListForIssue(ctx context.Context, issueID string) ([]Message, error) {
	if issueID == "" {
		return nil, fmt.Errorf("chat: missing issue id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := s.repo.GetIssueRef(ctx, tx, issueID)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.ListForIssue(ctx, tx, issueID)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		messages, err = s.repo.ClaimOrphans(ctx, tx, ref)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("chat: commit tx: %w", err)
	}

	return messages, nil
}

// CreateParams carries a new message for an existing issue.
type CreateParams struct {
	IssueID  string
	TenantID string
	Role     Role
	Content  string
}

// Create appends a message to an issue's conversation. The message inherits
// the issue's property reference; the role defaults to landlord, matching
// the dashboard reply flow.
func (s *Service) Create(ctx context.Context, params CreateParams) (Message, error) {
	if params.IssueID == "" {
		return Message{}, fmt.Errorf("chat: missing issue id")
	}
	if params.TenantID == "" {
		return Message{}, fmt.Errorf("chat: missing tenant id")
	}
	if strings.TrimSpace(params.Content) == "" {
		return Message{}, fmt.Errorf("chat: empty content")
	}
	role := params.Role
	if role == "" {
		role = RoleLandlord
	}
	if role != RoleTenant && role != RoleLandlord && role != RoleSystem {
		return Message{}, fmt.Errorf("chat: invalid role %q", role)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("chat: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := s.repo.GetIssueRef(ctx, tx, params.IssueID)
	if err != nil {
		return Message{}, err
	}

	created, err := s.repo.Create(ctx, tx, Message{
		ID:         s.idGenerator(),
		IssueID:    &ref.ID,
		PropertyID: ref.PropertyID,
		TenantID:   params.TenantID,
		Role:       role,
		Content:    params.Content,
	})
	if err != nil {
		return Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("chat: commit tx: %w", err)
	}

	return created, nil
}
