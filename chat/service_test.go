package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestListForIssue_DirectMessagesSkipBackfill(t *testing.T) {
	pool := &fakePool{}
	direct := []Message{msg("m1", "issue-1"), msg("m2", "issue-1")}
	repo := &fakeRepo{
		ref:    IssueRef{ID: "issue-1", PropertyID: "prop-1", TenantID: "ten-1"},
		direct: direct,
	}
	svc := NewService(pool, repo)

	got, err := svc.ListForIssue(context.Background(), "issue-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if repo.claimed {
		t.Error("expected orphan claim to be skipped when direct messages exist")
	}
	if !pool.tx.committed {
		t.Error("expected commit")
	}
}

func TestListForIssue_BackfillsOrphans(t *testing.T) {
	pool := &fakePool{}
	orphans := []Message{msg("m1", ""), msg("m2", "")}
	repo := &fakeRepo{
		ref:     IssueRef{ID: "issue-1", PropertyID: "prop-1", TenantID: "ten-1", CreatedAt: time.Now()},
		orphans: orphans,
	}
	svc := NewService(pool, repo)

	got, err := svc.ListForIssue(context.Background(), "issue-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both orphans claimed, got %d", len(got))
	}
	if !repo.claimed {
		t.Error("expected orphan claim to run")
	}
	if !pool.tx.committed {
		t.Error("expected claim to be committed")
	}
}

func TestListForIssue_UnknownIssue(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{refErr: ErrIssueNotFound}
	svc := NewService(pool, repo)

	_, err := svc.ListForIssue(context.Background(), "missing")
	if !errors.Is(err, ErrIssueNotFound) {
		t.Fatalf("expected ErrIssueNotFound, got %v", err)
	}
	if pool.tx.committed {
		t.Error("expected rollback, not commit")
	}
}

func TestCreate_DefaultsToLandlordRole(t *testing.T) {
	pool := &fakePool{}
	repo := &fakeRepo{ref: IssueRef{ID: "issue-1", PropertyID: "prop-1", TenantID: "ten-1"}}
	svc := NewService(pool, repo).WithIDGenerator(func() string { return "msg-1" })

	created, err := svc.Create(context.Background(), CreateParams{
		IssueID:  "issue-1",
		TenantID: "ten-1",
		Content:  "A plumber will visit tomorrow morning.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Role != RoleLandlord {
		t.Fatalf("expected landlord role, got %s", created.Role)
	}
	if created.IssueID == nil || *created.IssueID != "issue-1" {
		t.Fatalf("expected issue link, got %v", created.IssueID)
	}
	if created.PropertyID != "prop-1" {
		t.Fatalf("expected property inherited from issue, got %q", created.PropertyID)
	}
}

func TestCreate_RejectsEmptyContent(t *testing.T) {
	svc := NewService(&fakePool{}, &fakeRepo{})

	if _, err := svc.Create(context.Background(), CreateParams{
		IssueID:  "issue-1",
		TenantID: "ten-1",
		Content:  "   ",
	}); err == nil {
		t.Fatal("expected validation error for empty content")
	}
}

func msg(id, issueID string) Message {
	m := Message{ID: id, PropertyID: "prop-1", TenantID: "ten-1", Role: RoleTenant, Content: "hello"}
	if issueID != "" {
		m.IssueID = &issueID
	}
	return m
}

type fakeRepo struct {
	ref     IssueRef
	refErr  error
	direct  []Message
	orphans []Message
	claimed bool
}

func (f *fakeRepo) GetIssueRef(ctx context.Context, tx pgx.Tx, issueID string) (IssueRef, error) {
	if f.refErr != nil {
		return IssueRef{}, f.refErr
	}
	return f.ref, nil
}

func (f *fakeRepo) ListForIssue(ctx context.Context, tx pgx.Tx, issueID string) ([]Message, error) {
	return f.direct, nil
}

func (f *fakeRepo) ClaimOrphans(ctx context.Context, tx pgx.Tx, ref IssueRef) ([]Message, error) {
	f.claimed = true
	claimed := make([]Message, len(f.orphans))
	for i, m := range f.orphans {
		m.IssueID = &ref.ID
		claimed[i] = m
	}
	return claimed, nil
}

func (f *fakeRepo) Create(ctx context.Context, tx pgx.Tx, msg Message) (Message, error) {
	return msg, nil
}

type fakePool struct {
	tx fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
