package issue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"fixflow/notify"
	"fixflow/property"
	"fixflow/triage"
	"fixflow/vendors"
)

var (
	// ErrAlreadyDecided signals a transition attempt on a terminal issue.
	ErrAlreadyDecided = errors.New("issue: already approved or rejected")
	// ErrVendorEmailMissing signals that the vendor has no contact email.
	ErrVendorEmailMissing = errors.New("issue: vendor email not found")
	// ErrNotifierUnconfigured signals a vendor request without notify wiring.
	ErrNotifierUnconfigured = errors.New("issue: vendor notifier not configured")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// VendorMatcher selects a vendor for a freshly classified issue.
type VendorMatcher interface {
	Match(ctx context.Context, category triage.Category) (*vendors.Vendor, error)
}

// MessageWriter records the tenant's original report as a chat message in
// the same transaction that creates the issue.
type MessageWriter interface {
	AppendTenantReport(ctx context.Context, tx pgx.Tx, issueID, propertyID, tenantID, content string) error
}

// PropertyReader resolves property details for vendor notifications.
type PropertyReader interface {
	Get(ctx context.Context, id string) (property.Property, error)
	LandlordName(ctx context.Context, propertyID string) (string, error)
}

// VendorReader resolves a vendor chosen for dispatch.
type VendorReader interface {
	Get(ctx context.Context, id string) (vendors.Vendor, error)
}

// Notifier delivers the outbound vendor request.
type Notifier interface {
	Send(ctx context.Context, req notify.Request) error
}

// Service owns issue creation and the approve/reject state machine.
type Service struct {
	pool     TxBeginner
	repo     Repository
	matcher  VendorMatcher
	messages MessageWriter

	properties PropertyReader
	vendors    VendorReader
	notifier   Notifier

	idGenerator func() string
	now         func() time.Time
}

// NewService wires the triage pipeline dependencies for issue creation.
func NewService(pool TxBeginner, repo Repository, matcher VendorMatcher, messages MessageWriter) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		matcher:     matcher,
		messages:    messages,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

// WithVendorRequest enables the outbound vendor-request flow.
func (s *Service) WithVendorRequest(properties PropertyReader, vendorReader VendorReader, notifier Notifier) *Service {
	s.properties = properties
	s.vendors = vendorReader
	s.notifier = notifier
	return s
}

// WithIDGenerator overrides issue id generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// ReportParams carries a tenant's free-text maintenance report.
// ImageDescription is optional text produced from an attached photo; when
// present it joins the report for classification and the chat record.
type ReportParams struct {
	PropertyID       string
	TenantID         string
	Report           string
	ImageDescription string
}

// Report runs the triage pipeline over a tenant report and creates the
// resulting issue in state pending, together with the originating chat
// message, in a single transaction. Vendor assignment is best effort: an
// issue may be created without a vendor when none is registered, in which
// case the estimated cost is zero.
func (s *Service) Report(ctx context.Context, params ReportParams) (Issue, error) {
	if params.PropertyID == "" {
		return Issue{}, fmt.Errorf("issue: missing property id")
	}
	if params.TenantID == "" {
		return Issue{}, fmt.Errorf("issue: missing tenant id")
	}
	if strings.TrimSpace(params.Report) == "" {
		return Issue{}, fmt.Errorf("issue: empty report")
	}

	report := params.Report
	if desc := strings.TrimSpace(params.ImageDescription); desc != "" {
		report = report + "\nPhoto: " + desc
	}

	category := triage.Classify(report)
	description := triage.BuildSummary(report, category)

	vendor, err := s.matcher.Match(ctx, category)
	if err != nil {
		return Issue{}, err
	}

	cost := decimal.Zero
	var vendorID *string
	if vendor != nil {
		cost, err = triage.EstimateCost(vendor.HourlyRate, category)
		if err != nil {
			return Issue{}, fmt.Errorf("issue: estimate cost: %w", err)
		}
		vendorID = &vendor.ID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Issue{}, fmt.Errorf("issue: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.Create(ctx, tx, Issue{
		ID:            s.idGenerator(),
		PropertyID:    params.PropertyID,
		TenantID:      params.TenantID,
		Category:      category,
		Status:        StatusPending,
		Description:   description,
		EstimatedCost: cost,
		VendorID:      vendorID,
	})
	if err != nil {
		return Issue{}, err
	}

	if err := s.messages.AppendTenantReport(ctx, tx, created.ID, created.PropertyID, created.TenantID, report); err != nil {
		return Issue{}, fmt.Errorf("issue: append tenant report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Issue{}, fmt.Errorf("issue: commit tx: %w", err)
	}

	return created, nil
}

// Approve moves a pending issue to approved. Terminal states are immutable:
// approving an already-decided issue fails with ErrAlreadyDecided.
func (s *Service) Approve(ctx context.Context, id string) (Issue, error) {
	return s.decide(ctx, id, StatusApproved)
}

// Reject moves a pending issue to rejected.
func (s *Service) Reject(ctx context.Context, id string) (Issue, error) {
	return s.decide(ctx, id, StatusRejected)
}

func (s *Service) decide(ctx context.Context, id string, next Status) (Issue, error) {
	if id == "" {
		return Issue{}, fmt.Errorf("issue: missing issue id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Issue{}, fmt.Errorf("issue: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return Issue{}, err
	}
	if current.Status != StatusPending {
		return Issue{}, ErrAlreadyDecided
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, id, next)
	if err != nil {
		return Issue{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Issue{}, fmt.Errorf("issue: commit tx: %w", err)
	}

	return updated, nil
}

// Get returns a single issue.
func (s *Service) Get(ctx context.Context, id string) (Issue, error) {
	return s.repo.Get(ctx, id)
}

// List returns all issues, most recent first.
func (s *Service) List(ctx context.Context) ([]Issue, error) {
	return s.repo.List(ctx)
}

// RequestVendor sends the vendor-dispatch webhook for an issue. Upstream
// failures are surfaced to the caller; there is no retry.
func (s *Service) RequestVendor(ctx context.Context, issueID, vendorID string) error {
	if s.properties == nil || s.vendors == nil || s.notifier == nil {
		return ErrNotifierUnconfigured
	}

	found, err := s.repo.Get(ctx, issueID)
	if err != nil {
		return err
	}

	vendor, err := s.vendors.Get(ctx, vendorID)
	if err != nil {
		return err
	}
	if vendor.Email == nil || *vendor.Email == "" {
		return ErrVendorEmailMissing
	}

	prop, err := s.properties.Get(ctx, found.PropertyID)
	if err != nil {
		return err
	}

	landlordName, err := s.properties.LandlordName(ctx, prop.ID)
	if err != nil {
		return err
	}

	return s.notifier.Send(ctx, notify.Request{
		VendorEmail:     *vendor.Email,
		PropertyAddress: prop.Address,
		LandlordName:    landlordName,
		IssueID:         found.ID,
	})
}
