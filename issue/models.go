package issue

import (
	"time"

	"github.com/shopspring/decimal"

	"fixflow/triage"
)

// Status is the lifecycle state of a reported issue. Pending is the only
// non-terminal state: once approved or rejected an issue never transitions
// again.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Issue mirrors the issues table.
type Issue struct {
	ID            string
	PropertyID    string
	TenantID      string
	Category      triage.Category
	Status        Status
	Description   string
	EstimatedCost decimal.Decimal
	VendorID      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
