package vendors

import (
	"time"

	"github.com/shopspring/decimal"

	"fixflow/triage"
)

// Specialty is a vendor's trade category matched against issue categories.
type Specialty string

const (
	SpecialtyHeating    Specialty = "heating"
	SpecialtyPlumbing   Specialty = "plumbing"
	SpecialtyElectrical Specialty = "electrical"
	SpecialtyGeneral    Specialty = "general"
)

// Vendor mirrors the vendors table.
type Vendor struct {
	ID         string
	Name       string
	Specialty  Specialty
	HourlyRate decimal.Decimal
	Rating     *float64
	Email      *string
	CreatedAt  time.Time
}

// SpecialtyFor maps an issue category to the preferred vendor specialty.
// Uncategorized work goes to a general-purpose vendor.
func SpecialtyFor(category triage.Category) Specialty {
	switch category {
	case triage.CategoryHeating:
		return SpecialtyHeating
	case triage.CategoryPlumbing:
		return SpecialtyPlumbing
	case triage.CategoryElectrical:
		return SpecialtyElectrical
	case triage.CategoryOther:
		return SpecialtyGeneral
	default:
		return SpecialtyGeneral
	}
}
