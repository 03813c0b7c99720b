package vendors

import (
	"context"
	"fmt"

	"fixflow/triage"
)

// Matcher selects the vendor best suited for an issue category.
type Matcher struct {
	repo Repository
}

// NewMatcher builds a Matcher using the provided repository.
func NewMatcher(repo Repository) *Matcher {
	return &Matcher{repo: repo}
}

// Match returns the highest-rated vendor of the category's preferred
// specialty, falling back to the best-rated vendor of any specialty.
// It returns nil only when no vendors are registered at all.
func (m *Matcher) Match(ctx context.Context, category triage.Category) (*Vendor, error) {
	preferred := SpecialtyFor(category)

	vendor, err := m.repo.TopBySpecialty(ctx, preferred)
	if err != nil {
		return nil, fmt.Errorf("vendors: match specialty %s: %w", preferred, err)
	}
	if vendor != nil {
		return vendor, nil
	}

	vendor, err = m.repo.TopOverall(ctx)
	if err != nil {
		return nil, fmt.Errorf("vendors: match fallback: %w", err)
	}
	return vendor, nil
}
