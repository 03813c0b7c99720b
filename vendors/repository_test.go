package vendors

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreate_ValidatesBeforeAnyWrite(t *testing.T) {
	// Validation runs before the pool is touched, so a zero repository is enough.
	repo := NewRepository(nil)

	_, err := repo.Create(context.Background(), CreateParams{
		Name:       "",
		Specialty:  SpecialtyPlumbing,
		HourlyRate: decimal.RequireFromString("80.00"),
	})
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}

	_, err = repo.Create(context.Background(), CreateParams{
		Name:       "pipes-r-us",
		Specialty:  SpecialtyPlumbing,
		HourlyRate: decimal.Zero,
	})
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}
