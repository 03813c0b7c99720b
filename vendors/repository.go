package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound signals that the vendor does not exist.
	ErrNotFound = errors.New("vendors: not found")
	// ErrInvalidRate signals a non-positive hourly rate on create.
	ErrInvalidRate = errors.New("vendors: hourly rate must be positive")
	// ErrNameRequired signals a missing vendor name on create.
	ErrNameRequired = errors.New("vendors: name required")
)

// Repository handles data access for vendors.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Vendor, error)
	Get(ctx context.Context, id string) (Vendor, error)
	List(ctx context.Context) ([]Vendor, error)
	TopBySpecialty(ctx context.Context, specialty Specialty) (*Vendor, error)
	TopOverall(ctx context.Context) (*Vendor, error)
}

// CreateParams contains write parameters for registering a vendor.
type CreateParams struct {
	Name       string
	Specialty  Specialty
	HourlyRate decimal.Decimal
	Rating     *float64
	Email      *string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed vendor repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const vendorColumns = `id, name, specialty, hourly_rate::text, rating, email, created_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Vendor, error) {
	if !params.HourlyRate.IsPositive() {
		return Vendor{}, ErrInvalidRate
	}
	if params.Name == "" {
		return Vendor{}, ErrNameRequired
	}

	const query = `
		INSERT INTO vendors (name, specialty, hourly_rate, rating, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + vendorColumns

	vendor, err := scanVendor(r.pool.QueryRow(ctx, query,
		params.Name, params.Specialty, params.HourlyRate.String(), params.Rating, params.Email))
	if err != nil {
		return Vendor{}, fmt.Errorf("vendors: create: %w", err)
	}
	return vendor, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`

	vendor, err := scanVendor(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, ErrNotFound
		}
		return Vendor{}, fmt.Errorf("vendors: get: %w", err)
	}
	return vendor, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors
		ORDER BY rating DESC NULLS LAST, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vendors: query list: %w", err)
	}
	defer rows.Close()

	list := []Vendor{}
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("vendors: scan list: %w", err)
		}
		list = append(list, vendor)
	}
	return list, rows.Err()
}

// TopBySpecialty returns the best-rated vendor of a specialty, or nil when
// none is registered. Null ratings sort last; ties break on insertion order.
func (r *PGRepository) TopBySpecialty(ctx context.Context, specialty Specialty) (*Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors
		WHERE specialty = $1
		ORDER BY rating DESC NULLS LAST, created_at ASC, id ASC
		LIMIT 1`

	vendor, err := scanVendor(r.pool.QueryRow(ctx, query, specialty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vendors: top by specialty: %w", err)
	}
	return &vendor, nil
}

// TopOverall returns the best-rated vendor across all specialties, or nil
// when the vendor set is empty.
func (r *PGRepository) TopOverall(ctx context.Context) (*Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors
		ORDER BY rating DESC NULLS LAST, created_at ASC, id ASC
		LIMIT 1`

	vendor, err := scanVendor(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vendors: top overall: %w", err)
	}
	return &vendor, nil
}

func scanVendor(row pgx.Row) (Vendor, error) {
	var (
		vendor  Vendor
		rawRate string
	)
	if err := row.Scan(
		&vendor.ID,
		&vendor.Name,
		&vendor.Specialty,
		&rawRate,
		&vendor.Rating,
		&vendor.Email,
		&vendor.CreatedAt,
	); err != nil {
		return Vendor{}, err
	}

	rate, err := decimal.NewFromString(rawRate)
	if err != nil {
		return Vendor{}, fmt.Errorf("parse hourly rate %q: %w", rawRate, err)
	}
	vendor.HourlyRate = rate
	return vendor, nil
}
