package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals that the property does not exist.
var ErrNotFound = errors.New("property: not found")

// unknownLandlord is reported to vendors when a property has no owner on file.
const unknownLandlord = "Unknown Landlord"

// Repository handles data access for properties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed property repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns a property by id.
func (r *Repository) Get(ctx context.Context, id string) (Property, error) {
	const query = `SELECT id, address, landlord_id, created_at FROM properties WHERE id = $1`

	prop, err := scanProperty(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("property: get: %w", err)
	}
	return prop, nil
}

// List returns all registered properties.
func (r *Repository) List(ctx context.Context) ([]Property, error) {
	const query = `SELECT id, address, landlord_id, created_at FROM properties ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("property: query list: %w", err)
	}
	defer rows.Close()

	list := []Property{}
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("property: scan list: %w", err)
		}
		list = append(list, prop)
	}
	return list, rows.Err()
}

// LandlordName resolves the display name of the property's landlord,
// falling back to a placeholder when the property has no owner on file.
func (r *Repository) LandlordName(ctx context.Context, propertyID string) (string, error) {
	const query = `
		SELECT u.full_name
		FROM properties p
		JOIN users u ON u.id = p.landlord_id
		WHERE p.id = $1`

	var name string
	if err := r.pool.QueryRow(ctx, query, propertyID).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return unknownLandlord, nil
		}
		return "", fmt.Errorf("property: landlord name: %w", err)
	}
	return name, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var prop Property
	return prop, row.Scan(&prop.ID, &prop.Address, &prop.LandlordID, &prop.CreatedAt)
}
