package property

import "time"

// Property mirrors the properties table. The landlord reference is optional;
// unowned properties still take maintenance reports.
type Property struct {
	ID         string
	Address    string
	LandlordID *string
	CreatedAt  time.Time
}
