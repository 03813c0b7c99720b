package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet mirrors the property_wallets table. One wallet per property,
// created lazily with a zero balance on first financial operation.
type Wallet struct {
	ID         string
	PropertyID string
	Balance    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Transaction mirrors the wallet_transactions table. Append-only audit log
// of top-ups; rows are never mutated or deleted.
type Transaction struct {
	ID         string
	PropertyID string
	Amount     decimal.Decimal
	Note       string
	CreatedAt  time.Time
}

// Summary is the derived financial view of a property's wallet. Used and
// Remaining are recomputed from current issue state on every read; they are
// never stored.
type Summary struct {
	PropertyID string
	Balance    decimal.Decimal
	Used       decimal.Decimal
	Remaining  decimal.Decimal
}
