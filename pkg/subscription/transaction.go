package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction statuses written by the webhook path. The confirm path stores
// the provider's raw status string instead, so the ledger keeps whatever the
// provider actually said.
const (
	TxStatusSuccess = "Success"
	TxStatusSkipped = "Skipped"
	TxStatusFailed  = "Failed"
)

// Transaction is one row of the append-only billing ledger. A row is written
// for every confirm attempt and every webhook-driven renewal event, whether
// or not money moved, so failed attempts are never silently lost. The core
// never updates or deletes transactions.
type Transaction struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	Amount         decimal.Decimal
	Status         string // free-form provider status, not a Status enum value
	PayerID        string // provider-side payer reference, may be empty
	Message        string // provider long message, may be empty
	CreatedAt      time.Time
}
