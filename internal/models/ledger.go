package models

import "time"

// Ledger entry kinds. Entries are append-only: they are inserted inside
// the economy service's transaction and never updated or deleted.
const (
	LedgerKindDebitPurchase = "debit-purchase"
	LedgerKindCreditGrant   = "credit-grant"
)

type LedgerEntry struct {
	ID            int       `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	UserID        int       `json:"user_id" db:"user_id"`
	Target        string    `json:"target" db:"target"` // "post", "review" or "user"
	TargetID      int       `json:"target_id" db:"target_id"`
	Amount        int64     `json:"amount" db:"amount"` // in coins, always positive
	Kind          string    `json:"kind" db:"kind"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Balance struct {
	UserID    int       `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"` // invariant: never negative
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Gift is read-only reference data for the economy.
type Gift struct {
	ID      int    `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	IconURL string `json:"icon_url" db:"icon_url"`
	Price   int64  `json:"price" db:"price"`
}

// GiftRelation records who sent which gift to which content. Created
// atomically with the ledger entry that paid for it.
type GiftRelation struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	GiftID    int       `json:"gift_id" db:"gift_id"`
	Target    string    `json:"target" db:"target"` // "post" or "review"
	TargetID  int       `json:"target_id" db:"target_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
