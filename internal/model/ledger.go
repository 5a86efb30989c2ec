package model

import "time"

// LedgerType tags a ledger entry as a credit or a debit. Amounts are stored
// positive; the type carries the sign.
type LedgerType string

const (
	LedgerEarn   LedgerType = "EARN"
	LedgerRedeem LedgerType = "REDEEM"
)

// PointLedgerEntry is an immutable, append-only record of a point-affecting
// event. Ref points at the originating redemption or waste submission.
type PointLedgerEntry struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"-"`
	Type      LedgerType `db:"type" json:"type"`
	Amount    int64      `db:"amount" json:"amount"`
	Note      string     `db:"note" json:"note"`
	Ref       string     `db:"ref" json:"ref"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// BalanceResponse is the balance endpoint payload: the live balance plus the
// newest-first tail of the ledger.
type BalanceResponse struct {
	Points int64              `json:"points"`
	Last50 []PointLedgerEntry `json:"last50"`
}
