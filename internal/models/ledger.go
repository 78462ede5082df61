package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is one signed time-credit movement tied to a task. Entries are
// immutable once written and are always produced in equal-and-opposite pairs
// at settlement, so the sum per task is zero. The member's credit_balance is
// a cached read optimization; the ledger is the source of truth.
type LedgerEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	TaskID       uuid.UUID `json:"task_id"`
	ChangeAmount int       `json:"change_amount"`
	BalanceAfter *int      `json:"balance_after,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
