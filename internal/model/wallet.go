package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletStatus is the lifecycle state of an organization wallet.
type WalletStatus string

const (
	WalletActive WalletStatus = "ACTIVE"
	WalletFrozen WalletStatus = "FROZEN"
	WalletClosed WalletStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s WalletStatus) Valid() bool {
	switch s {
	case WalletActive, WalletFrozen, WalletClosed:
		return true
	}
	return false
}

// Wallet is the single balance record of an organization. Balance is only
// ever written inside a unit of work that also appends a Transaction.
type Wallet struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"id"`
	OrgID         uint64          `gorm:"uniqueIndex;not null" json:"orgId"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"balance"`
	LedgerBalance decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"ledgerBalance"`
	Status        WalletStatus    `gorm:"size:16;not null;default:'ACTIVE'" json:"status"`
	Version       uint64          `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Wallet) TableName() string { return "org_wallet" }
