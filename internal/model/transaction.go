package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Credit TransactionType = "CREDIT"
	Debit  TransactionType = "DEBIT"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
)

// Transaction is an append-only ledger row. Rows are inserted once and never updated.
type Transaction struct {
	ID              uint64            `gorm:"primaryKey" json:"id"`
	WalletID        uint64            `gorm:"not null;index:idx_tx_wallet_created,priority:1" json:"walletId"`
	Type            TransactionType   `gorm:"size:16;not null;index" json:"type"`
	Amount          decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"amount"`
	BalanceBefore   decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"balanceBefore"`
	BalanceAfter    decimal.Decimal   `gorm:"type:numeric(20,8);not null" json:"balanceAfter"`
	Status          TransactionStatus `gorm:"size:16;not null;index" json:"status"`
	Reference       string            `gorm:"size:64;not null;uniqueIndex" json:"reference"`
	Description     string            `gorm:"size:512" json:"description"`
	RecipientUserID *uint64           `gorm:"index" json:"recipientUserId,omitempty"`
	ActorUserID     uint64            `gorm:"not null" json:"actorUserId"`
	CreatedAt       time.Time         `gorm:"autoCreateTime;index:idx_tx_wallet_created,priority:2" json:"createdAt"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Transaction) TableName() string { return "org_wallet_transaction" }
