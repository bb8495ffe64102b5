package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TxFilter narrows a ledger listing. Nil fields are not applied.
type TxFilter struct {
	WalletID *uint64
	Type     *model.TransactionType
	Status   *model.TransactionStatus
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// Normalize clamps paging to sane bounds. Pages are 1-based.
func (f *TxFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
}

// TypeTotal is the sum and count of completed rows of one type.
type TypeTotal struct {
	Type  model.TransactionType
	Total decimal.Decimal
	Count int64
}

// CreateTransaction inserts record. A reused reference is rejected by the unique index.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateReference, t.Reference)
		}
		return err
	}
	return nil
}

// ListTransactions returns one page, newest first, plus the unpaged total.
func (r *Repository) ListTransactions(ctx context.Context, f TxFilter) ([]model.Transaction, int64, error) {
	f.Normalize()
	q := r.db.WithContext(ctx).Model(&model.Transaction{})
	if f.WalletID != nil {
		q = q.Where("wallet_id = ?", *f.WalletID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []model.Transaction
	err := q.Order("created_at desc").Order("id desc").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&txs).Error
	return txs, total, err
}

// LedgerEntries returns every row of a wallet in commit order.
func (r *Repository) LedgerEntries(ctx context.Context, walletID uint64) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("id asc").
		Find(&txs).Error
	return txs, err
}

// AggregateByType sums completed rows per type.
func (r *Repository) AggregateByType(ctx context.Context, walletID uint64) (map[model.TransactionType]TypeTotal, error) {
	var rows []TypeTotal
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("wallet_id = ? AND status = ?", walletID, model.TxCompleted).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.TransactionType]TypeTotal, len(rows))
	for _, row := range rows {
		out[row.Type] = row
	}
	return out, nil
}
