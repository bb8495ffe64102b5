package repo

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepositoryInterface restricts Repo methods so the service can be tested against fakes.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	GetWalletByOrg(ctx context.Context, tx *gorm.DB, orgID uint64) (*model.Wallet, error)
	GetWalletByID(ctx context.Context, tx *gorm.DB, walletID uint64) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, tx *gorm.DB, orgID uint64) (*model.Wallet, error)
	EnsureWallet(ctx context.Context, tx *gorm.DB, orgID uint64) (*model.Wallet, error)
	UpdateWallet(ctx context.Context, tx *gorm.DB, walletID uint64, newBalance decimal.Decimal, oldVersion uint64) error
	UpdateWalletStatus(ctx context.Context, tx *gorm.DB, walletID uint64, status model.WalletStatus, oldVersion uint64) error

	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	ListTransactions(ctx context.Context, f TxFilter) ([]model.Transaction, int64, error)
	LedgerEntries(ctx context.Context, walletID uint64) ([]model.Transaction, error)
	AggregateByType(ctx context.Context, walletID uint64) (map[model.TransactionType]TypeTotal, error)

	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error

	CacheBalance(ctx context.Context, orgID, version uint64, bal decimal.Decimal) error
	GetCachedBalance(ctx context.Context, orgID uint64) (decimal.Decimal, error)
}

// Repository implements RepositoryInterface over gorm, with an optional Redis balance cache.
type Repository struct {
	db         *gorm.DB
	rdb        *redis.Client
	balanceTTL time.Duration
	log        *zap.SugaredLogger
}

// NewRepository constructs repo. rdb may be nil, which disables the balance cache.
func NewRepository(db *gorm.DB, rdb *redis.Client, balanceTTL time.Duration, logger *zap.SugaredLogger) *Repository {
	if balanceTTL <= 0 {
		balanceTTL = 5 * time.Minute
	}
	return &Repository{db: db, rdb: rdb, balanceTTL: balanceTTL, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// Transaction runs fn as one unit of work.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// AutoMigrate creates the ledger tables.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(model.LedgerModels()...)
}

// GetWalletByOrg reads without locking. tx may be nil.
func (r *Repository) GetWalletByOrg(ctx context.Context, tx *gorm.DB, orgID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.conn(tx).WithContext(ctx).Where("org_id = ?", orgID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetWalletByID(ctx context.Context, tx *gorm.DB, walletID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.conn(tx).WithContext(ctx).Where("id = ?", walletID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWalletForUpdate locks the organization's wallet row.
func (r *Repository) GetWalletForUpdate(ctx context.Context, tx *gorm.DB, orgID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ?", orgID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// EnsureWallet inserts a zero-balance ACTIVE wallet unless one exists, then returns it locked.
// Concurrent first accesses race on the org_id unique index and the loser's insert is a no-op.
func (r *Repository) EnsureWallet(ctx context.Context, tx *gorm.DB, orgID uint64) (*model.Wallet, error) {
	w := &model.Wallet{
		OrgID:         orgID,
		Balance:       decimal.Zero,
		LedgerBalance: decimal.Zero,
		Status:        model.WalletActive,
	}
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "org_id"}}, DoNothing: true}).
		Create(w).Error; err != nil {
		return nil, err
	}
	return r.GetWalletForUpdate(ctx, tx, orgID)
}

// UpdateWallet with optimistic lock. balance and ledger_balance move together.
func (r *Repository) UpdateWallet(ctx context.Context, tx *gorm.DB, walletID uint64, newBalance decimal.Decimal, oldVersion uint64) error {
	if newBalance.IsNegative() {
		return ErrNegativeBalance
	}
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ?", walletID, oldVersion).
		Updates(map[string]interface{}{
			"balance":        newBalance,
			"ledger_balance": newBalance,
			"version":        oldVersion + 1,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// UpdateWalletStatus with optimistic lock.
func (r *Repository) UpdateWalletStatus(ctx context.Context, tx *gorm.DB, walletID uint64, status model.WalletStatus, oldVersion uint64) error {
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ?", walletID, oldVersion).
		Updates(map[string]interface{}{
			"status":     status,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// IsNotFound reports a missing row.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
