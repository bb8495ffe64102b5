package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/org-wallet/internal/eligibility"
	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/richardliu001/org-wallet/internal/reference"
	"github.com/richardliu001/org-wallet/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Amounts are stored as numeric(20,8): at most 12 integer and 8 fractional digits.
const amountScale = 8

var (
	minDisbursement = decimal.NewFromInt(1)
	maxAmount       = decimal.New(1, 12)
)

func validAmount(amt decimal.Decimal) bool {
	return amt.IsPositive() && amt.Equal(amt.Truncate(amountScale)) && amt.LessThan(maxAmount)
}

func validDisbursement(amt decimal.Decimal) bool {
	return validAmount(amt) && amt.GreaterThanOrEqual(minDisbursement)
}

// Authorizer decides who may act on a wallet.
type Authorizer interface {
	CanManageWallet(ctx context.Context, userID, orgID uint64) (bool, error)
	IsPlatformAdmin(ctx context.Context, userID uint64) (bool, error)
	RequireOrg(ctx context.Context, orgID uint64) error
}

// MemberResolver answers eligibility questions.
type MemberResolver interface {
	IsEligible(ctx context.Context, orgID, userID uint64) (bool, error)
	List(ctx context.Context, orgID uint64, f eligibility.Filter) ([]eligibility.Member, error)
}

// Options tunes bulk disbursement and labels emitted events.
type Options struct {
	BulkItemTimeout   time.Duration
	MaxBulkRecipients int
	Currency          string
}

// WalletService glues business logic and repository. It holds no mutable
// state; every balance change happens inside one repository unit of work.
type WalletService struct {
	repo    repo.RepositoryInterface
	access  Authorizer
	members MemberResolver
	refs    reference.Generator
	opts    Options
	log     *zap.SugaredLogger
}

// NewWalletService returns WalletService.
func NewWalletService(r repo.RepositoryInterface, access Authorizer, members MemberResolver, refs reference.Generator, opts Options, logger *zap.SugaredLogger) *WalletService {
	if opts.BulkItemTimeout <= 0 {
		opts.BulkItemTimeout = 10 * time.Second
	}
	if opts.MaxBulkRecipients <= 0 {
		opts.MaxBulkRecipients = 500
	}
	if opts.Currency == "" {
		opts.Currency = "NGN"
	}
	return &WalletService{repo: r, access: access, members: members, refs: refs, opts: opts, log: logger}
}

// FundInput credits an organization wallet.
type FundInput struct {
	OrgID       uint64
	Amount      decimal.Decimal
	Description string
	ActorID     uint64
}

// DisburseInput debits an organization wallet in favour of one member.
type DisburseInput struct {
	OrgID           uint64
	RecipientUserID uint64
	Amount          decimal.Decimal
	Description     string
	ActorID         uint64
}

// DisbursementResult is returned for a committed disbursement.
type DisbursementResult struct {
	Success     bool               `json:"success"`
	Transaction *model.Transaction `json:"transaction"`
}

// StatusInput changes a wallet's lifecycle state.
type StatusInput struct {
	OrgID   uint64
	Status  model.WalletStatus
	Reason  string
	ActorID uint64
}

func (s *WalletService) authorize(ctx context.Context, actorID, orgID uint64) error {
	ok, err := s.access.CanManageWallet(ctx, actorID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *WalletService) requirePlatformAdmin(ctx context.Context, actorID uint64) error {
	ok, err := s.access.IsPlatformAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// runUnit executes fn as one unit of work. A conflict (optimistic lock,
// serialization failure, deadlock, duplicate reference) is retried once;
// fn must therefore derive everything, including the reference, afresh.
func (s *WalletService) runUnit(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := s.repo.Transaction(ctx, fn)
	if !repo.IsConflict(err) {
		return err
	}
	s.log.Warnw("unit of work conflict, retrying once", "op", op, "err", err)
	err = s.repo.Transaction(ctx, fn)
	if repo.IsConflict(err) {
		return fmt.Errorf("%w: %s: %v", ErrConcurrentUpdate, op, err)
	}
	return err
}

// GetOrgWallet returns the organization's wallet, creating it on first access.
func (s *WalletService) GetOrgWallet(ctx context.Context, actorID, orgID uint64) (*model.Wallet, error) {
	if err := s.authorize(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	return s.getOrCreateWallet(ctx, orgID)
}

func (s *WalletService) getOrCreateWallet(ctx context.Context, orgID uint64) (*model.Wallet, error) {
	w, err := s.repo.GetWalletByOrg(ctx, nil, orgID)
	if err == nil {
		return w, nil
	}
	if !repo.IsNotFound(err) {
		return nil, err
	}
	if err := s.access.RequireOrg(ctx, orgID); err != nil {
		return nil, err
	}
	err = s.runUnit(ctx, "create wallet", func(tx *gorm.DB) error {
		var err error
		w, err = s.repo.EnsureWallet(ctx, tx, orgID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("wallet created", "orgID", orgID, "walletID", w.ID)
	return w, nil
}

// GetBalance serves the cached balance when present and falls back to the store.
func (s *WalletService) GetBalance(ctx context.Context, actorID, orgID uint64) (decimal.Decimal, error) {
	if err := s.authorize(ctx, actorID, orgID); err != nil {
		return decimal.Zero, err
	}
	bal, err := s.repo.GetCachedBalance(ctx, orgID)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warnw("balance cache read failed", "orgID", orgID, "err", err)
	}
	w, err := s.getOrCreateWallet(ctx, orgID)
	if err != nil {
		return decimal.Zero, err
	}
	s.cacheBalance(ctx, orgID, w.Version, w.Balance)
	return w.Balance, nil
}

func (s *WalletService) cacheBalance(ctx context.Context, orgID, version uint64, bal decimal.Decimal) {
	if err := s.repo.CacheBalance(ctx, orgID, version, bal); err != nil {
		s.log.Warnw("balance cache write failed", "orgID", orgID, "err", err)
	}
}

// Fund credits the wallet, creating it if absent.
func (s *WalletService) Fund(ctx context.Context, in FundInput) (*model.Transaction, error) {
	if !validAmount(in.Amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, in.Amount)
	}
	if err := s.authorize(ctx, in.ActorID, in.OrgID); err != nil {
		return nil, err
	}
	if err := s.access.RequireOrg(ctx, in.OrgID); err != nil {
		return nil, err
	}

	var created *model.Transaction
	var version uint64
	err := s.runUnit(ctx, "fund", func(tx *gorm.DB) error {
		w, err := s.repo.EnsureWallet(ctx, tx, in.OrgID)
		if err != nil {
			return err
		}
		if w.Status != model.WalletActive {
			return fmt.Errorf("%w: status %s", ErrWalletInactive, w.Status)
		}
		after := w.Balance.Add(in.Amount)
		if !after.LessThan(maxAmount) {
			return fmt.Errorf("%w: balance would reach %s", ErrInvalidAmount, after)
		}
		t := &model.Transaction{
			WalletID:      w.ID,
			Type:          model.Credit,
			Amount:        in.Amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  after,
			Status:        model.TxCompleted,
			Reference:     s.refs.Next(reference.PrefixFunding),
			Description:   describe(in.Description, "Wallet funding"),
			ActorUserID:   in.ActorID,
		}
		if err := s.repo.CreateTransaction(ctx, tx, t); err != nil {
			return err
		}
		if err := s.repo.UpdateWallet(ctx, tx, w.ID, after, w.Version); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, w, model.EventWalletFunded, t); err != nil {
			return err
		}
		created, version = t, w.Version+1
		return nil
	})
	if err != nil {
		if isStateError(err) {
			s.log.Warnw("fund rejected", "orgID", in.OrgID, "amount", in.Amount, "err", err)
		}
		return nil, err
	}

	s.cacheBalance(ctx, in.OrgID, version, created.BalanceAfter)
	s.log.Infow("wallet funded", "orgID", in.OrgID, "reference", created.Reference,
		"amount", created.Amount, "balance", created.BalanceAfter, "actorID", in.ActorID)
	return created, nil
}

// Disburse debits the wallet for one eligible member.
func (s *WalletService) Disburse(ctx context.Context, in DisburseInput) (*DisbursementResult, error) {
	if !validDisbursement(in.Amount) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, in.Amount)
	}
	if err := s.authorize(ctx, in.ActorID, in.OrgID); err != nil {
		return nil, err
	}
	t, err := s.disburse(ctx, in)
	if err != nil {
		return nil, err
	}
	return &DisbursementResult{Success: true, Transaction: t}, nil
}

// disburse assumes the caller is authorized and the amount validated.
func (s *WalletService) disburse(ctx context.Context, in DisburseInput) (*model.Transaction, error) {
	ok, err := s.members.IsEligible(ctx, in.OrgID, in.RecipientUserID)
	if err != nil {
		return nil, fmt.Errorf("eligibility lookup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %d", ErrRecipientNotEligible, in.RecipientUserID)
	}

	recipient := in.RecipientUserID
	var created *model.Transaction
	var version uint64
	err = s.runUnit(ctx, "disburse", func(tx *gorm.DB) error {
		// the balance is re-read under lock; anything read earlier may be stale
		w, err := s.repo.GetWalletForUpdate(ctx, tx, in.OrgID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrWalletNotFound
			}
			return err
		}
		if w.Status != model.WalletActive {
			return fmt.Errorf("%w: status %s", ErrWalletInactive, w.Status)
		}
		if w.Balance.LessThan(in.Amount) {
			return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, w.Balance, in.Amount)
		}
		after := w.Balance.Sub(in.Amount)
		t := &model.Transaction{
			WalletID:        w.ID,
			Type:            model.Debit,
			Amount:          in.Amount,
			BalanceBefore:   w.Balance,
			BalanceAfter:    after,
			Status:          model.TxCompleted,
			Reference:       s.refs.Next(reference.PrefixDisbursement),
			Description:     describe(in.Description, "Member disbursement"),
			RecipientUserID: &recipient,
			ActorUserID:     in.ActorID,
		}
		if err := s.repo.CreateTransaction(ctx, tx, t); err != nil {
			return err
		}
		if err := s.repo.UpdateWallet(ctx, tx, w.ID, after, w.Version); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, w, model.EventFundsDisbursed, t); err != nil {
			return err
		}
		created, version = t, w.Version+1
		return nil
	})
	if err != nil {
		if isStateError(err) {
			s.log.Warnw("disbursement rejected", "orgID", in.OrgID, "recipientID", in.RecipientUserID,
				"amount", in.Amount, "err", err)
		}
		return nil, err
	}

	s.cacheBalance(ctx, in.OrgID, version, created.BalanceAfter)
	s.log.Infow("funds disbursed", "orgID", in.OrgID, "reference", created.Reference,
		"recipientID", in.RecipientUserID, "amount", created.Amount, "balance", created.BalanceAfter,
		"actorID", in.ActorID)
	return created, nil
}

var transitions = map[model.WalletStatus][]model.WalletStatus{
	model.WalletActive: {model.WalletFrozen, model.WalletClosed},
	model.WalletFrozen: {model.WalletActive, model.WalletClosed},
}

func canTransition(from, to model.WalletStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SetStatus freezes, reactivates or closes a wallet. Platform admins only.
func (s *WalletService) SetStatus(ctx context.Context, in StatusInput) (*model.Wallet, error) {
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if err := s.requirePlatformAdmin(ctx, in.ActorID); err != nil {
		return nil, err
	}

	var updated *model.Wallet
	err := s.runUnit(ctx, "set status", func(tx *gorm.DB) error {
		w, err := s.repo.GetWalletForUpdate(ctx, tx, in.OrgID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrWalletNotFound
			}
			return err
		}
		if !canTransition(w.Status, in.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, w.Status, in.Status)
		}
		if err := s.repo.UpdateWalletStatus(ctx, tx, w.ID, in.Status, w.Version); err != nil {
			return err
		}
		evt, err := repo.NewWalletEvent(w.ID, model.EventWalletStatusChanged, map[string]interface{}{
			"walletId": w.ID,
			"orgId":    w.OrgID,
			"from":     w.Status,
			"to":       in.Status,
			"reason":   in.Reason,
			"actorId":  in.ActorID,
			"currency": s.opts.Currency,
		})
		if err != nil {
			return err
		}
		if err := s.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
			return err
		}
		w.Status = in.Status
		w.Version++
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("wallet status changed", "orgID", in.OrgID, "status", in.Status, "reason", in.Reason, "actorID", in.ActorID)
	return updated, nil
}

func (s *WalletService) emit(ctx context.Context, tx *gorm.DB, w *model.Wallet, eventType string, t *model.Transaction) error {
	evt, err := repo.NewWalletEvent(w.ID, eventType, map[string]interface{}{
		"walletId":        w.ID,
		"orgId":           w.OrgID,
		"reference":       t.Reference,
		"type":            t.Type,
		"amount":          t.Amount,
		"currency":        s.opts.Currency,
		"balanceBefore":   t.BalanceBefore,
		"balanceAfter":    t.BalanceAfter,
		"recipientUserId": t.RecipientUserID,
		"actorUserId":     t.ActorUserID,
	})
	if err != nil {
		return err
	}
	return s.repo.CreateOutboxEvent(ctx, tx, evt)
}

func describe(desc, fallback string) string {
	if desc == "" {
		return fallback
	}
	return desc
}

func isStateError(err error) bool {
	return errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrWalletInactive) ||
		errors.Is(err, ErrInsufficientBalance)
}
