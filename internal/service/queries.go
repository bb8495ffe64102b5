package service

import (
	"context"
	"fmt"

	"github.com/richardliu001/org-wallet/internal/eligibility"
	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/richardliu001/org-wallet/internal/repo"
	"github.com/shopspring/decimal"
)

var isNotFound = repo.IsNotFound

// WalletStats is aggregated from completed ledger rows.
type WalletStats struct {
	TotalFunded       decimal.Decimal `json:"totalFunded"`
	TotalDisbursed    decimal.Decimal `json:"totalDisbursed"`
	CurrentBalance    decimal.Decimal `json:"currentBalance"`
	TransactionCount  int64           `json:"transactionCount"`
	DisbursementCount int64           `json:"disbursementCount"`
	Currency          string          `json:"currency"`
}

// Stats summarizes a wallet's ledger.
func (s *WalletService) Stats(ctx context.Context, actorID, orgID uint64) (*WalletStats, error) {
	if err := s.authorize(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	w, err := s.getOrCreateWallet(ctx, orgID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.AggregateByType(ctx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("aggregate ledger: %w", err)
	}
	credit, debit := totals[model.Credit], totals[model.Debit]
	return &WalletStats{
		TotalFunded:       credit.Total,
		TotalDisbursed:    debit.Total,
		CurrentBalance:    w.Balance,
		TransactionCount:  credit.Count + debit.Count,
		DisbursementCount: debit.Count,
		Currency:          s.opts.Currency,
	}, nil
}

// TransactionPage is one page of ledger rows.
type TransactionPage struct {
	Items      []model.Transaction `json:"items"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int64               `json:"totalPages"`
}

// ListTransactions pages through the ledger. Without a wallet filter the
// listing spans every organization and is limited to platform admins.
func (s *WalletService) ListTransactions(ctx context.Context, actorID uint64, f repo.TxFilter) (*TransactionPage, error) {
	if f.WalletID == nil {
		if err := s.requirePlatformAdmin(ctx, actorID); err != nil {
			return nil, err
		}
	} else {
		w, err := s.repo.GetWalletByID(ctx, nil, *f.WalletID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrWalletNotFound
			}
			return nil, err
		}
		if err := s.authorize(ctx, actorID, w.OrgID); err != nil {
			return nil, err
		}
	}

	f.Normalize()
	items, total, err := s.repo.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Transaction{}
	}
	pages := total / int64(f.Limit)
	if total%int64(f.Limit) != 0 {
		pages++
	}
	return &TransactionPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit, TotalPages: pages}, nil
}

// EligibleMembers lists members who can receive a disbursement.
func (s *WalletService) EligibleMembers(ctx context.Context, actorID, orgID uint64, f eligibility.Filter) ([]eligibility.Member, error) {
	if err := s.authorize(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	members, err := s.members.List(ctx, orgID, f)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []eligibility.Member{}
	}
	return members, nil
}

// BrokenLink describes a ledger row that does not follow from its predecessor.
type BrokenLink struct {
	TransactionID uint64 `json:"transactionId"`
	Reference     string `json:"reference"`
	Reason        string `json:"reason"`
}

// LedgerAudit is the result of replaying a wallet's ledger.
type LedgerAudit struct {
	WalletID         uint64          `json:"walletId"`
	Consistent       bool            `json:"consistent"`
	TransactionCount int             `json:"transactionCount"`
	ComputedBalance  decimal.Decimal `json:"computedBalance"`
	StoredBalance    decimal.Decimal `json:"storedBalance"`
	BrokenLinks      []BrokenLink    `json:"brokenLinks"`
}

// VerifyLedger replays every completed row in commit order and checks that
// each row's arithmetic holds, each row starts where the previous ended, the
// running balance never goes negative, and the sum equals the stored balance.
func (s *WalletService) VerifyLedger(ctx context.Context, actorID, orgID uint64) (*LedgerAudit, error) {
	if err := s.authorize(ctx, actorID, orgID); err != nil {
		return nil, err
	}
	w, err := s.repo.GetWalletByOrg(ctx, nil, orgID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	entries, err := s.repo.LedgerEntries(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return audit(w, entries), nil
}

func audit(w *model.Wallet, entries []model.Transaction) *LedgerAudit {
	a := &LedgerAudit{WalletID: w.ID, StoredBalance: w.Balance, ComputedBalance: decimal.Zero, BrokenLinks: []BrokenLink{}}
	var prev *model.Transaction
	for i := range entries {
		t := &entries[i]
		if t.Status != model.TxCompleted {
			continue
		}
		a.TransactionCount++
		broken := func(reason string) {
			a.BrokenLinks = append(a.BrokenLinks, BrokenLink{TransactionID: t.ID, Reference: t.Reference, Reason: reason})
		}

		want := t.BalanceBefore.Add(t.Amount)
		if t.Type == model.Debit {
			want = t.BalanceBefore.Sub(t.Amount)
			a.ComputedBalance = a.ComputedBalance.Sub(t.Amount)
		} else {
			a.ComputedBalance = a.ComputedBalance.Add(t.Amount)
		}
		if !t.BalanceAfter.Equal(want) {
			broken(fmt.Sprintf("balanceAfter %s != %s", t.BalanceAfter, want))
		}
		if !t.Amount.IsPositive() {
			broken("non-positive amount")
		}
		if prev != nil && !t.BalanceBefore.Equal(prev.BalanceAfter) {
			broken(fmt.Sprintf("balanceBefore %s != previous balanceAfter %s", t.BalanceBefore, prev.BalanceAfter))
		}
		if prev == nil && !t.BalanceBefore.IsZero() {
			broken(fmt.Sprintf("first balanceBefore %s != 0", t.BalanceBefore))
		}
		if a.ComputedBalance.IsNegative() {
			broken("running balance negative")
		}
		prev = t
	}
	if prev != nil && !prev.BalanceAfter.Equal(w.Balance) {
		a.BrokenLinks = append(a.BrokenLinks, BrokenLink{TransactionID: prev.ID, Reference: prev.Reference,
			Reason: fmt.Sprintf("stored balance %s != last balanceAfter %s", w.Balance, prev.BalanceAfter)})
	}
	a.Consistent = len(a.BrokenLinks) == 0 && a.ComputedBalance.Equal(w.Balance)
	return a
}
