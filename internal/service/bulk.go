package service

import (
	"context"
	"fmt"

	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/shopspring/decimal"
)

// BulkRecipient is one line of a bulk disbursement.
type BulkRecipient struct {
	RecipientUserID uint64
	Amount          decimal.Decimal
	Description     string
}

type BulkDisburseInput struct {
	OrgID      uint64
	Recipients []BulkRecipient
	ActorID    uint64
}

// Outcome is the per-recipient result: either Transaction is set (Success)
// or Error carries the reason the item was not paid.
type Outcome struct {
	RecipientUserID uint64             `json:"recipientUserId"`
	Amount          decimal.Decimal    `json:"amount"`
	Success         bool               `json:"success"`
	Transaction     *model.Transaction `json:"transaction,omitempty"`
	Error           string             `json:"error,omitempty"`

	err error
}

// Err returns the underlying failure for errors.Is checks.
func (o Outcome) Err() error { return o.err }

type BulkDisbursementResult struct {
	TotalRequested       int             `json:"totalRequested"`
	TotalRequestedAmount decimal.Decimal `json:"totalRequestedAmount"`
	Successful           int             `json:"successful"`
	Failed               int             `json:"failed"`
	TotalAmountDisbursed decimal.Decimal `json:"totalAmountDisbursed"`
	Results              []Outcome       `json:"results"`
}

// BulkDisburse pays each recipient as its own unit of work, in order. It is a
// best-effort batch: a failed item is recorded and does not undo earlier items.
func (s *WalletService) BulkDisburse(ctx context.Context, in BulkDisburseInput) (*BulkDisbursementResult, error) {
	if len(in.Recipients) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(in.Recipients) > s.opts.MaxBulkRecipients {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(in.Recipients), s.opts.MaxBulkRecipients)
	}
	total := decimal.Zero
	for i, r := range in.Recipients {
		if !validDisbursement(r.Amount) {
			return nil, fmt.Errorf("%w: recipient #%d", ErrInvalidAmount, i+1)
		}
		total = total.Add(r.Amount)
	}
	if err := s.authorize(ctx, in.ActorID, in.OrgID); err != nil {
		return nil, err
	}

	// fast pre-check only; each item re-checks under lock
	w, err := s.repo.GetWalletByOrg(ctx, nil, in.OrgID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if w.Status != model.WalletActive {
		return nil, fmt.Errorf("%w: status %s", ErrWalletInactive, w.Status)
	}
	if w.Balance.LessThan(total) {
		return nil, fmt.Errorf("%w: balance %s, batch total %s", ErrInsufficientBalance, w.Balance, total)
	}

	res := &BulkDisbursementResult{
		TotalRequested:       len(in.Recipients),
		TotalRequestedAmount: total,
		TotalAmountDisbursed: decimal.Zero,
		Results:              make([]Outcome, 0, len(in.Recipients)),
	}
	for _, r := range in.Recipients {
		out := Outcome{RecipientUserID: r.RecipientUserID, Amount: r.Amount}
		if err := ctx.Err(); err != nil {
			out.err = err
		} else {
			out.Transaction, out.err = s.disburseItem(ctx, in, r)
		}
		if out.err != nil {
			out.Error = out.err.Error()
			res.Failed++
		} else {
			out.Success = true
			res.Successful++
			res.TotalAmountDisbursed = res.TotalAmountDisbursed.Add(r.Amount)
		}
		res.Results = append(res.Results, out)
	}

	s.log.Infow("bulk disbursement finished", "orgID", in.OrgID, "requested", res.TotalRequested,
		"successful", res.Successful, "failed", res.Failed, "disbursed", res.TotalAmountDisbursed,
		"actorID", in.ActorID)
	return res, nil
}

func (s *WalletService) disburseItem(ctx context.Context, in BulkDisburseInput, r BulkRecipient) (*model.Transaction, error) {
	itemCtx, cancel := context.WithTimeout(ctx, s.opts.BulkItemTimeout)
	defer cancel()
	return s.disburse(itemCtx, DisburseInput{
		OrgID:           in.OrgID,
		RecipientUserID: r.RecipientUserID,
		Amount:          r.Amount,
		Description:     r.Description,
		ActorID:         in.ActorID,
	})
}
