package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/org-wallet/internal/access"
	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/richardliu001/org-wallet/internal/reference"
	"github.com/richardliu001/org-wallet/internal/repo"
	"github.com/richardliu001/org-wallet/internal/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowCacheRepo parks the first cache write for a given balance until released.
type slowCacheRepo struct {
	*repo.Repository
	hold    decimal.Decimal
	parked  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowCacheRepo) CacheBalance(ctx context.Context, orgID, version uint64, bal decimal.Decimal) error {
	if bal.Equal(s.hold) {
		first := false
		s.once.Do(func() { first = true })
		if first {
			close(s.parked)
			<-s.release
		}
	}
	return s.Repository.CacheBalance(ctx, orgID, version, bal)
}

func TestGetBalance_LateCacheWriteDoesNotServeStaleBalance(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	slow := &slowCacheRepo{hold: dec("20"), parked: make(chan struct{}), release: make(chan struct{})}
	env := buildTestEnv(t, testdb.New(t), rdb, func(r *repo.Repository) repo.RepositoryInterface {
		slow.Repository = r
		return slow
	}, reference.New())
	env.fund(t, orgA, "100")

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.Disburse(env.ctx, DisburseInput{OrgID: orgA, RecipientUserID: memberX, Amount: dec("80"), ActorID: chairman})
		done <- err
	}()

	select {
	case <-slow.parked:
	case <-time.After(5 * time.Second):
		t.Fatal("disbursement never reached the cache write")
	}
	// the debit is committed; a later credit overtakes its cache write
	env.fund(t, orgA, "100")
	close(slow.release)
	require.NoError(t, <-done)

	bal, err := env.svc.GetBalance(env.ctx, chairman, orgA)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("120")), bal.String())
	assert.True(t, env.wallet(t, orgA).Balance.Equal(dec("120")))
}

func TestUnknownOrganization_NoWalletCreated(t *testing.T) {
	env := newTestEnv(t)
	const ghost uint64 = 999999

	_, err := env.svc.Fund(env.ctx, FundInput{OrgID: ghost, Amount: dec("100"), ActorID: root})
	assert.ErrorIs(t, err, access.ErrOrgNotFound)
	_, err = env.svc.GetOrgWallet(env.ctx, root, ghost)
	assert.ErrorIs(t, err, access.ErrOrgNotFound)
	_, err = env.svc.Stats(env.ctx, root, ghost)
	assert.ErrorIs(t, err, access.ErrOrgNotFound)
	_, err = env.svc.GetBalance(env.ctx, root, ghost)
	assert.ErrorIs(t, err, access.ErrOrgNotFound)

	var count int64
	require.NoError(t, env.db.Model(&model.Wallet{}).Count(&count).Error)
	assert.Zero(t, count)

	// a registered organization without a wallet still gets one lazily
	w, err := env.svc.GetOrgWallet(env.ctx, root, orgB)
	require.NoError(t, err)
	assert.Equal(t, orgB, w.OrgID)
}

func TestAmountPrecisionAndRange(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, orgA, "100")

	cases := []struct {
		amount   string
		fundOK   bool
		payoutOK bool
	}{
		{"0.00000001", true, false},
		{"0.000000004", false, false},
		{"1.000000005", false, false},
		{"1.12345678", true, true},
		{"2.50", true, true},
		{"0", false, false},
		{"-1", false, false},
		{"999999999999.99999999", true, true},
		{"1000000000000", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			amt := dec(tc.amount)
			assert.Equal(t, tc.fundOK, validAmount(amt))
			assert.Equal(t, tc.payoutOK, validDisbursement(amt))
		})
	}

	_, err := env.svc.Fund(env.ctx, FundInput{OrgID: orgA, Amount: dec("0.000000004"), ActorID: chairman})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.svc.Disburse(env.ctx, DisburseInput{OrgID: orgA, RecipientUserID: memberX, Amount: dec("1.000000005"), ActorID: chairman})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = env.svc.BulkDisburse(env.ctx, BulkDisburseInput{OrgID: orgA, Recipients: recipients("1.000000005", memberX), ActorID: chairman})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// the wallet itself may not grow past the column range
	_, err = env.svc.Fund(env.ctx, FundInput{OrgID: orgA, Amount: dec("999999999950"), ActorID: chairman})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Len(t, env.ledger(t, orgA), 1)
	assert.True(t, env.wallet(t, orgA).Balance.Equal(dec("100")))
}

func TestCurrencyLabelsEventsAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, orgA, "10")

	evts, err := env.repo.PollOutbox(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Contains(t, evts[0].Payload, `"currency":"NGN"`)

	stats, err := env.svc.Stats(env.ctx, chairman, orgA)
	require.NoError(t, err)
	assert.Equal(t, "NGN", stats.Currency)
}
