package api

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/internal/withdrawal"
	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

type noFees struct{}

func (noFees) FeeEntries(ctx context.Context, currencyID string, op models.OperationKind) ([]models.FeeEntry, error) {
	return nil, nil
}

type noLimits struct{}

func (noLimits) Limits(ctx context.Context, walletID string, op models.OperationKind) (*models.Limits, error) {
	return nil, nil
}

type rejectAll struct{}

func (rejectAll) SubmitWithdrawal(ctx context.Context, req models.WithdrawalSubmission) (*models.WithdrawalReceipt, error) {
	return nil, errors.ErrRejected.Explain("disabled")
}

type anyAddress struct{}

func (anyAddress) ValidateAddress(network, address string) error { return nil }

func newTestStore(ttl time.Duration) *SessionStore {
	factory := func() (*withdrawal.Wizard, error) {
		return withdrawal.NewWizard(withdrawal.Dependencies{
			Fees:      noFees{},
			Limits:    noLimits{},
			Gateway:   rejectAll{},
			Addresses: anyAddress{},
		}, withdrawal.DefaultOptions(), zap.NewNop())
	}
	return NewSessionStore(factory, ttl, zap.NewNop())
}

func openWallet() *models.Wallet {
	return &models.Wallet{
		ID:      "w-1",
		Address: "addr",
		Balances: []models.WalletBalance{{
			CurrencyID: "btc",
			Currency:   models.Currency{ID: "btc", Code: "BTC", Network: "bitcoin", Decimals: 8},
			Balance:    decimal.NewFromInt(1),
		}},
	}
}

func TestSessionStoreSweepClosesIdleSessions(t *testing.T) {
	store := newTestStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	idle, idleWizard, err := store.Create()
	require.NoError(t, err)
	require.NoError(t, idleWizard.Open(context.Background(), openWallet()))
	active, _, err := store.Create()
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	_, err = store.Get(active)
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, withdrawal.StepClosed, idleWizard.Step())

	_, err = store.Get(idle)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = store.Get(active)
	assert.NoError(t, err)
}

func TestSessionStoreZeroTTLNeverExpires(t *testing.T) {
	store := newTestStore(0)
	_, _, err := store.Create()
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestSessionStoreRemove(t *testing.T) {
	store := newTestStore(time.Minute)
	id, w, err := store.Create()
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background(), openWallet()))

	assert.True(t, store.Remove(id))
	assert.Equal(t, withdrawal.StepClosed, w.Step())
	assert.False(t, store.Remove(id))
}

func TestSessionStoreRunClosesEverythingOnShutdown(t *testing.T) {
	store := newTestStore(time.Minute)
	_, w, err := store.Create()
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background(), openWallet()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, withdrawal.StepClosed, w.Step())
}
