package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Aidin1998/finalex-console/internal/wallet/repository"
	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

func setupTestRepo(t *testing.T) *repository.WalletRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	repo := repository.NewWalletRepository(db, zap.NewNop())
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func seedWallet(t *testing.T, repo *repository.WalletRepository, id, name string) *models.Wallet {
	eth := models.Currency{ID: "eth", Code: "ETH", Network: "ethereum", Decimals: 18}
	usdt := models.Currency{ID: "usdt-erc20", Code: "USDT", Network: "ethereum", Decimals: 6, SmartContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7"}
	wallet := &models.Wallet{
		ID:      id,
		Name:    name,
		Type:    "hot",
		Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Balances: []models.WalletBalance{
			{CurrencyID: usdt.ID, Currency: usdt, Balance: decimal.RequireFromString("250.5"), Position: 1},
			{CurrencyID: eth.ID, Currency: eth, Balance: decimal.RequireFromString("3.25"), Position: 0},
		},
	}
	require.NoError(t, repo.CreateWallet(context.Background(), wallet))
	return wallet
}

func TestGetWalletOrdersBalances(t *testing.T) {
	repo := setupTestRepo(t)
	seedWallet(t, repo, "w-1", "treasury")

	wallet, err := repo.GetWallet(context.Background(), "w-1")
	require.NoError(t, err)
	require.Len(t, wallet.Balances, 2)
	assert.Equal(t, "eth", wallet.Balances[0].CurrencyID)
	assert.Equal(t, "ETH", wallet.Balances[0].Currency.Code)
	assert.Equal(t, "3.25", wallet.Balances[0].Balance.String())
	assert.Equal(t, "0xdAC17F958D2ee523a2206206994597C13D831ec7", wallet.Balances[1].Currency.SmartContractAddress)

	_, err = repo.GetWallet(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFeeEntries(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateFeeEntry(ctx, &models.FeeEntry{CurrencyID: "eth", Operation: models.OperationWithdrawal, Type: models.FeeTypeFixed, Value: decimal.RequireFromString("0.001")}))
	require.NoError(t, repo.CreateFeeEntry(ctx, &models.FeeEntry{CurrencyID: "eth", Operation: models.OperationWithdrawal, Type: models.FeeTypePercent, Value: decimal.RequireFromString("0.5")}))
	require.NoError(t, repo.CreateFeeEntry(ctx, &models.FeeEntry{CurrencyID: "eth", Operation: models.OperationDeposit, Type: models.FeeTypeFixed, Value: decimal.RequireFromString("9")}))

	entries, err := repo.FeeEntries(ctx, "eth", models.OperationWithdrawal)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = repo.FeeEntries(ctx, "btc", models.OperationWithdrawal)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLimits(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	limits, err := repo.Limits(ctx, "w-1", models.OperationWithdrawal)
	require.NoError(t, err)
	assert.Nil(t, limits)

	require.NoError(t, repo.SaveLimits(ctx, &models.Limits{
		WalletID:            "w-1",
		Operation:           models.OperationWithdrawal,
		MinimumPerOperation: decimal.NewFromInt(10),
		MaximumPerOperation: models.Unlimited,
	}))
	require.NoError(t, repo.SaveLimits(ctx, &models.Limits{
		WalletID:            "w-1",
		Operation:           models.OperationWithdrawal,
		MinimumPerOperation: decimal.NewFromInt(5),
		MaximumPerOperation: decimal.NewFromInt(1000),
	}))

	limits, err = repo.Limits(ctx, "w-1", models.OperationWithdrawal)
	require.NoError(t, err)
	require.NotNil(t, limits)
	assert.Equal(t, "5", limits.MinimumPerOperation.String())
	assert.Equal(t, "1000", limits.MaximumPerOperation.String())
}

func TestListWallets(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seedWalletNoBalances(t, repo, fmt.Sprintf("w-%d", i), fmt.Sprintf("wallet-%d", i))
	}
	seedWallet(t, repo, "w-main", "main")

	page, err := repo.ListWallets(ctx, models.PageQuery{Page: 2, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Data, 2)

	page, err = repo.ListWallets(ctx, models.PageQuery{Filters: map[string]string{"name": "main", "bogus": "x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Data, 1)
	assert.Len(t, page.Data[0].Balances, 2)
}

func seedWalletNoBalances(t *testing.T, repo *repository.WalletRepository, id, name string) {
	require.NoError(t, repo.CreateWallet(context.Background(), &models.Wallet{ID: id, Name: name, Type: "cold"}))
}

func TestHealthCheck(t *testing.T) {
	repo := setupTestRepo(t)
	assert.NoError(t, repo.HealthCheck(context.Background()))
}
