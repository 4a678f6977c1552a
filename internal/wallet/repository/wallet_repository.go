// Package repository provides the gorm-backed data access layer for wallets,
// fee schedules and withdrawal limits.
package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// Paging bounds for wallet listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// filterColumns maps accepted list filters to their columns.
var filterColumns = map[string]string{
	"name": "name",
	"type": "type",
}

// WalletRepository implements the fee, limit and wallet lookups of the
// withdrawal flow.
type WalletRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB, logger *zap.Logger) *WalletRepository {
	return &WalletRepository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the tables used by the repository.
func (wr *WalletRepository) AutoMigrate() error {
	return wr.db.AutoMigrate(
		&models.Currency{},
		&models.Wallet{},
		&models.WalletBalance{},
		&models.FeeEntry{},
		&models.Limits{},
	)
}

// HealthCheck pings the underlying database.
func (wr *WalletRepository) HealthCheck(ctx context.Context) error {
	sqlDB, err := wr.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Fee operations

// FeeEntries returns the fee entries of a currency for an operation.
func (wr *WalletRepository) FeeEntries(ctx context.Context, currencyID string, op models.OperationKind) ([]models.FeeEntry, error) {
	var entries []models.FeeEntry
	err := wr.db.WithContext(ctx).
		Where("currency_id = ? AND operation = ?", currencyID, op).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load fee entries: %w", err)
	}
	return entries, nil
}

// CreateFeeEntry stores a fee entry, assigning an ID when missing.
func (wr *WalletRepository) CreateFeeEntry(ctx context.Context, entry *models.FeeEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return wr.db.WithContext(ctx).Create(entry).Error
}

// Limit operations

// Limits returns the limits of a wallet for an operation, or nil when none
// are configured.
func (wr *WalletRepository) Limits(ctx context.Context, walletID string, op models.OperationKind) (*models.Limits, error) {
	var limits models.Limits
	err := wr.db.WithContext(ctx).
		Where("wallet_id = ? AND operation = ?", walletID, op).
		First(&limits).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load limits: %w", err)
	}
	return &limits, nil
}

// SaveLimits creates or replaces the limits of a wallet for an operation.
func (wr *WalletRepository) SaveLimits(ctx context.Context, limits *models.Limits) error {
	return wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Limits
		err := tx.Where("wallet_id = ? AND operation = ?", limits.WalletID, limits.Operation).First(&existing).Error
		switch {
		case err == nil:
			limits.ID = existing.ID
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			if limits.ID == uuid.Nil {
				limits.ID = uuid.New()
			}
		default:
			return err
		}
		limits.UpdatedAt = time.Now()
		return tx.Save(limits).Error
	})
}

// Wallet operations

// CreateWallet stores a wallet with its balances and their currencies.
func (wr *WalletRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return wr.db.WithContext(ctx).Create(wallet).Error
}

// GetWallet loads a wallet with balances ordered by position.
func (wr *WalletRepository) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := wr.withBalances(wr.db.WithContext(ctx)).
		Where("id = ?", walletID).
		First(&wallet).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrNotFound.Explain("wallet %s not found", walletID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &wallet, nil
}

// ListWallets returns one page of wallets matching the query filters.
// Unknown filters are ignored.
func (wr *WalletRepository) ListWallets(ctx context.Context, query models.PageQuery) (*models.Page[models.Wallet], error) {
	query = query.Normalize(DefaultPageLimit, MaxPageLimit)

	base := wr.db.WithContext(ctx).Model(&models.Wallet{})
	for key, value := range query.Filters {
		column, ok := filterColumns[key]
		if !ok || value == "" {
			continue
		}
		base = base.Where(column+" = ?", value)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count wallets: %w", err)
	}

	wallets := make([]models.Wallet, 0, query.Limit)
	err := wr.withBalances(base.Session(&gorm.Session{})).
		Order("name ASC").
		Limit(query.Limit).
		Offset(query.Offset()).
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wr.logger.Debug("Listed wallets",
		zap.Int("page", query.Page),
		zap.Int("count", len(wallets)),
		zap.Int64("total", total),
	)
	return &models.Page[models.Wallet]{Data: wallets, Page: query.Page, Total: total}, nil
}

func (wr *WalletRepository) withBalances(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Balances", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Balances.Currency")
}
