// Package blockchain estimates the native network fee of a withdrawal.
package blockchain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// GasEstimator estimates the native fee of a transfer on one network.
type GasEstimator interface {
	EstimateNativeGas(ctx context.Context, currency models.CurrencyRef, amount decimal.Decimal) (decimal.Decimal, error)
}

// Config represents gas estimation configuration
type Config struct {
	Networks           map[string]NetworkConfig `mapstructure:"networks" json:"networks"`
	GasPriceMultiplier float64                  `mapstructure:"gas_price_multiplier" json:"gas_price_multiplier"`
}

// NetworkConfig represents configuration for a specific blockchain network.
// Networks with an RPC endpoint are estimated live; the others use StaticFee.
type NetworkConfig struct {
	Name      string `mapstructure:"name" json:"name"`
	ChainID   int    `mapstructure:"chain_id" json:"chain_id"`
	RPC       string `mapstructure:"rpc" json:"rpc"`
	StaticFee string `mapstructure:"static_fee" json:"static_fee"`
}

// Manager routes estimates to the estimator registered for the currency's
// network. Unknown networks estimate to zero.
type Manager struct {
	logger     *zap.Logger
	mu         sync.RWMutex
	estimators map[string]GasEstimator
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:     logger,
		estimators: make(map[string]GasEstimator),
	}
}

// Register sets the estimator used for network.
func (m *Manager) Register(network string, estimator GasEstimator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimators[strings.ToLower(network)] = estimator
}

// EstimateNativeGas implements withdrawal.GasEstimator.
func (m *Manager) EstimateNativeGas(ctx context.Context, currency models.CurrencyRef, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.RLock()
	estimator, ok := m.estimators[strings.ToLower(currency.Network)]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("No gas estimator for network", zap.String("network", currency.Network))
		return decimal.Zero, nil
	}
	return estimator.EstimateNativeGas(ctx, currency, amount)
}

// StaticEstimator returns a configured flat fee.
type StaticEstimator struct {
	Fee decimal.Decimal
}

// NewStaticEstimator parses fee as a decimal amount of the native asset.
func NewStaticEstimator(fee string) (*StaticEstimator, error) {
	d, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("invalid static fee %q: %w", fee, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("static fee must not be negative: %s", fee)
	}
	return &StaticEstimator{Fee: d}, nil
}

// EstimateNativeGas implements GasEstimator.
func (s *StaticEstimator) EstimateNativeGas(ctx context.Context, currency models.CurrencyRef, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.Fee, nil
}
