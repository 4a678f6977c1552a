package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// weiDecimals is the precision of the native asset on EVM networks.
const weiDecimals = 18

// EVMClient is the subset of *ethclient.Client used for fee estimation.
type EVMClient interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// EVMEstimator prices a native transfer as gasLimit * gasPrice.
type EVMEstimator struct {
	client     EVMClient
	network    string
	multiplier decimal.Decimal
	logger     *zap.Logger
}

// NewEVMEstimator creates an estimator for one EVM network. multiplier
// scales the suggested gas price; values <= 0 mean 1.
func NewEVMEstimator(client EVMClient, network string, multiplier float64, logger *zap.Logger) *EVMEstimator {
	m := decimal.NewFromFloat(multiplier)
	if !m.IsPositive() {
		m = decimal.NewFromInt(1)
	}
	return &EVMEstimator{
		client:     client,
		network:    network,
		multiplier: m,
		logger:     logger,
	}
}

// EstimateNativeGas estimates the fee of sending amount from the funding
// wallet's own address. The destination is not known while the amount is
// being typed, so the transfer is simulated as a self-send.
func (e *EVMEstimator) EstimateNativeGas(ctx context.Context, currency models.CurrencyRef, amount decimal.Decimal) (decimal.Decimal, error) {
	if !common.IsHexAddress(currency.Address) {
		return decimal.Zero, fmt.Errorf("funding address %q is not an EVM address", currency.Address)
	}
	from := common.HexToAddress(currency.Address)
	msg := ethereum.CallMsg{
		From:  from,
		To:    &from,
		Value: amount.Shift(weiDecimals).BigInt(),
	}

	gasLimit, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("estimate gas on %s: %w", e.network, err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("suggest gas price on %s: %w", e.network, err)
	}

	fee := decimal.NewFromBigInt(gasPrice, 0).
		Mul(decimal.NewFromInt(int64(gasLimit))).
		Mul(e.multiplier).
		Shift(-weiDecimals)

	e.logger.Debug("Estimated native gas",
		zap.String("network", e.network),
		zap.Uint64("gas_limit", gasLimit),
		zap.String("gas_price_wei", gasPrice.String()),
		zap.String("fee", fee.String()),
	)
	return fee, nil
}
