package withdrawal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/metrics"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// scheduleGasLocked (re)arms the trailing-edge debounce for a native gas
// estimate of the current amount. Every call issues a new sequence number,
// so the result of any earlier request is discarded when it arrives.
func (w *Wizard) scheduleGasLocked() {
	w.cancelGasLocked()
	if w.deps.Gas == nil || w.life == nil || !w.currency.IsNative() {
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(w.amountInput))
	if err != nil || !amount.IsPositive() {
		return
	}

	seq, ref, life := w.gasSeq, w.currency, w.life
	w.gasPending = true
	w.gasTimer = time.AfterFunc(w.opts.GasDebounce, func() {
		w.estimateGas(life, seq, ref, amount)
	})
}

// cancelGasLocked stops a pending timer and invalidates in-flight requests.
func (w *Wizard) cancelGasLocked() {
	w.gasSeq++
	if w.gasTimer != nil {
		w.gasTimer.Stop()
		w.gasTimer = nil
	}
	w.gasPending = false
}

func (w *Wizard) estimateGas(ctx context.Context, seq uint64, ref models.CurrencyRef, amount decimal.Decimal) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	gas, err := w.deps.Gas.EstimateNativeGas(ctx, ref, amount)
	metrics.GasEstimateLatency.WithLabelValues(ref.Network).Observe(time.Since(start).Seconds())

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.gasSeq || ref.ID != w.currency.ID || w.step != StepInformation {
		metrics.GasEstimatesDiscarded.Inc()
		w.logger.Debug("Discarding stale gas estimate",
			zap.String("currency_id", ref.ID),
			zap.String("amount", amount.String()),
		)
		return
	}
	w.gasPending = false
	w.gasTimer = nil
	if err != nil {
		w.logger.Warn("Failed to estimate native gas",
			zap.String("currency_id", ref.ID),
			zap.String("network", ref.Network),
			zap.Error(err),
		)
		w.nativeGas = decimal.Zero
		w.gasKnown = false
		return
	}
	w.storeGasLocked(amount, gas, true)
}

// needsGasLocked reports whether value must be estimated before it can be
// drafted: the currency pays native gas and no settled estimate covers value.
func (w *Wizard) needsGasLocked(value decimal.Decimal) bool {
	if w.deps.Gas == nil || !w.currency.IsNative() {
		return false
	}
	return w.gasPending || !w.gasKnown || !w.gasAmount.Equal(value)
}

func (w *Wizard) storeGasLocked(amount, gas decimal.Decimal, known bool) {
	w.nativeGas = gas
	w.gasAmount = amount
	w.gasKnown = known
}

// estimateNow estimates gas for amount on the caller's goroutine. It is
// bounded by the resolve timeout and abandoned when the wizard closes. A
// failed estimate counts as zero gas.
func (w *Wizard) estimateNow(ctx, life context.Context, ref models.CurrencyRef, amount decimal.Decimal) (decimal.Decimal, bool) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.ResolveTimeout)
	defer cancel()
	if life != nil {
		stop := context.AfterFunc(life, cancel)
		defer stop()
	}

	start := time.Now()
	gas, err := w.deps.Gas.EstimateNativeGas(ctx, ref, amount)
	metrics.GasEstimateLatency.WithLabelValues(ref.Network).Observe(time.Since(start).Seconds())
	if err != nil {
		w.logger.Warn("Failed to estimate native gas",
			zap.String("currency_id", ref.ID),
			zap.String("network", ref.Network),
			zap.Error(err),
		)
		return decimal.Zero, false
	}
	return gas, true
}
