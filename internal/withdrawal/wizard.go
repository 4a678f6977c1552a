package withdrawal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/logger"
	"github.com/Aidin1998/finalex-console/pkg/metrics"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// Step is the wizard's current screen.
type Step string

const (
	StepClosed      Step = "closed"
	StepInformation Step = "information"
	StepDetails     Step = "details"
	StepCode        Step = "code"
	StepSuccess     Step = "success"
)

// Event is an input that may move the wizard between steps.
type Event string

const (
	EventOpen        Event = "open"
	EventSubmit      Event = "submit"
	EventBack        Event = "back"
	EventConfirm     Event = "confirm"
	EventConfirmCode Event = "confirm_code"
	EventClose       Event = "close"
)

// ValidTransitions defines, per step, where each accepted event leads.
// Close is accepted from every step and always leads to StepClosed. A failed
// code confirmation leaves the wizard on StepCode.
var ValidTransitions = map[Step]map[Event]Step{
	StepClosed:      {EventOpen: StepInformation},
	StepInformation: {EventSubmit: StepDetails},
	StepDetails:     {EventBack: StepInformation, EventConfirm: StepCode},
	StepCode:        {EventBack: StepDetails, EventConfirmCode: StepSuccess},
	// Terminal step - only close is allowed
	StepSuccess: {},
}

// IsValidTransition returns the target step of event from step.
func IsValidTransition(from Step, event Event) (Step, bool) {
	if event == EventClose {
		return StepClosed, true
	}
	to, ok := ValidTransitions[from][event]
	return to, ok
}

// Dependencies are the collaborators of a wizard. Prices, Gas and Events
// are optional.
type Dependencies struct {
	Fees      FeeSource
	Limits    LimitSource
	Prices    PriceSource
	Gas       GasEstimator
	Gateway   Gateway
	Addresses AddressValidator
	Events    EventPublisher
}

// Options tune a wizard.
type Options struct {
	Operation      models.OperationKind
	GasDebounce    time.Duration
	ResolveTimeout time.Duration
}

// DefaultOptions returns the options used by the console.
func DefaultOptions() Options {
	return Options{
		Operation:      models.OperationWithdrawal,
		GasDebounce:    time.Second,
		ResolveTimeout: 10 * time.Second,
	}
}

// Wizard is the send-funds state machine for one dialog. It owns the draft
// exclusively; Close discards it together with every pending estimate.
type Wizard struct {
	deps      Dependencies
	opts      Options
	logger    *zap.Logger
	validator *Validator

	mu          sync.Mutex
	step        Step
	generation  uint64
	wallet      *models.Wallet
	draft       Draft
	currency    models.CurrencyRef
	fees        FeeSchedule
	limits      *models.Limits
	price       *models.CurrencyPrice
	nativeGas   decimal.Decimal
	gasAmount   decimal.Decimal
	gasKnown    bool
	amountInput string
	resolving   bool
	resolveSeq  uint64
	gasSeq      uint64
	gasTimer    *time.Timer
	gasPending  bool
	submitting  bool
	codeErr     *errors.Error
	receipt     *models.WithdrawalReceipt

	life   context.Context
	cancel context.CancelFunc
}

// NewWizard creates a closed wizard.
func NewWizard(deps Dependencies, opts Options, log *zap.Logger) (*Wizard, error) {
	switch {
	case deps.Fees == nil:
		return nil, fmt.Errorf("fee source is required")
	case deps.Limits == nil:
		return nil, fmt.Errorf("limit source is required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("gateway is required")
	case deps.Addresses == nil:
		return nil, fmt.Errorf("address validator is required")
	}
	defaults := DefaultOptions()
	if opts.Operation == "" {
		opts.Operation = defaults.Operation
	}
	if opts.GasDebounce <= 0 {
		opts.GasDebounce = defaults.GasDebounce
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = defaults.ResolveTimeout
	}
	return &Wizard{
		deps:      deps,
		opts:      opts,
		logger:    logger.OrNop(log),
		validator: NewValidator(deps.Addresses),
		step:      StepClosed,
	}, nil
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Open starts a withdrawal from wallet. The first balance entry becomes the
// selected currency and its fees, limits and price are resolved.
func (w *Wizard) Open(ctx context.Context, wallet *models.Wallet) error {
	w.mu.Lock()
	if _, ok := IsValidTransition(w.step, EventOpen); !ok {
		from := w.step
		w.mu.Unlock()
		return transitionError(from, EventOpen)
	}
	if wallet == nil || len(wallet.Balances) == 0 {
		w.mu.Unlock()
		return errors.ErrNotFound.Explain("funding wallet has no balances")
	}

	w.resetLocked()
	funding := *wallet
	w.wallet = &funding
	w.life, w.cancel = context.WithCancel(context.Background())
	w.step = StepInformation
	ref := funding.Ref(funding.Balances[0])
	seq := w.selectLocked(ref)
	w.mu.Unlock()

	metrics.OpenWizards.Inc()
	w.logger.Info("Withdrawal wizard opened",
		zap.String("wallet_id", funding.ID),
		zap.String("currency", ref.Code),
		zap.String("network", ref.Network),
	)

	w.resolve(ctx, seq, funding.ID, ref)
	return nil
}

// SelectCurrency switches the information step to another balance entry of
// the funding wallet and re-resolves fees, limits and price.
func (w *Wizard) SelectCurrency(ctx context.Context, currencyID string) error {
	w.mu.Lock()
	if w.step != StepInformation {
		from := w.step
		w.mu.Unlock()
		return errors.ErrInvalidTransition.Explain("currency can only be changed on the information step, current step is %s", from)
	}
	balance, ok := w.wallet.Balance(currencyID)
	if !ok {
		w.mu.Unlock()
		return errors.ErrNotFound.Explain("wallet holds no balance of currency %s", currencyID)
	}
	ref := w.wallet.Ref(balance)
	seq := w.selectLocked(ref)
	walletID := w.wallet.ID
	w.mu.Unlock()

	w.resolve(ctx, seq, walletID, ref)
	return nil
}

// selectLocked makes ref the current currency and clears data resolved for
// the previous one.
func (w *Wizard) selectLocked(ref models.CurrencyRef) uint64 {
	w.currency = ref
	w.fees = Aggregate(nil)
	w.limits = nil
	w.price = nil
	w.nativeGas = decimal.Zero
	w.gasKnown = false
	w.resolving = true
	w.resolveSeq++
	w.scheduleGasLocked()
	return w.resolveSeq
}

// resolve looks up fees, limits and price concurrently. Failed lookups leave
// their defaults in place; results for a superseded selection are dropped.
func (w *Wizard) resolve(ctx context.Context, seq uint64, walletID string, ref models.CurrencyRef) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.ResolveTimeout)
	defer cancel()

	var (
		wg        sync.WaitGroup
		entries   []models.FeeEntry
		limits    *models.Limits
		price     *models.CurrencyPrice
		feeErr    error
		limitErr  error
		priceErr  error
		operation = w.opts.Operation
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		entries, feeErr = w.deps.Fees.FeeEntries(ctx, ref.ID, operation)
	}()
	go func() {
		defer wg.Done()
		limits, limitErr = w.deps.Limits.Limits(ctx, walletID, operation)
	}()
	if w.deps.Prices != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			price, priceErr = w.deps.Prices.Price(ctx, ref.ID)
		}()
	}
	wg.Wait()

	if feeErr != nil {
		w.logger.Warn("Failed to resolve fee schedule", zap.String("currency_id", ref.ID), zap.Error(feeErr))
		entries = nil
	}
	if limitErr != nil {
		w.logger.Warn("Failed to resolve limits", zap.String("wallet_id", walletID), zap.Error(limitErr))
		limits = nil
	}
	if priceErr != nil {
		w.logger.Warn("Failed to resolve currency price", zap.String("currency_id", ref.ID), zap.Error(priceErr))
		price = nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.resolveSeq || w.step == StepClosed {
		w.logger.Debug("Discarding stale currency resolution", zap.String("currency_id", ref.ID))
		return
	}
	w.fees = Aggregate(entries)
	w.limits = limits
	w.price = price
	w.resolving = false
}

// EditAmount records the amount typed on the information step and schedules
// a debounced native gas estimate.
func (w *Wizard) EditAmount(amount string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepInformation {
		return errors.ErrInvalidTransition.Explain("amount can only be edited on the information step, current step is %s", w.step)
	}
	w.amountInput = amount
	w.scheduleGasLocked()
	return nil
}

// MaxAmount returns the amount offered by the "max" shortcut.
func (w *Wizard) MaxAmount() (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepInformation {
		return decimal.Zero, errors.ErrInvalidTransition.Explain("max amount is only available on the information step")
	}
	return MaxShortcut(w.currency, w.fees, w.limits, w.nativeGas), nil
}

// Submit validates the destination and amount and advances to the details
// step with the draft populated. For native currencies the network gas of
// the submitted amount is estimated first unless it is already known.
// Lookups still running for the information step are dropped.
func (w *Wizard) Submit(ctx context.Context, to, amount string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	value, err := w.validateLocked(to, amount)
	if err != nil {
		return Draft{}, err
	}

	if w.needsGasLocked(value) {
		w.cancelGasLocked()
		seq, gen, ref, life := w.gasSeq, w.generation, w.currency, w.life
		w.gasPending = true
		w.mu.Unlock()
		gas, known := w.estimateNow(ctx, life, ref, value)
		w.mu.Lock()
		if seq != w.gasSeq || gen != w.generation || w.step != StepInformation {
			metrics.GasEstimatesDiscarded.Inc()
			return Draft{}, errors.ErrInvalidTransition.Explain("withdrawal changed while estimating network gas")
		}
		w.gasPending = false
		w.storeGasLocked(value, gas, known)
		// fees or limits may have landed while unlocked
		if value, err = w.validateLocked(to, amount); err != nil {
			return Draft{}, err
		}
	}

	w.cancelGasLocked()
	w.resolveSeq++
	places := EffectiveDecimals(w.currency.Decimals)
	quote := NewQuote(value, w.fees, w.nativeGas, w.price, places)
	w.draft = Draft{
		To:        strings.TrimSpace(to),
		Amount:    value,
		NativeGas: quote.NativeGas,
		Currency:  w.currency,
		Fee:       quote.Fee,
		Decimals:  places,
	}
	if w.price != nil {
		p := *w.price
		w.draft.CurrencyPrice = &p
	}
	w.step = StepDetails
	return w.draft.clone(), nil
}

func (w *Wizard) validateLocked(to, amount string) (decimal.Decimal, error) {
	if _, ok := IsValidTransition(w.step, EventSubmit); !ok {
		return decimal.Zero, transitionError(w.step, EventSubmit)
	}
	w.amountInput = amount
	value, err := w.validator.Validate(Input{
		To:       to,
		Amount:   amount,
		Currency: w.currency,
		Fees:     w.fees,
		Limits:   w.limits,
	})
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(errors.KindOf(err)).Inc()
		w.logger.Debug("Withdrawal draft rejected",
			zap.String("wallet_id", w.wallet.ID),
			zap.String("currency", w.currency.Code),
			zap.Error(err),
		)
		return decimal.Zero, err
	}
	return value, nil
}

// Back returns to the previous step, keeping the draft. Returning to the
// information step restarts a lookup that Submit dropped.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	to, ok := IsValidTransition(w.step, EventBack)
	if !ok || w.submitting {
		return transitionError(w.step, EventBack)
	}
	if to == StepInformation {
		w.amountInput = w.draft.Amount.String()
		if w.resolving {
			w.resolveSeq++
			go w.resolve(w.life, w.resolveSeq, w.wallet.ID, w.currency)
		}
	}
	w.codeErr = nil
	w.step = to
	return nil
}

// Confirm accepts the details and moves to the code step.
func (w *Wizard) Confirm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	to, ok := IsValidTransition(w.step, EventConfirm)
	if !ok {
		return transitionError(w.step, EventConfirm)
	}
	w.codeErr = nil
	w.step = to
	return nil
}

// ConfirmCode submits the draft to the gateway with a one-time code. On
// success the wizard moves to StepSuccess; on failure it stays on StepCode
// and a fresh code is needed. Only one confirmation may be in flight.
func (w *Wizard) ConfirmCode(ctx context.Context, code string) (*models.WithdrawalReceipt, error) {
	w.mu.Lock()
	if w.step != StepCode {
		from := w.step
		w.mu.Unlock()
		return nil, transitionError(from, EventConfirmCode)
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, errors.ErrSubmissionInFlight.Explain("a confirmation is already in progress")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		w.codeErr = fieldError(errors.ErrRequired, FieldCode, "confirmation code is required")
		err := w.codeErr
		w.mu.Unlock()
		return nil, err
	}

	w.submitting = true
	w.codeErr = nil
	gen := w.generation
	draft := w.draft.clone()
	walletID := w.wallet.ID
	req := models.WithdrawalSubmission{
		Address:          draft.To,
		Amount:           draft.Amount,
		CurrencyID:       draft.Currency.ID,
		SecondFactorCode: code,
		Type:             w.opts.Operation,
		WalletID:         walletID,
	}
	w.mu.Unlock()

	w.logger.Info("Submitting withdrawal",
		zap.String("wallet_id", walletID),
		zap.String("currency", draft.Currency.Code),
		zap.String("amount", draft.Amount.String()),
		zap.String("to_address", draft.To),
	)
	receipt, err := w.deps.Gateway.SubmitWithdrawal(ctx, req)

	w.mu.Lock()
	current := gen == w.generation
	if current {
		w.submitting = false
	}
	if err != nil {
		ferr := submissionError(err)
		if current && w.step == StepCode {
			w.codeErr = ferr
		}
		w.mu.Unlock()
		metrics.WithdrawalSubmissions.WithLabelValues(ferr.Kind).Inc()
		if ferr.Kind == errors.KindSubmissionFailed {
			w.logger.Error("Withdrawal submission failed", zap.String("wallet_id", walletID), zap.Error(err))
		} else {
			w.logger.Warn("Withdrawal submission rejected", zap.String("wallet_id", walletID), zap.String("kind", ferr.Kind))
		}
		return nil, ferr
	}

	if receipt == nil {
		receipt = &models.WithdrawalReceipt{Status: "submitted", SubmittedAt: time.Now()}
	}
	if current && w.step == StepCode {
		w.step = StepSuccess
		w.receipt = receipt
	} else {
		w.logger.Warn("Withdrawal accepted after the wizard was closed",
			zap.String("wallet_id", walletID),
			zap.String("transaction_id", receipt.TransactionID),
		)
	}
	w.mu.Unlock()

	metrics.WithdrawalSubmissions.WithLabelValues("success").Inc()
	w.logger.Info("Withdrawal submitted",
		zap.String("wallet_id", walletID),
		zap.String("transaction_id", receipt.TransactionID),
	)
	w.publishSubmitted(ctx, walletID, draft, receipt)
	return receipt, nil
}

// submissionError maps a gateway failure to the error shown on the code
// field. Anything that is not a typed code or rejection error is reported as
// a generic submission failure.
func submissionError(err error) *errors.Error {
	var e *errors.Error
	if errors.As(err, &e) && (e.Kind == errors.KindInvalidCode || e.Kind == errors.KindRejected) {
		msg := e.Message
		if msg == "" {
			msg = "the confirmation code was not accepted"
		}
		return errors.NewWithKind(e.Kind).Wrap(err).Explain("%s", msg).WithField(FieldCode, msg)
	}
	msg := "withdrawal could not be submitted, request a new code and try again"
	return errors.ErrSubmissionFailed.Wrap(err).Explain("%s", msg).WithField(FieldCode, msg)
}

func (w *Wizard) publishSubmitted(ctx context.Context, walletID string, draft Draft, receipt *models.WithdrawalReceipt) {
	if w.deps.Events == nil {
		return
	}
	event := &SubmittedEvent{
		ID:            uuid.New(),
		WalletID:      walletID,
		CurrencyID:    draft.Currency.ID,
		CurrencyCode:  draft.Currency.Code,
		Network:       draft.Currency.Network,
		Address:       draft.To,
		Amount:        draft.Amount,
		Fee:           draft.Fee,
		NativeGas:     draft.NativeGas,
		TransactionID: receipt.TransactionID,
		Timestamp:     time.Now(),
	}
	if err := w.deps.Events.PublishWithdrawalSubmitted(context.WithoutCancel(ctx), event); err != nil {
		w.logger.Warn("Failed to publish withdrawal submitted event", zap.Error(err))
	}
}

// Close discards the draft and every pending lookup and returns to closed.
// It is accepted from every step.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepClosed {
		metrics.OpenWizards.Dec()
	}
	w.resetLocked()
}

func (w *Wizard) resetLocked() {
	w.cancelGasLocked()
	if w.cancel != nil {
		w.cancel()
	}
	w.life, w.cancel = nil, nil
	w.generation++
	w.resolveSeq++
	w.step = StepClosed
	w.wallet = nil
	w.draft.Reset()
	w.currency = models.CurrencyRef{}
	w.fees = Aggregate(nil)
	w.limits = nil
	w.price = nil
	w.nativeGas = decimal.Zero
	w.gasKnown = false
	w.resolving = false
	w.amountInput = ""
	w.submitting = false
	w.codeErr = nil
	w.receipt = nil
}

// View is a read-only snapshot of the wizard for rendering.
type View struct {
	Step        Step                      `json:"step"`
	WalletID    string                    `json:"wallet_id,omitempty"`
	Currency    models.CurrencyRef        `json:"currency"`
	Fees        FeeSchedule               `json:"fees"`
	Limits      *models.Limits            `json:"limits,omitempty"`
	Price       *models.CurrencyPrice     `json:"price,omitempty"`
	NativeGas   decimal.Decimal           `json:"native_gas"`
	GasPending  bool                      `json:"gas_pending"`
	AmountInput string                    `json:"amount_input"`
	MaxAllowed  decimal.Decimal           `json:"max_allowed"`
	MaxSendable decimal.Decimal           `json:"max_sendable"`
	Draft       Draft                     `json:"draft"`
	Quote       *Quote                    `json:"quote,omitempty"`
	Submitting  bool                      `json:"submitting"`
	CodeError   *errors.Error             `json:"code_error,omitempty"`
	Receipt     *models.WithdrawalReceipt `json:"receipt,omitempty"`
}

// Snapshot returns the current view.
func (w *Wizard) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{
		Step:        w.step,
		Currency:    w.currency,
		Fees:        w.fees,
		NativeGas:   w.nativeGas,
		GasPending:  w.gasPending,
		AmountInput: w.amountInput,
		Draft:       w.draft.clone(),
		Submitting:  w.submitting,
		CodeError:   w.codeErr,
		Receipt:     w.receipt,
	}
	if w.step == StepClosed {
		return v
	}
	v.WalletID = w.wallet.ID
	if w.limits != nil {
		l := *w.limits
		v.Limits = &l
	}
	if w.price != nil {
		p := *w.price
		v.Price = &p
	}
	v.MaxAllowed = ValidationCeiling(w.currency, w.fees, w.limits)
	v.MaxSendable = MaxShortcut(w.currency, w.fees, w.limits, w.nativeGas)
	if w.step != StepInformation {
		q := w.draft.Quote()
		v.Quote = &q
	}
	return v
}
