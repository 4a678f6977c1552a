package gateway

import (
	"context"

	"github.com/Aidin1998/finalex-console/pkg/models"
)

// CodeVerifier checks and consumes a one-time code.
type CodeVerifier interface {
	Verify(ctx context.Context, subject, code string) error
}

// Submitter submits a withdrawal.
type Submitter interface {
	SubmitWithdrawal(ctx context.Context, req models.WithdrawalSubmission) (*models.WithdrawalReceipt, error)
}

// Verified checks the second factor locally before forwarding a submission,
// so a code is consumed at most once even if the gateway does not track it.
type Verified struct {
	verifier CodeVerifier
	next     Submitter
}

// NewVerified wraps next with code verification keyed by wallet.
func NewVerified(verifier CodeVerifier, next Submitter) *Verified {
	return &Verified{verifier: verifier, next: next}
}

// SubmitWithdrawal implements Submitter.
func (v *Verified) SubmitWithdrawal(ctx context.Context, req models.WithdrawalSubmission) (*models.WithdrawalReceipt, error) {
	if err := v.verifier.Verify(ctx, req.WalletID, req.SecondFactorCode); err != nil {
		return nil, err
	}
	return v.next.SubmitWithdrawal(ctx, req)
}
