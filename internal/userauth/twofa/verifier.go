// Package twofa verifies one-time confirmation codes and makes each code
// single use.
package twofa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/errors"
)

// DefaultKey is the StaticSecrets entry used when a subject has no secret
// of its own.
const DefaultKey = "*"

// SecretStore returns the TOTP secret of a subject.
type SecretStore interface {
	TOTPSecret(ctx context.Context, subject string) (string, error)
}

// StaticSecrets is a SecretStore backed by configuration.
type StaticSecrets map[string]string

// TOTPSecret implements SecretStore.
func (s StaticSecrets) TOTPSecret(ctx context.Context, subject string) (string, error) {
	if secret, ok := s[subject]; ok {
		return secret, nil
	}
	if secret, ok := s[strings.ToLower(subject)]; ok {
		return secret, nil
	}
	if secret, ok := s[DefaultKey]; ok {
		return secret, nil
	}
	return "", fmt.Errorf("no TOTP secret configured for %s", subject)
}

// ReplayStore is the subset of redis.Cmdable used to remember consumed codes.
type ReplayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Verifier validates TOTP codes. A code accepted once is refused for the
// rest of its validity window.
type Verifier struct {
	secrets SecretStore
	replay  ReplayStore
	logger  *zap.Logger
	prefix  string
	opts    totp.ValidateOpts
	now     func() time.Time
}

// NewVerifier creates a verifier for six-digit, 30 second TOTP codes with
// one step of clock skew.
func NewVerifier(secrets SecretStore, replay ReplayStore, prefix string, logger *zap.Logger) *Verifier {
	return &Verifier{
		secrets: secrets,
		replay:  replay,
		logger:  logger,
		prefix:  prefix,
		opts: totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
		now: time.Now,
	}
}

// Verify checks code for subject and consumes it.
func (v *Verifier) Verify(ctx context.Context, subject, code string) error {
	code = strings.TrimSpace(code)
	secret, err := v.secrets.TOTPSecret(ctx, subject)
	if err != nil {
		return errors.ErrRejected.Wrap(err).Explain("two-factor authentication is not enabled")
	}

	valid, err := totp.ValidateCustom(code, secret, v.now().UTC(), v.opts)
	if err != nil || !valid {
		v.logger.Warn("TOTP verification failed", zap.String("subject", subject))
		return errors.ErrInvalidCode.Explain("the confirmation code is invalid or expired")
	}

	// the window covers every step the code can still validate in
	window := time.Duration(v.opts.Period*(2*v.opts.Skew+1)) * time.Second
	fresh, err := v.replay.SetNX(ctx, v.replayKey(subject, code), 1, window).Result()
	if err != nil {
		v.logger.Error("failed to record used code", zap.String("subject", subject), zap.Error(err))
		return errors.ErrSubmissionFailed.Wrap(err).Explain("the confirmation code could not be checked, try again")
	}
	if !fresh {
		v.logger.Warn("TOTP code replayed", zap.String("subject", subject))
		return errors.ErrInvalidCode.Explain("the confirmation code was already used")
	}

	v.logger.Info("TOTP verification successful", zap.String("subject", subject))
	return nil
}

func (v *Verifier) replayKey(subject, code string) string {
	return v.prefix + ":totp:" + subject + ":" + code
}
