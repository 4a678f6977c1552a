package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

func testSubmission() models.WithdrawalSubmission {
	return models.WithdrawalSubmission{
		Address:          "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Amount:           decimal.RequireFromString("1.25"),
		CurrencyID:       "eth",
		SecondFactorCode: "123456",
		Type:             models.OperationWithdrawal,
		WalletID:         "wallet-1",
	}
}

func TestSubmitWithdrawalSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/withdrawals", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "eth", body["currencyId"])
		assert.Equal(t, "123456", body["secondFactorCode"])
		assert.Equal(t, "1.25", body["amount"])
		assert.Equal(t, "WITHDRAWAL", body["type"])
		assert.NotContains(t, body, "WalletID")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"transactionId":"tx-42","status":"pending"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "token", time.Second, zap.NewNop())
	receipt, err := c.SubmitWithdrawal(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.Equal(t, "tx-42", receipt.TransactionID)
	assert.Equal(t, "pending", receipt.Status)
	assert.False(t, receipt.SubmittedAt.IsZero())
}

func TestSubmitWithdrawalAcceptsUndecodableBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"html", `<html>ok</html>`},
		{"oversized", `{"transactionId":"` + strings.Repeat("x", maxResponseBytes) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			receipt, err := NewClient(srv.URL, "", time.Second, zap.NewNop()).SubmitWithdrawal(context.Background(), testSubmission())
			require.NoError(t, err)
			assert.Empty(t, receipt.TransactionID)
			assert.Equal(t, "submitted", receipt.Status)
			assert.False(t, receipt.SubmittedAt.IsZero())
		})
	}
}

func TestSubmitWithdrawalOversizedErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"limit_exceeded","message":"` + strings.Repeat("x", maxResponseBytes) + `"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second, zap.NewNop()).SubmitWithdrawal(context.Background(), testSubmission())
	assert.True(t, errors.Is(err, errors.ErrRejected), "got %v", err)
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "withdrawal rejected with status 422", e.Message)
}

func TestSubmitWithdrawalErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel *errors.Error
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, ``, errors.ErrInvalidCode, "the confirmation code was not accepted"},
		{"invalid code reason", http.StatusUnprocessableEntity, `{"code":"invalid_second_factor","message":"code expired"}`, errors.ErrInvalidCode, "code expired"},
		{"business rejection", http.StatusUnprocessableEntity, `{"code":"limit_exceeded","message":"daily limit reached"}`, errors.ErrRejected, "daily limit reached"},
		{"problem detail", http.StatusBadRequest, `{"kind":"invalid_address","detail":"bad address"}`, errors.ErrRejected, "bad address"},
		{"server error", http.StatusBadGateway, `oops`, errors.ErrSubmissionFailed, "transaction gateway returned status 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second, zap.NewNop()).SubmitWithdrawal(context.Background(), testSubmission())
			assert.True(t, errors.Is(err, tc.sentinel), "got %v", err)
			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tc.message, e.Message)
		})
	}
}

func TestSubmitWithdrawalTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second, zap.NewNop()).SubmitWithdrawal(context.Background(), testSubmission())
	assert.True(t, errors.Is(err, errors.ErrSubmissionFailed))
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(ctx context.Context, subject, code string) error { return f.err }

type fakeSubmitter struct{ calls int }

func (f *fakeSubmitter) SubmitWithdrawal(ctx context.Context, req models.WithdrawalSubmission) (*models.WithdrawalReceipt, error) {
	f.calls++
	return &models.WithdrawalReceipt{TransactionID: fmt.Sprintf("tx-%d", f.calls)}, nil
}

func TestVerifiedChecksCodeFirst(t *testing.T) {
	next := &fakeSubmitter{}
	_, err := NewVerified(fakeVerifier{err: errors.ErrInvalidCode}, next).SubmitWithdrawal(context.Background(), testSubmission())
	assert.True(t, errors.Is(err, errors.ErrInvalidCode))
	assert.Equal(t, 0, next.calls)

	receipt, err := NewVerified(fakeVerifier{}, next).SubmitWithdrawal(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.Equal(t, "tx-1", receipt.TransactionID)
}
