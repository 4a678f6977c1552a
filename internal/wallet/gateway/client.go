// Package gateway submits withdrawals to the transaction gateway, the only
// component of the console that moves funds.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/errors"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// maxResponseBytes caps how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// invalidCodeReasons are gateway error codes that mean the second factor
// was not accepted.
var invalidCodeReasons = map[string]bool{
	"invalid_code":          true,
	"invalid_second_factor": true,
	"second_factor_expired": true,
}

// Client is an HTTP client of the transaction gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a gateway client.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// SubmitWithdrawal posts req to the gateway. Any 2xx status means the funds
// moved and is returned as a receipt even when the body cannot be decoded.
// Rejections of the code map to errors.ErrInvalidCode, other 4xx responses
// to errors.ErrRejected, and transport failures or 5xx responses to
// errors.ErrSubmissionFailed.
func (c *Client) SubmitWithdrawal(ctx context.Context, req models.WithdrawalSubmission) (*models.WithdrawalReceipt, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal withdrawal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/withdrawals", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("gateway request failed", zap.String("request_id", requestID), zap.Error(err))
		return nil, errors.ErrSubmissionFailed.Wrap(err).Explain("transaction gateway unreachable")
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	oversized := int64(len(body)) > maxResponseBytes

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return c.accepted(requestID, resp.StatusCode, body, readErr, oversized), nil
	}
	if readErr != nil || oversized {
		body = nil
	}

	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	message := eb.Message
	if message == "" {
		message = eb.Detail
	}
	reason := eb.Code
	if reason == "" {
		reason = eb.Kind
	}

	c.logger.Warn("gateway refused withdrawal",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.String("reason", reason),
	)

	switch {
	case resp.StatusCode >= 500:
		return nil, errors.ErrSubmissionFailed.Explain("transaction gateway returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || invalidCodeReasons[reason]:
		if message == "" {
			message = "the confirmation code was not accepted"
		}
		return nil, errors.ErrInvalidCode.Explain("%s", message)
	default:
		if message == "" {
			message = fmt.Sprintf("withdrawal rejected with status %d", resp.StatusCode)
		}
		return nil, errors.ErrRejected.Explain("%s", message)
	}
}

// accepted builds the receipt of a 2xx response. A body that cannot be read
// or decoded is logged; the withdrawal is still reported as submitted.
func (c *Client) accepted(requestID string, status int, body []byte, readErr error, oversized bool) *models.WithdrawalReceipt {
	var receipt models.WithdrawalReceipt
	var decodeErr error
	switch {
	case readErr != nil:
		decodeErr = readErr
	case oversized:
		decodeErr = fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	case len(body) > 0:
		if err := json.Unmarshal(body, &receipt); err != nil {
			receipt = models.WithdrawalReceipt{}
			decodeErr = err
		}
	}
	if decodeErr != nil {
		c.logger.Warn("gateway accepted withdrawal with an unreadable receipt",
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Error(decodeErr),
		)
	}
	if receipt.Status == "" {
		receipt.Status = "submitted"
	}
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = time.Now()
	}
	c.logger.Info("gateway accepted withdrawal",
		zap.String("request_id", requestID),
		zap.String("transaction_id", receipt.TransactionID),
	)
	return &receipt
}
