package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := ErrBelowMinimum.Explain("amount must be at least %s", "10").WithField("amount", "too small")

	assert.True(t, Is(err, ErrBelowMinimum))
	assert.False(t, Is(err, ErrExceedsLimit))
	assert.Equal(t, "amount", err.Field())
	assert.Equal(t, KindBelowMinimum, err.Fields[0].Kind)

	wrapped := fmt.Errorf("validate: %w", err)
	assert.True(t, Is(wrapped, ErrBelowMinimum))
	assert.Equal(t, KindBelowMinimum, KindOf(wrapped))
}

func TestWithFieldDoesNotMutateSentinel(t *testing.T) {
	_ = ErrRequired.WithField("to", "destination is required")
	assert.Empty(t, ErrRequired.Fields)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := ErrSubmissionFailed.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, ErrSubmissionFailed.Unwrap())
}

func TestProblemStatusByKind(t *testing.T) {
	cases := map[*Error]int{
		ErrInvalidAddress:     http.StatusBadRequest,
		ErrInsufficientFunds:  http.StatusUnprocessableEntity,
		ErrExceedsLimit:       http.StatusUnprocessableEntity,
		ErrInvalidCode:        http.StatusUnprocessableEntity,
		ErrSubmissionInFlight: http.StatusConflict,
		ErrSubmissionFailed:   http.StatusBadGateway,
		ErrNotFound:           http.StatusNotFound,
		ErrInvalidRequest:     http.StatusBadRequest,
		ErrRateLimited:        http.StatusTooManyRequests,
	}
	for e, status := range cases {
		assert.Equal(t, status, Problem(e, "/x").Status, e.Kind)
	}

	assert.Equal(t, http.StatusInternalServerError, Problem(fmt.Errorf("boom"), "/x").Status)
}

func TestProblemJSONIncludesFieldsAndExtra(t *testing.T) {
	p := Problem(ErrRequired.Explain("destination is required").WithField("to", "required"), "/withdrawals/1").
		WithExtra("step", "information")

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "required", body["kind"])
	assert.Equal(t, "information", body["step"])
	assert.Len(t, body["errors"], 1)
}
