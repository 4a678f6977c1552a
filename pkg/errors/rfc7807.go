package errors

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs
const (
	TypeValidationError   = "https://api.finalex.io/problems/validation-error"
	TypeInsufficientFunds = "https://api.finalex.io/problems/insufficient-funds"
	TypeLimitExceeded     = "https://api.finalex.io/problems/limit-exceeded"
	TypeInvalidCode       = "https://api.finalex.io/problems/invalid-code"
	TypeConflict          = "https://api.finalex.io/problems/conflict"
	TypeNotFound          = "https://api.finalex.io/problems/not-found"
	TypeBadGateway        = "https://api.finalex.io/problems/bad-gateway"
	TypeInternalError     = "https://api.finalex.io/problems/internal-error"
	TypeRateLimited       = "https://api.finalex.io/problems/rate-limited"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	Kind     string                 `json:"kind,omitempty"`
	Errors   []FieldError           `json:"errors,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithExtra adds extra fields to the problem details (they will be serialized at the top level)
func (p *ProblemDetails) WithExtra(key string, value interface{}) *ProblemDetails {
	if p.Extra == nil {
		p.Extra = make(map[string]interface{})
	}
	p.Extra[key] = value
	return p
}

// MarshalJSON implements custom JSON marshaling to include extra fields at the top level
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{})
	result["type"] = p.Type
	result["title"] = p.Title
	result["status"] = p.Status
	if p.Detail != "" {
		result["detail"] = p.Detail
	}
	if p.Instance != "" {
		result["instance"] = p.Instance
	}
	if p.Kind != "" {
		result["kind"] = p.Kind
	}
	if len(p.Errors) > 0 {
		result["errors"] = p.Errors
	}
	for k, v := range p.Extra {
		result[k] = v
	}
	return json.Marshal(result)
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// Problem converts any error into a problem document. Errors that are not
// *Error become internal errors with a generic detail.
func Problem(err error, instance string) *ProblemDetails {
	var e *Error
	if !As(err, &e) {
		return NewProblemDetails(TypeInternalError, "Internal Server Error",
			http.StatusInternalServerError, "unexpected error", instance)
	}

	var p *ProblemDetails
	switch e.Kind {
	case KindRequired, KindInvalidAddress, KindSelfTransfer, KindInvalidAmount, KindBelowMinimum, KindInvalidRequest:
		p = NewProblemDetails(TypeValidationError, "Validation Error", http.StatusBadRequest, e.Message, instance)
	case KindInsufficientFunds:
		p = NewProblemDetails(TypeInsufficientFunds, "Insufficient Funds", http.StatusUnprocessableEntity, e.Message, instance)
	case KindExceedsLimit:
		p = NewProblemDetails(TypeLimitExceeded, "Limit Exceeded", http.StatusUnprocessableEntity, e.Message, instance)
	case KindInvalidCode, KindRejected:
		p = NewProblemDetails(TypeInvalidCode, "Confirmation Failed", http.StatusUnprocessableEntity, e.Message, instance)
	case KindInvalidTransition, KindSubmissionInFlight:
		p = NewProblemDetails(TypeConflict, "Conflict", http.StatusConflict, e.Message, instance)
	case KindNotFound:
		p = NewProblemDetails(TypeNotFound, "Not Found", http.StatusNotFound, e.Message, instance)
	case KindRateLimited:
		p = NewProblemDetails(TypeRateLimited, "Too Many Requests", http.StatusTooManyRequests, e.Message, instance)
	case KindSubmissionFailed:
		p = NewProblemDetails(TypeBadGateway, "Bad Gateway", http.StatusBadGateway, e.Message, instance)
	default:
		p = NewProblemDetails(TypeInternalError, "Internal Server Error", http.StatusInternalServerError, e.Message, instance)
	}
	p.Kind = e.Kind
	p.Errors = e.Fields
	return p
}
