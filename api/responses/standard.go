// Package responses formats console API responses. Successful responses use
// a small envelope; failures are RFC 7807 problem documents.
package responses

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aidin1998/finalex-console/pkg/errors"
)

// StandardResponse represents a standard API response format
type StandardResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	StandardResponse
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	PerPage      int   `json:"per_page"`
	TotalPages   int   `json:"total_pages"`
	TotalRecords int64 `json:"total_records"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, StandardResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC(),
		TraceID:   getTraceID(c),
	})
}

// Success sends a 200 response
func Success(c *gin.Context, data interface{}, message ...string) {
	respond(c, http.StatusOK, data, first(message, "Operation successful"))
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}, message ...string) {
	respond(c, http.StatusCreated, data, first(message, "Resource created successfully"))
}

// NoContent sends a 204 No Content response
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated sends a paginated response
func Paginated(c *gin.Context, data interface{}, pagination *PaginationMeta) {
	c.JSON(http.StatusOK, PaginatedResponse{
		StandardResponse: StandardResponse{
			Success:   true,
			Data:      data,
			Message:   "Data retrieved successfully",
			Timestamp: time.Now().UTC(),
			TraceID:   getTraceID(c),
		},
		Pagination: pagination,
	})
}

// Error converts err into a problem document and aborts the request.
func Error(c *gin.Context, err error) {
	Problem(c, errors.Problem(err, c.Request.URL.Path))
}

// Problem sends problemDetails as application/problem+json.
func Problem(c *gin.Context, problemDetails *errors.ProblemDetails) {
	if traceID := getTraceID(c); traceID != "" {
		problemDetails.WithExtra("trace_id", traceID)
	}
	problemDetails.WithExtra("timestamp", time.Now().UTC().Format(time.RFC3339))

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problemDetails.Status, problemDetails)
}

// BadRequest sends a 400 validation problem for malformed input.
func BadRequest(c *gin.Context, detail string) {
	Error(c, errors.ErrInvalidRequest.Explain("%s", detail))
}

// getTraceID prefers the active span, then the X-Trace-ID header.
func getTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return c.GetHeader("X-Trace-ID")
}

// CreatePaginationMeta creates pagination metadata
func CreatePaginationMeta(currentPage, perPage int, totalRecords int64) *PaginationMeta {
	totalPages := int((totalRecords + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}

	return &PaginationMeta{
		CurrentPage:  currentPage,
		PerPage:      perPage,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      currentPage < totalPages,
		HasPrev:      currentPage > 1,
	}
}

func first(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
