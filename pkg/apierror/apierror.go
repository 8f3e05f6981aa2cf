// Package apierror holds the closed set of error codes returned by the API and
// the helpers that write the `{"error": ..., "code": ...}` envelope.
package apierror

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Code string

const (
	Unauthorized    Code = "UNAUTHORIZED"
	Forbidden       Code = "FORBIDDEN"
	NotFound        Code = "NOT_FOUND"
	InvalidInput    Code = "INVALID_INPUT"
	ValidationError Code = "VALIDATION_ERROR"
	InternalError   Code = "INTERNAL_ERROR"
	RateLimited     Code = "RATE_LIMITED"
	InvalidToken    Code = "INVALID_TOKEN"
	MissingAuth     Code = "MISSING_AUTH"
	Conflict        Code = "CONFLICT"
)

// Status maps a code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case Unauthorized, InvalidToken, MissingAuth:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidInput, ValidationError:
		return http.StatusBadRequest
	case RateLimited:
		return http.StatusTooManyRequests
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Body struct {
	Error string `json:"error"`
	Code  Code   `json:"code,omitempty"`
}

// Respond writes the envelope and aborts the handler chain.
func Respond(c *gin.Context, code Code, message string) {
	c.AbortWithStatusJSON(code.Status(), Body{Error: message, Code: code})
}

// Internal logs err with its context and answers with a generic message so
// store error text never reaches the client.
func Internal(c *gin.Context, logger *slog.Logger, message string, err error) {
	logger.ErrorContext(c.Request.Context(), message,
		slog.String("path", c.FullPath()),
		slog.String("error", err.Error()))
	Respond(c, InternalError, message)
}

func ConfigMissing(c *gin.Context) {
	Respond(c, InternalError, "server configuration error")
}
