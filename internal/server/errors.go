package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authzdomain "github.com/strideworks/traincore/internal/authorization/domain"
	paymentdomain "github.com/strideworks/traincore/internal/payment/domain"
	plandomain "github.com/strideworks/traincore/internal/plan/domain"
	subscriptiondomain "github.com/strideworks/traincore/internal/subscription/domain"
	workoutdomain "github.com/strideworks/traincore/internal/workout/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrNotFound     = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrUnauthorized = &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden    = &apiError{Status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	ErrRateLimited  = &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body could not be parsed"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// AbortWithError translates domain errors into HTTP responses. Unmapped
// errors become an opaque 500; the access log carries the detail.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		status, code, message = http.StatusBadRequest, "signature_verification_failed", "signature verification failed"
	case errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, subscriptiondomain.ErrInvalidSubscription),
		errors.Is(err, subscriptiondomain.ErrInvalidUser),
		errors.Is(err, workoutdomain.ErrInvalidSet),
		errors.Is(err, workoutdomain.ErrUnknownExercise):
		status, code, message = http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, paymentdomain.ErrUnknownSubscription),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, authzdomain.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", "insufficient permissions"
	case errors.Is(err, paymentdomain.ErrVerificationUnavailable):
		status, code, message = http.StatusServiceUnavailable, "verification_unavailable", "payment verification is not configured"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &apiError{Status: status, Code: code, Message: message}})
}
