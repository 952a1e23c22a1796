package domain

import (
	"context"
	"net/http"
)

type Service interface {
	// IngestWebhook verifies, deduplicates, and applies one provider
	// webhook delivery.
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error

	// VerifyPayment handles the client-side payment confirmation
	// callback after checkout.
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (VerifyPaymentResponse, error)
}
