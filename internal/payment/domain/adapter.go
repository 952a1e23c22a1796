package domain

import (
	"context"
	"net/http"
	"time"
)

// AdapterConfig carries provider credentials into an adapter instance.
type AdapterConfig struct {
	Provider      string
	KeySecret     string
	WebhookSecret string
}

// WebhookEvent is a provider webhook normalized into the platform's
// vocabulary. ProviderStatus and the period fields come straight from the
// provider's subscription entity; mapping to a proposed internal status
// happens in the service.
type WebhookEvent struct {
	Provider               string
	ProviderEventID        string
	Type                   string
	ProviderSubscriptionID string
	ProviderPaymentID      string
	ProviderStatus         string
	CurrentStart           *time.Time
	CurrentEnd             *time.Time
	PaidCount              *int
	RemainingCount         *int
	OccurredAt             time.Time
	Payload                map[string]any
}

// Adapter verifies and parses one provider's webhook traffic.
type Adapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte, headers http.Header) (*WebhookEvent, error)
}

// AdapterFactory builds adapters for a named provider.
type AdapterFactory interface {
	Provider() string
	NewAdapter(config AdapterConfig) (Adapter, error)
}
