package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/strideworks/traincore/internal/payment/domain"
)

const (
	providerName    = "razorpay"
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

type factory struct{}

// NewFactory returns the Razorpay adapter factory.
func NewFactory() domain.AdapterFactory {
	return factory{}
}

func (factory) Provider() string { return providerName }

func (factory) NewAdapter(config domain.AdapterConfig) (domain.Adapter, error) {
	if strings.TrimSpace(config.WebhookSecret) == "" {
		return nil, domain.ErrMissingWebhookSecret
	}
	return &adapter{webhookSecret: config.WebhookSecret}, nil
}

type adapter struct {
	webhookSecret string
}

// Verify checks the webhook body signature: HMAC-SHA256 over the raw body
// with the webhook secret, hex-encoded in the signature header.
func (a *adapter) Verify(_ context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	if signature == "" {
		return domain.ErrInvalidSignature
	}
	if !VerifySignature(payload, signature, a.webhookSecret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// VerifySignature compares an expected HMAC-SHA256 hex digest in constant
// time.
func VerifySignature(message []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload produces the hex HMAC-SHA256 digest Razorpay would send.
func SignPayload(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookBody struct {
	Entity    string `json:"entity"`
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Subscription struct {
			Entity subscriptionEntity `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type subscriptionEntity struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	CurrentStart   *int64 `json:"current_start"`
	CurrentEnd     *int64 `json:"current_end"`
	PaidCount      *int   `json:"paid_count"`
	RemainingCount *int   `json:"remaining_count"`
}

type paymentEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Parse normalizes a subscription webhook. Events that do not concern
// subscriptions are reported as ignored, not as errors.
func (a *adapter) Parse(_ context.Context, payload []byte, headers http.Header) (*domain.WebhookEvent, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(body.Event)
	if eventType == "" {
		return nil, domain.ErrInvalidEvent
	}
	if !strings.HasPrefix(eventType, "subscription.") {
		return nil, domain.ErrEventIgnored
	}

	sub := body.Payload.Subscription.Entity
	if strings.TrimSpace(sub.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	eventID := strings.TrimSpace(headers.Get(eventIDHeader))
	if eventID == "" {
		// Redeliveries carry the same body, so a digest keeps dedupe
		// working when the event id header is absent.
		digest := sha256.Sum256(payload)
		eventID = hex.EncodeToString(digest[:])
	}

	occurredAt := time.Now().UTC()
	if body.CreatedAt > 0 {
		occurredAt = time.Unix(body.CreatedAt, 0).UTC()
	}

	var snapshot map[string]any
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	return &domain.WebhookEvent{
		Provider:               providerName,
		ProviderEventID:        eventID,
		Type:                   eventType,
		ProviderSubscriptionID: sub.ID,
		ProviderPaymentID:      body.Payload.Payment.Entity.ID,
		ProviderStatus:         sub.Status,
		CurrentStart:           unixTime(sub.CurrentStart),
		CurrentEnd:             unixTime(sub.CurrentEnd),
		PaidCount:              sub.PaidCount,
		RemainingCount:         sub.RemainingCount,
		OccurredAt:             occurredAt,
		Payload:                snapshot,
	}, nil
}

func unixTime(value *int64) *time.Time {
	if value == nil || *value <= 0 {
		return nil
	}
	t := time.Unix(*value, 0).UTC()
	return &t
}
