package domain

import "errors"

var (
	ErrInvalidProvider         = errors.New("invalid_provider")
	ErrProviderNotFound        = errors.New("provider_not_found")
	ErrInvalidSignature        = errors.New("signature_verification_failed")
	ErrInvalidPayload          = errors.New("invalid_payload")
	ErrInvalidEvent            = errors.New("invalid_event")
	ErrEventIgnored            = errors.New("event_ignored")
	ErrEventAlreadyProcessed   = errors.New("event_already_processed")
	ErrMissingWebhookSecret    = errors.New("missing_webhook_secret")
	ErrUnknownSubscription     = errors.New("unknown_provider_subscription")
	ErrVerificationUnavailable = errors.New("verification_unavailable")
)
