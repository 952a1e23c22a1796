package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/strideworks/traincore/internal/payment/domain"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// HandleWebhook forwards a provider webhook into the ingestion pipeline.
// Duplicate deliveries acknowledge with 200 so the provider stops
// retrying an event that already landed.
func (s *Server) HandleWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), provider, body, c.Request.Header)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	default:
		s.log.Warn("webhook rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		AbortWithError(c, err)
	}
}

// VerifyPayment handles the checkout callback after the user completes
// payment in the provider's widget.
func (s *Server) VerifyPayment(c *gin.Context) {
	var req paymentdomain.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ProviderSubscriptionID) == "" {
		AbortWithError(c, newValidationError("subscription_id", "required", "subscription_id is required"))
		return
	}
	if strings.TrimSpace(req.ProviderPaymentID) == "" {
		AbortWithError(c, newValidationError("payment_id", "required", "payment_id is required"))
		return
	}
	if strings.TrimSpace(req.Signature) == "" {
		AbortWithError(c, newValidationError("signature", "required", "signature is required"))
		return
	}

	resp, err := s.paymentSvc.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
