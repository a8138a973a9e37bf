package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"storefront-payments/internal/webhook"

	"github.com/gin-gonic/gin"
)

const (
	signatureHeader = "Paymongo-Signature"
	maxWebhookBody  = 1 << 20
)

// handlePayMongoWebhook acknowledges every authenticated, parseable delivery
// with 200 so the gateway does not retry; reconciliation problems are only
// logged.
func (s *Server) handlePayMongoWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), "failed to read webhook body", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read request body"})
		return
	}

	// A delivery runs to completion even if the gateway hangs up.
	ctx := context.WithoutCancel(c.Request.Context())

	res, err := s.webhooks.Handle(ctx, body, c.GetHeader(signatureHeader))
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	s.log.InfoContext(ctx, "webhook processed",
		"request_id", c.GetString("request_id"),
		"event_id", res.EventID,
		"event_type", res.EventType,
		"outcome", res.Outcome,
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}
