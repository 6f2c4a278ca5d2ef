package http

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/billing"
)

// webhookSignatureHeader carries the payments provider's signature.
const webhookSignatureHeader = "Webhook-Signature"

// maxWebhookBody bounds how much of an inbound event we will read.
const maxWebhookBody = 1 << 20

// BillingHandler receives payments provider webhooks. The caller here is
// the provider itself, authenticated by signature, never an end user.
type BillingHandler struct {
	errors  ErrorHandler
	log     *zap.Logger
	billing *billing.Service
}

// NewBillingHandler returns a new instance of BillingHandler.
func NewBillingHandler(log *zap.Logger, svc *billing.Service) *BillingHandler {
	return &BillingHandler{
		log:     log,
		billing: svc,
	}
}

// handleWebhook is the HTTP handler for POST /api/billing/webhook.
func (h *BillingHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.errors.HandleHTTPError(ctx, &sitehub.Error{
			Code: sitehub.EInvalid,
			Msg:  "unreadable webhook payload",
			Err:  err,
		}, w)
		return
	}

	if err := h.billing.VerifySignature(payload, r.Header.Get(webhookSignatureHeader)); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	if err := h.billing.ProcessEvent(ctx, payload); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	_ = encodeResponse(ctx, w, http.StatusOK, map[string]bool{"received": true})
}
