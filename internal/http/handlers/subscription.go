package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/auth"
	"github.com/scramblenaija/scramble-be/internal/http/respond"
	"github.com/scramblenaija/scramble-be/internal/middleware"
	"github.com/scramblenaija/scramble-be/internal/models/dto"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/subscription"
)

// SubscriptionHandler exposes subscription status, wallet-funded activation,
// and the payment-provider webhook.
type SubscriptionHandler struct {
	gate        *subscription.Gate
	tokens      *auth.TokenManager
	webhookHash string
	log         *logrus.Entry
}

// NewSubscriptionHandler constructs the handler.
func NewSubscriptionHandler(gate *subscription.Gate, tokens *auth.TokenManager, webhookHash string, log *logrus.Entry) *SubscriptionHandler {
	return &SubscriptionHandler{gate: gate, tokens: tokens, webhookHash: webhookHash, log: log}
}

// Register attaches subscription routes to the mux.
func (h *SubscriptionHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /subscription", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleStatus)))
	mux.Handle("POST /subscribe", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleActivate)))
	mux.HandleFunc("POST /payments/webhook", h.handleWebhook)
}

func (h *SubscriptionHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	user, subscribed, err := h.gate.Status(r.Context(), identity.UserID, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := dto.SubscriptionStatusResponse{Subscribed: subscribed, Fee: h.gate.Fee()}
	if user.SubscriptionExpiry != nil {
		resp.ExpiresAt = user.SubscriptionExpiry.UnixMilli()
	}
	respond.JSON(w, http.StatusOK, "subscription status", resp)
}

func (h *SubscriptionHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	expiry, err := h.gate.Activate(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			respond.Error(w, http.StatusPaymentRequired, "insufficient balance to activate subscription")
			return
		}
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "subscription activated", dto.SubscriptionStatusResponse{
		Subscribed: true,
		ExpiresAt:  expiry.UnixMilli(),
		Fee:        h.gate.Fee(),
	})
}

// handleWebhook reacts to a successful-payment event from the payment
// provider by activating the subscription for the user named in the event
// metadata. The shared verif-hash header authenticates the caller.
func (h *SubscriptionHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookHash == "" {
		respond.Error(w, http.StatusServiceUnavailable, "payment webhook not configured")
		return
	}
	sig := r.Header.Get("verif-hash")
	if subtle.ConstantTimeCompare([]byte(sig), []byte(h.webhookHash)) != 1 {
		respond.Error(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	var event dto.PaymentWebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if event.Data.Status != "successful" || event.Data.Meta.UserID == 0 {
		// Acknowledge but ignore anything that is not a completed charge.
		respond.JSON(w, http.StatusOK, "event ignored", nil)
		return
	}

	if _, err := h.gate.ActivateExternal(r.Context(), event.Data.Meta.UserID, event.Data.TxRef); err != nil {
		if errors.Is(err, subscription.ErrMissingReference) {
			respond.Error(w, http.StatusBadRequest, "missing transaction reference")
			return
		}
		h.log.WithError(err).WithField("user_id", event.Data.Meta.UserID).Error("webhook activation failed")
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "subscription activated", nil)
}
