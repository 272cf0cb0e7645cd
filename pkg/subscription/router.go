package subscription

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxWebhookBody caps how much of a provider notification is read.
const maxWebhookBody = 1 << 20

// RouterConfig wires the HTTP ingress for provider callbacks.
type RouterConfig struct {
	Service Service
	// SuccessURL and CancelURL are where the buyer lands after the
	// redirect-back from checkout.
	SuccessURL string
	CancelURL  string
	Logger     *slog.Logger
}

// Router exposes the two provider-facing endpoints:
//
//	POST /webhooks/{driver}  asynchronous provider notifications
//	GET  /checkout/return    buyer returning from the provider's checkout
//
// Webhook deliveries that can never succeed (unverifiable payloads, unknown
// profiles) are acknowledged with 200 so the provider stops retrying them;
// transient failures return 500 to trigger a redelivery.
func Router(cfg RouterConfig) chi.Router {
	if cfg.Service == nil {
		panic("subscription: Service is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Post("/webhooks/{driver}", handleWebhook(cfg.Service, log))
	r.Get("/checkout/return", handleCheckoutReturn(cfg.Service, cfg.SuccessURL, cfg.CancelURL, log))
	return r
}

func handleWebhook(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver := chi.URLParam(r, "driver")
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		processed, err := svc.HandleWebhook(r.Context(), driver, payload)
		switch {
		case err == nil:
			if !processed {
				log.InfoContext(r.Context(), "duplicate webhook delivery acknowledged", "driver", driver)
			}
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, ErrInvalidWebhook),
			errors.Is(err, ErrSubscriptionNotFound),
			errors.Is(err, ErrUnknownDriver):
			// Redelivery cannot fix these; swallow them so the provider
			// stops retrying.
			log.WarnContext(r.Context(), "webhook rejected", "driver", driver, "error", err)
			w.WriteHeader(http.StatusOK)
		default:
			log.ErrorContext(r.Context(), "webhook processing failed", "driver", driver, "error", err)
			http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		}
	}
}

func handleCheckoutReturn(svc Service, successURL, cancelURL string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver := r.URL.Query().Get("driver")
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}

		if err := svc.ConfirmCheckout(r.Context(), driver, token); err != nil {
			log.WarnContext(r.Context(), "checkout confirmation failed", "driver", driver, "error", err)
			http.Redirect(w, r, cancelURL, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, successURL, http.StatusSeeOther)
	}
}
