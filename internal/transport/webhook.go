package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxWebhookBodySize = 1 << 20 // 1MB

// NewWebhookHandler returns the HTTP handler the gateway posts inbound
// messages to. When secret is non-empty the gateway must present it as a
// bearer token. Group chatter and the bot's own outbound echoes are
// dropped; everything else is dispatched to the Handler on its own
// goroutine so a slow model call never stalls the webhook.
func NewWebhookHandler(secret string, handler Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/inbound", handleInbound(secret, handler))
	return r
}

func handleInbound(secret string, handler Handler) http.HandlerFunc {
	logger := slog.Default()
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
		defer r.Body.Close()

		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid message body", http.StatusBadRequest)
			return
		}
		if msg.From == "" {
			http.Error(w, "missing sender", http.StatusBadRequest)
			return
		}

		if msg.Group || msg.FromSelf {
			w.WriteHeader(http.StatusOK)
			return
		}

		logger.Debug("inbound message", "message_id", msg.ID, "from", msg.From)
		go handler.Handle(context.WithoutCancel(r.Context()), msg.From, msg.Body)

		w.WriteHeader(http.StatusOK)
	}
}
