package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/kwetupizza-backend/api/responses"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/idempotency"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

const maxWebhookBody = 1 << 20

// MessageHandler runs one customer message through the conversation.
type MessageHandler interface {
	Handle(ctx context.Context, event whatsapp.InboundEvent) error
}

// EventGuard marks provider event ids as processed.
type EventGuard interface {
	CheckAndMarkProcessed(ctx context.Context, source, id string) (bool, error)
	Delete(ctx context.Context, source, id string) error
}

// WhatsAppVerify answers the subscription handshake by echoing hub.challenge
// when the mode and verify token match.
func WhatsAppVerify(verifyToken string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mode := query.Get("hub.mode")
		token := query.Get("hub.verify_token")
		challenge := query.Get("hub.challenge")

		if mode == "" || token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing verification parameters"))
			return
		}
		if mode != "subscribe" || verifyToken == "" || token != verifyToken {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "verification failed"))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, challenge)
	}
}

// WhatsAppWebhook processes inbound messages and always acknowledges with 200
// so the provider never retries because of business failures. A message id
// is processed at most once; when processing fails the mark is removed so a
// redelivery can try again.
func WhatsAppWebhook(handler MessageHandler, guard EventGuard, botMetrics *metrics.BotMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logg.Error(ctx, "read whatsapp webhook body", err)
			responses.WriteAck(w)
			return
		}

		var payload whatsapp.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			logg.Error(ctx, "decode whatsapp webhook body", err)
			responses.WriteAck(w)
			return
		}

		for _, status := range payload.Statuses() {
			logg.Debug(logg.WithFields(ctx, map[string]any{
				"message_id": status.ID,
				"status":     status.Status,
				"recipient":  status.RecipientID,
			}), "whatsapp delivery status")
		}

		for _, event := range payload.Events() {
			processMessage(ctx, handler, guard, botMetrics, logg, event)
		}
		responses.WriteAck(w)
	}
}

func processMessage(ctx context.Context, handler MessageHandler, guard EventGuard, botMetrics *metrics.BotMetrics, logg *logger.Logger, event whatsapp.InboundEvent) {
	ctx = logg.WithFields(ctx, map[string]any{
		"message_id": event.MessageID,
		"kind":       event.Kind,
	})
	messageID := strings.TrimSpace(event.MessageID)
	if messageID == "" {
		logg.Warn(ctx, "whatsapp message without id skipped")
		return
	}

	seen, err := guard.CheckAndMarkProcessed(ctx, idempotency.SourceWhatsAppMessage, messageID)
	if err != nil {
		logg.Error(ctx, "check whatsapp message idempotency", err)
		return
	}
	if seen {
		botMetrics.Duplicate(idempotency.SourceWhatsAppMessage)
		logg.Info(ctx, "duplicate whatsapp message ignored")
		return
	}

	if err := handler.Handle(ctx, event); err != nil {
		logg.Error(ctx, "whatsapp message processing failed", err)
		if delErr := guard.Delete(context.WithoutCancel(ctx), idempotency.SourceWhatsAppMessage, messageID); delErr != nil {
			logg.Error(ctx, "release whatsapp message mark", delErr)
		}
	}
}
