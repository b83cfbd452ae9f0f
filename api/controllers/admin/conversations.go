package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kwetupizza-backend/api/responses"
	"github.com/angelmondragon/kwetupizza-backend/api/validators"
	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/pagination"
)

// ConversationReleaser ends an agent handoff.
type ConversationReleaser interface {
	Release(ctx context.Context, identity string) error
}

// ReleaseConversation hands a conversation back to the bot after a live
// agent is done with it.
func ReleaseConversation(svc ConversationReleaser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := conversation.NormalizePhone(chi.URLParam(r, "phone"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number"))
			return
		}
		if err := svc.Release(r.Context(), identity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"phone": identity, "status": "released"})
	}
}

// InboxReader lists archived inbound messages.
type InboxReader interface {
	Recent(ctx context.Context, phone string, limit int) ([]models.InboxMessage, error)
}

// ConversationInbox returns the messages archived for a phone, newest first,
// so an agent can catch up on a handed-off chat.
func ConversationInbox(svc InboxReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := conversation.NormalizePhone(chi.URLParam(r, "phone"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid phone number"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messages, err := svc.Recent(r.Context(), identity, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"phone": identity, "messages": messages})
	}
}
