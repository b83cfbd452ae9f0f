package inbox

import (
	"context"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/whatsapp"
)

// Service archives inbound chat events for audit.
type Service interface {
	Archive(ctx context.Context, event whatsapp.InboundEvent, handedOff bool) error
	Recent(ctx context.Context, phone string, limit int) ([]models.InboxMessage, error)
}

type service struct {
	repo Repository
}

// NewService constructs the inbox service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inbox repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Archive(ctx context.Context, event whatsapp.InboundEvent, handedOff bool) error {
	kind := event.Kind
	if !kind.IsValid() {
		kind = enums.InboundKindUnsupported
	}
	msg := &models.InboxMessage{
		Phone:             event.From,
		Kind:              kind,
		Body:              event.Summary(),
		ProviderMessageID: event.MessageID,
		HandedOff:         handedOff,
	}
	if err := s.repo.Append(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive inbound message")
	}
	return nil
}

func (s *service) Recent(ctx context.Context, phone string, limit int) ([]models.InboxMessage, error) {
	out, err := s.repo.ListByPhone(ctx, phone, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inbox messages")
	}
	return out, nil
}
