package orders

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
)

// DelayDescription is the tracking entry written for overdue orders.
const DelayDescription = "Order is taking longer than expected. We apologize for the delay."

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.transition(ctx, input, nil)
}

func (s *service) UpdateLocation(ctx context.Context, orderID uint64, location types.TrackingLocation, eta *time.Time) (*models.Order, error) {
	return s.transition(ctx, TransitionInput{
		OrderID:           orderID,
		Status:            enums.OrderStatusDelivering,
		Location:          &location,
		EstimatedDelivery: eta,
	}, nil)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uint64, notes string) (*models.Order, error) {
	return s.transition(ctx, TransitionInput{
		OrderID:     orderID,
		Status:      enums.OrderStatusDelivered,
		Description: notes,
	}, map[string]any{
		"actual_delivery_time": s.now().UTC(),
		"delivery_notes":       notes,
	})
}

func (s *service) Cancel(ctx context.Context, orderID uint64, reason string) (*models.Order, error) {
	return s.transition(ctx, TransitionInput{
		OrderID:     orderID,
		Status:      enums.OrderStatusCancelled,
		Description: reason,
	}, nil)
}

// transition validates the move, updates the order guarded by its current
// status, appends a tracking entry and notifies.
func (s *service) transition(ctx context.Context, input TransitionInput, extra map[string]any) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)
	from := order.Status
	if !CanTransition(from, input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from "+from.String()+" to "+input.Status.String())
	}

	updates := map[string]any{"status": input.Status}
	if input.EstimatedDelivery != nil {
		updates["estimated_delivery_time"] = input.EstimatedDelivery.UTC()
		updates["delay_notified_at"] = nil
	}
	for k, v := range extra {
		updates[k] = v
	}

	entry := &models.OrderTracking{
		OrderID:     order.ID,
		Status:      input.Status,
		Description: input.Description,
		Location:    input.Location,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateStatus(ctx, order.ID, from, updates)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
		}
		return repo.AppendTracking(ctx, entry)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	fresh, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": input.Status}), "order status updated")
	if err := s.notifier.StatusChanged(ctx, fresh, entry); err != nil {
		s.logg.Error(ctx, "status notifications failed", err)
	}
	return fresh, nil
}

// FlagDelayed marks overdue orders once, writes the delay entry and notifies.
// It is safe to run repeatedly: an order is only flagged by the run that
// wins the delay_notified_at update.
func (s *service) FlagDelayed(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	overdue, err := s.repo.ListOverdue(ctx, trackableStatuses, now.UTC(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue orders")
	}

	var flagged []models.Order
	var errs error
	for i := range overdue {
		order := overdue[i]
		orderCtx := s.logg.WithOrderID(ctx, order.ID)
		won := false
		err := s.tx.WithTx(orderCtx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rows, err := repo.MarkDelayNotified(orderCtx, order.ID, now.UTC())
			if err != nil || rows == 0 {
				return err
			}
			won = true
			return repo.AppendTracking(orderCtx, &models.OrderTracking{
				OrderID:     order.ID,
				Status:      order.Status,
				Description: DelayDescription,
			})
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !won {
			continue
		}
		if err := s.notifier.OrderDelayed(orderCtx, &order); err != nil {
			s.logg.Error(orderCtx, "delay notifications failed", err)
		}
		flagged = append(flagged, order)
	}
	if errs != nil {
		return flagged, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "flag delayed orders")
	}
	return flagged, nil
}
