package orders

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/flutterwave"
)

// InitiatePayment mints the next tx_ref for the order and asks the gateway to
// push a mobile-money prompt. Every call is a new attempt; keys are never
// reused.
func (s *service) InitiatePayment(ctx context.Context, input ChargeInput) (*PaymentAttempt, error) {
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	if input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment phone is required")
	}
	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() || order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order no longer accepts payment").
			WithDetails(map[string]any{"status": order.Status, "payment_status": order.PaymentStatus})
	}

	attempt := order.PaymentAttempts + 1
	txRef := TxRef(order.ID, attempt)
	ctx = s.logg.WithTxRef(s.logg.WithOrderID(ctx, order.ID), txRef)

	provider := input.Provider
	rows, err := s.repo.BeginPaymentAttempt(ctx, order.ID, order.PaymentAttempts, map[string]any{
		"tx_ref":           txRef,
		"payment_attempts": attempt,
		"payment_status":   enums.PaymentStatusRequested,
		"payment_provider": provider,
		"delivery_phone":   input.Phone,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment attempt")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another payment attempt started concurrently")
	}

	email := input.Email
	if email == "" {
		email = fmt.Sprintf("customer+%s@example.com", input.Phone)
	}
	name := input.FullName
	if name == "" {
		name = order.CustomerName
	}
	result, err := s.gateway.ChargeMobileMoney(ctx, flutterwave.ChargeRequest{
		TxRef:       txRef,
		Amount:      order.Total,
		Currency:    order.Currency.String(),
		Email:       email,
		PhoneNumber: input.Phone,
		Network:     provider.Network(),
		FullName:    name,
		Meta: map[string]string{
			"order_id": strconv.FormatUint(order.ID, 10),
			"attempt":  strconv.Itoa(attempt),
		},
	})
	if err != nil {
		s.logg.Error(ctx, "mobile money charge failed", err)
		if _, updErr := s.repo.MarkPaymentFailed(ctx, order.ID, txRef); updErr != nil {
			s.logg.Error(ctx, "failed to mark payment attempt failed", updErr)
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "charge mobile money")
	}

	s.logg.Info(ctx, "mobile money charge initiated")
	return &PaymentAttempt{
		OrderID:   order.ID,
		TxRef:     txRef,
		Attempt:   attempt,
		Phone:     input.Phone,
		Reference: result.Reference,
	}, nil
}

// Reconcile applies a gateway outcome at most once per tx_ref. Only the
// order's current tx_ref can change the order; outcomes for older attempts
// are recorded as transactions and reported as superseded.
func (s *service) Reconcile(ctx context.Context, outcome Outcome) (*ReconcileResult, error) {
	ctx = s.logg.WithTxRef(ctx, outcome.TxRef)
	if !outcome.Status.IsFinal() {
		s.logg.Info(s.logg.WithField(ctx, "status", outcome.Status), "ignoring non-final payment outcome")
		return &ReconcileResult{}, nil
	}

	order, err := s.orderForTxRef(ctx, outcome.TxRef)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)
	_, attempt, _ := ParseTxRef(outcome.TxRef)

	result := &ReconcileResult{}
	var txn *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		recorded, err := s.recordTransaction(ctx, repo, order, attempt, outcome)
		if err != nil {
			return err
		}
		txn = recorded

		if order.CurrentTxRef() != outcome.TxRef {
			result.Superseded = true
			return nil
		}

		var rows int64
		switch outcome.Status {
		case enums.TransactionStatusSuccessful:
			rows, err = repo.MarkPaid(ctx, order.ID, outcome.TxRef)
		case enums.TransactionStatusFailed:
			rows, err = repo.MarkPaymentFailed(ctx, order.ID, outcome.TxRef)
		}
		if err != nil {
			return err
		}
		result.Applied = rows == 1
		if result.Applied && outcome.Status == enums.TransactionStatusSuccessful {
			return repo.AppendTracking(ctx, &models.OrderTracking{
				OrderID:     order.ID,
				Status:      paidStatus(order.Status),
				Description: "Payment received",
			})
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			s.logg.Info(ctx, "payment outcome already recorded")
			result.Order = order
			return result, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile payment")
	}

	fresh, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	result.Order = fresh
	result.Transaction = txn

	switch {
	case result.Superseded:
		s.logg.Warn(ctx, "payment outcome for superseded attempt recorded without applying")
		reason := "payment received for superseded attempt " + outcome.TxRef
		if outcome.Status == enums.TransactionStatusSuccessful && fresh.PaymentStatus != enums.PaymentStatusPaid && fresh.ReviewReason != reason {
			s.flagForReview(ctx, fresh, reason)
		}
	case !result.Applied:
		s.flagLatePayment(ctx, fresh, outcome)
	case outcome.Status == enums.TransactionStatusSuccessful:
		s.logg.Info(ctx, "payment confirmed")
		if err := s.notifier.PaymentConfirmed(ctx, fresh, txn); err != nil {
			s.logg.Error(ctx, "payment confirmation notifications failed", err)
		}
	default:
		s.logg.Info(ctx, "payment failed")
		if err := s.notifier.PaymentFailed(ctx, fresh, txn); err != nil {
			s.logg.Error(ctx, "payment failure notifications failed", err)
		}
	}
	return result, nil
}

// paidStatus is the order status after MarkPaid.
func paidStatus(from enums.OrderStatus) enums.OrderStatus {
	if from == enums.OrderStatusPending {
		return enums.OrderStatusConfirmed
	}
	return from
}

func (s *service) orderForTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	if orderID, _, err := ParseTxRef(txRef); err == nil {
		return s.Get(ctx, orderID)
	}
	order, err := s.repo.FindByTxRef(ctx, txRef)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for tx_ref").WithDetails(map[string]any{"tx_ref": txRef})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order by tx_ref")
	}
	return order, nil
}

// recordTransaction creates the row for a tx_ref or upgrades an earlier
// non-successful record. A successful record is never downgraded.
func (s *service) recordTransaction(ctx context.Context, repo Repository, order *models.Order, attempt int, outcome Outcome) (*models.Transaction, error) {
	amount := order.Total
	if outcome.Amount.Valid {
		amount = outcome.Amount.Decimal
	}
	reference := outcome.ProviderReference
	if reference == "" {
		reference = outcome.TransactionID
	}

	existing, err := repo.FindTransactionByTxRef(ctx, outcome.TxRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == outcome.Status || existing.Status == enums.TransactionStatusSuccessful {
			return existing, nil
		}
		updates := map[string]any{
			"status":             outcome.Status,
			"provider_reference": reference,
			"amount":             amount,
		}
		if len(outcome.Raw) > 0 {
			updates["response_data"] = outcome.Raw
		}
		if err := repo.UpdateTransaction(ctx, existing.ID, updates); err != nil {
			return nil, err
		}
		existing.Status = outcome.Status
		existing.ProviderReference = reference
		existing.Amount = amount
		return existing, nil
	}

	txn := &models.Transaction{
		OrderID:           order.ID,
		TxRef:             outcome.TxRef,
		Attempt:           attempt,
		Amount:            amount,
		Currency:          order.Currency,
		Status:            outcome.Status,
		ProviderReference: reference,
		ResponseData:      outcome.Raw,
	}
	if order.PaymentProvider != nil {
		txn.Provider = *order.PaymentProvider
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// flagLatePayment marks money received for an order that can no longer be
// fulfilled.
func (s *service) flagLatePayment(ctx context.Context, order *models.Order, outcome Outcome) {
	if outcome.Status != enums.TransactionStatusSuccessful || order.PaymentStatus == enums.PaymentStatusPaid {
		s.logg.Info(ctx, "duplicate payment outcome ignored")
		return
	}
	s.logg.Warn(ctx, "payment received for an order that is "+order.Status.String())
	s.flagForReview(ctx, order, "payment received after order was "+order.Status.String())
}

// flagForReview marks the order for manual follow-up and alerts the business.
func (s *service) flagForReview(ctx context.Context, order *models.Order, reason string) {
	err := s.repo.UpdateOrder(ctx, order.ID, map[string]any{
		"needs_review":  true,
		"review_reason": reason,
	})
	if err != nil {
		s.logg.Error(ctx, "failed to flag order for review", err)
	} else {
		order.NeedsReview = true
		order.ReviewReason = reason
	}
	text := fmt.Sprintf("Order #%d needs review: %s (customer %s)", order.ID, reason, order.CustomerPhone)
	if err := s.notifier.AlertAdmin(ctx, text); err != nil {
		s.logg.Error(ctx, "review alert failed", err)
	}
}
