package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/api/responses"
	"github.com/angelmondragon/kwetupizza-backend/internal/conversation"
	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/flutterwave"
	"github.com/angelmondragon/kwetupizza-backend/pkg/idempotency"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/metrics"
)

// PaymentReconciler applies gateway outcomes to orders.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, outcome orders.Outcome) (*orders.ReconcileResult, error)
}

// TransactionVerifier fetches the gateway's authoritative view of a charge.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, id string) (*flutterwave.Verification, error)
}

// ConversationUpdater feeds a reconciled payment into the customer's
// conversation.
type ConversationUpdater interface {
	ApplyPayment(ctx context.Context, identity string, cmd conversation.Command) error
}

const (
	applyRetries = 2
	applyBackoff = 100 * time.Millisecond
)

// FlutterwaveDeps wires the payment webhook.
type FlutterwaveDeps struct {
	Secret        string
	Reconciler    PaymentReconciler
	Verifier      TransactionVerifier
	Conversations ConversationUpdater
	Guard         EventGuard
	Metrics       *metrics.BotMetrics
	Logger        *logger.Logger
}

// FlutterwaveWebhook authenticates the verif-hash header, then reconciles
// charge.completed events. Everything past authentication is acknowledged
// with 200.
func FlutterwaveWebhook(deps FlutterwaveDeps) http.HandlerFunc {
	logg := deps.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !flutterwave.VerifySignature(r.Header.Get(flutterwave.SignatureHeader), deps.Secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logg.Error(ctx, "read flutterwave webhook body", err)
			responses.WriteAck(w)
			return
		}
		var event flutterwave.WebhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			logg.Error(ctx, "decode flutterwave webhook body", err)
			responses.WriteAck(w)
			return
		}

		ctx = logg.WithFields(ctx, map[string]any{"event": event.Event, "tx_ref": event.Data.TxRef})
		if event.Event != flutterwave.EventChargeCompleted {
			logg.Info(ctx, "flutterwave event ignored")
			responses.WriteAck(w)
			return
		}
		transactionID := event.Data.TransactionID()
		if transactionID == "" {
			logg.Warn(ctx, "flutterwave event without transaction id ignored")
			responses.WriteAck(w)
			return
		}

		seen, err := deps.Guard.CheckAndMarkProcessed(ctx, idempotency.SourceFlutterwave, transactionID)
		if err != nil {
			logg.Error(ctx, "check flutterwave event idempotency", err)
			responses.WriteAck(w)
			return
		}
		if seen {
			deps.Metrics.Duplicate(idempotency.SourceFlutterwave)
			logg.Info(ctx, "duplicate flutterwave event ignored")
			responses.WriteAck(w)
			return
		}

		if !handleCharge(ctx, deps, event.Data, body) {
			if delErr := deps.Guard.Delete(context.WithoutCancel(ctx), idempotency.SourceFlutterwave, transactionID); delErr != nil {
				logg.Error(ctx, "release flutterwave event mark", delErr)
			}
		}
		responses.WriteAck(w)
	}
}

// handleCharge reports whether the event reached a final decision. False
// means a redelivery should be processed again.
func handleCharge(ctx context.Context, deps FlutterwaveDeps, data flutterwave.WebhookData, body []byte) bool {
	logg := deps.Logger
	outcome := orders.Outcome{
		TxRef:             data.TxRef,
		TransactionID:     data.TransactionID(),
		ProviderReference: data.FlwRef,
		Amount:            decimal.NewNullDecimal(data.Amount),
		Raw:               json.RawMessage(body),
	}
	status := data.NormalizedStatus()

	if deps.Verifier != nil {
		verified, err := deps.Verifier.VerifyTransaction(ctx, outcome.TransactionID)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "transaction verification failed, using webhook status")
		} else {
			status = verified.Status
			if verified.TxRef != "" {
				outcome.TxRef = verified.TxRef
			}
			if verified.Reference != "" {
				outcome.ProviderReference = verified.Reference
			}
			outcome.Amount = decimal.NewNullDecimal(verified.Amount)
			if len(verified.Raw) > 0 {
				outcome.Raw = verified.Raw
			}
		}
	}

	parsed, err := enums.ParseTransactionStatus(status)
	if err != nil || !parsed.IsFinal() {
		logg.Info(logg.WithField(ctx, "status", status), "non-final charge status ignored")
		return false
	}
	outcome.Status = parsed

	result, err := deps.Reconciler.Reconcile(ctx, outcome)
	if err != nil {
		deps.Metrics.Payment("reconcile", "error")
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			logg.Warn(ctx, "payment outcome for unknown tx_ref ignored")
			return true
		}
		logg.Error(ctx, "reconcile payment outcome", err)
		return false
	}
	deps.Metrics.Payment("reconcile", string(parsed))
	if result.Order == nil || result.Superseded {
		return true
	}
	order := result.Order
	if !result.Applied && !outcomeStands(order, outcome) {
		return true
	}

	var cmd conversation.Command
	if parsed == enums.TransactionStatusSuccessful {
		cmd = conversation.PaymentSucceeded(order.ID, outcome.TxRef)
	} else {
		var provider enums.PaymentProvider
		if order.PaymentProvider != nil {
			provider = *order.PaymentProvider
		}
		cmd = conversation.PaymentFailed(order.ID, outcome.TxRef, order.DeliveryPhone, provider)
	}
	if deps.Conversations == nil {
		return true
	}
	backoff := retry.WithMaxRetries(applyRetries, retry.NewExponential(applyBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := deps.Conversations.ApplyPayment(ctx, order.CustomerPhone, cmd); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logg.Error(logg.WithOrderID(ctx, order.ID), "apply payment outcome to conversation", err)
		return false
	}
	return true
}

// outcomeStands reports whether the order still reflects the outcome, so a
// redelivered event can replay it into the conversation.
func outcomeStands(order *models.Order, outcome orders.Outcome) bool {
	if order.CurrentTxRef() != outcome.TxRef {
		return false
	}
	switch outcome.Status {
	case enums.TransactionStatusSuccessful:
		return order.PaymentStatus == enums.PaymentStatusPaid
	case enums.TransactionStatusFailed:
		return order.PaymentStatus == enums.PaymentStatusFailed
	}
	return false
}
