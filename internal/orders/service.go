package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/pagination"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
)

const defaultDeliveryBuffer = 30 * time.Minute

// Service owns order placement, payment attempts and the delivery lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	InitiatePayment(ctx context.Context, input ChargeInput) (*PaymentAttempt, error)
	Reconcile(ctx context.Context, outcome Outcome) (*ReconcileResult, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	UpdateLocation(ctx context.Context, orderID uint64, location types.TrackingLocation, eta *time.Time) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uint64, notes string) (*models.Order, error)
	Cancel(ctx context.Context, orderID uint64, reason string) (*models.Order, error)
	History(ctx context.Context, orderID uint64) ([]models.OrderTracking, error)
	Get(ctx context.Context, orderID uint64) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*OrderList, error)
	FlagDelayed(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Gateway        PaymentGateway
	Catalog        CatalogReader
	Notifier       Notifier
	Logger         *logger.Logger
	Currency       enums.Currency
	DeliveryBuffer time.Duration
	Clock          func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	gateway  PaymentGateway
	catalog  CatalogReader
	notifier Notifier
	logg     *logger.Logger
	currency enums.Currency
	buffer   time.Duration
	now      func() time.Time
}

// NewService constructs the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	s := &service{
		repo:     params.Repo,
		tx:       params.Tx,
		gateway:  params.Gateway,
		catalog:  params.Catalog,
		notifier: params.Notifier,
		logg:     params.Logger,
		currency: params.Currency,
		buffer:   params.DeliveryBuffer,
		now:      params.Clock,
	}
	if !s.currency.IsValid() {
		s.currency = enums.CurrencyTZS
	}
	if s.buffer <= 0 {
		s.buffer = defaultDeliveryBuffer
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// PlaceOrder persists the order row and then its items. The two writes are
// not atomic: when the items fail the order is flagged for review and marked
// failed.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	status := enums.OrderStatusPending
	if input.ScheduledTime != nil {
		status = enums.OrderStatusScheduled
	}
	eta := s.estimateDelivery(ctx, now, input)

	order := &models.Order{
		CustomerID:            input.CustomerID,
		CustomerName:          input.CustomerName,
		CustomerPhone:         input.CustomerPhone,
		DeliveryAddress:       input.DeliveryAddress,
		DeliveryPhone:         input.CustomerPhone,
		Status:                status,
		PaymentStatus:         enums.PaymentStatusUnpaid,
		Total:                 input.Total,
		Currency:              s.currency,
		ScheduledTime:         input.ScheduledTime,
		EstimatedDeliveryTime: &eta,
	}
	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	ctx = s.logg.WithOrderID(ctx, created.ID)

	items := make([]models.OrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		items = append(items, models.OrderItem{
			OrderID:     created.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.Total(),
		})
	}
	if err := s.repo.CreateItems(ctx, items); err != nil {
		s.logg.Error(ctx, "order items failed to persist; flagging order for review", err)
		flag := map[string]any{
			"needs_review":  true,
			"review_reason": "order items failed to persist",
			"status":        enums.OrderStatusFailed,
		}
		if flagErr := s.repo.UpdateOrder(ctx, created.ID, flag); flagErr != nil {
			s.logg.Error(ctx, "failed to flag order for review", flagErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDataIntegrity, err, "persist order items")
	}
	created.Items = items

	if err := s.repo.AppendTracking(ctx, &models.OrderTracking{
		OrderID:     created.ID,
		Status:      status,
		Description: "Order received",
	}); err != nil {
		s.logg.Warn(ctx, "failed to append initial tracking entry: "+err.Error())
	}
	s.logg.Info(ctx, "order placed")
	return created, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if input.CustomerPhone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	}
	if input.DeliveryAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid address")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart: no finalized lines")
	}
	sum := decimal.Zero
	for _, line := range input.Lines {
		if line.Quantity <= 0 || line.ProductID == 0 || !line.UnitPrice.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart line").WithDetails(map[string]any{"product_id": line.ProductID})
		}
		sum = sum.Add(line.Total())
	}
	if !input.Total.IsPositive() || !input.Total.Equal(sum) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart: total does not match lines")
	}
	return nil
}

// estimateDelivery is the longest line preparation, where every two units
// of a line add one preparation round, plus the delivery buffer.
func (s *service) estimateDelivery(ctx context.Context, now time.Time, input PlaceOrderInput) time.Time {
	base := now
	if input.ScheduledTime != nil && input.ScheduledTime.After(now) {
		base = input.ScheduledTime.UTC()
	}

	prep := map[uint64]catalog.Item{}
	if s.catalog != nil {
		ids := make([]uint64, 0, len(input.Lines))
		for _, line := range input.Lines {
			ids = append(ids, line.ProductID)
		}
		found, err := s.catalog.PreparationTimes(ctx, ids)
		if err != nil {
			s.logg.Warn(ctx, "preparation times unavailable, using defaults: "+err.Error())
		} else {
			prep = found
		}
	}

	var longest time.Duration
	for _, line := range input.Lines {
		perRound := catalog.DefaultPreparationTime
		if item, ok := prep[line.ProductID]; ok && item.PreparationTime > 0 {
			perRound = item.PreparationTime
		}
		rounds := (line.Quantity + 1) / 2
		if d := perRound * time.Duration(rounds); d > longest {
			longest = d
		}
	}
	return base.Add(longest + s.buffer)
}

func (s *service) Get(ctx context.Context, orderID uint64) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*OrderList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	out, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}

// History returns tracking entries newest first.
func (s *service) History(ctx context.Context, orderID uint64) ([]models.OrderTracking, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTracking(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking")
	}
	return rows, nil
}
