package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/api/responses"
	"github.com/angelmondragon/kwetupizza-backend/api/validators"
	"github.com/angelmondragon/kwetupizza-backend/internal/orders"
	"github.com/angelmondragon/kwetupizza-backend/pkg/db/models"
	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
	"github.com/angelmondragon/kwetupizza-backend/pkg/pagination"
	"github.com/angelmondragon/kwetupizza-backend/pkg/types"
)

const (
	maxDescriptionLength = 500
	orderIDParam         = "orderId"
)

// OrdersService is the slice of the orders service the admin API drives.
type OrdersService interface {
	Get(ctx context.Context, orderID uint64) (*models.Order, error)
	List(ctx context.Context, params orders.ListParams) (*orders.OrderList, error)
	History(ctx context.Context, orderID uint64) ([]models.OrderTracking, error)
	Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error)
	UpdateLocation(ctx context.Context, orderID uint64, location types.TrackingLocation, eta *time.Time) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uint64, notes string) (*models.Order, error)
	Cancel(ctx context.Context, orderID uint64, reason string) (*models.Order, error)
}

type locationBody struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address"`
}

type transitionRequest struct {
	Status            string        `json:"status" validate:"required,oneof=pending scheduled confirmed preparing ready delivering delivered completed cancelled failed"`
	Description       string        `json:"description"`
	Location          *locationBody `json:"location,omitempty"`
	EstimatedDelivery *time.Time    `json:"estimated_delivery,omitempty"`
}

type locationRequest struct {
	locationBody
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

type deliverRequest struct {
	Notes string `json:"notes"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type listResponse struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ListOrders returns a page of orders, newest first, optionally filtered by status.
func ListOrders(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := orders.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listResponse{Orders: list.Orders, NextCursor: list.NextCursor})
	}
}

func GetOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, orderIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderTracking returns the tracking history, newest first.
func OrderTracking(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, orderIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "tracking": history})
	}
}

// TransitionOrder moves an order along the delivery lifecycle. Illegal moves
// come back as STATE_CONFLICT.
func TransitionOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, orderIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		input := orders.TransitionInput{
			OrderID:           orderID,
			Status:            status,
			Description:       validators.SanitizeString(req.Description, maxDescriptionLength),
			EstimatedDelivery: req.EstimatedDelivery,
		}
		if req.Location != nil {
			input.Location = req.Location.toTracking()
		}

		order, err := svc.Transition(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateOrderLocation records a courier position, moving the order to delivering.
func UpdateOrderLocation(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, orderIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req locationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateLocation(r.Context(), orderID, *req.locationBody.toTracking(), req.EstimatedDelivery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func DeliverOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, orderIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliverRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.MarkDelivered(r.Context(), orderID, validators.SanitizeString(req.Notes, maxDescriptionLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathID(r, orderIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), orderID, validators.SanitizeString(req.Reason, maxDescriptionLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func (l locationBody) toTracking() *types.TrackingLocation {
	return &types.TrackingLocation{
		Lat:     l.Lat,
		Lng:     l.Lng,
		Address: strings.TrimSpace(l.Address),
	}
}
