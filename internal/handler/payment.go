package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/repository"
)

// PaymentStore is implemented by *repository.PaymentRepo.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	ListByApartment(ctx context.Context, apartmentID uint64) ([]*model.Payment, error)
}

// PaymentHandler serves the payment ledger.
type PaymentHandler struct {
	Payments   PaymentStore
	Apartments ApartmentStore
}

func NewPaymentHandler(p PaymentStore, a ApartmentStore) *PaymentHandler {
	return &PaymentHandler{Payments: p, Apartments: a}
}

type createPaymentReq struct {
	ApartmentID uint64     `json:"apartmentId" validate:"required"`
	TenantID    uint64     `json:"tenantId" validate:"required"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Date        *time.Time `json:"date"`
	Type        string     `json:"type" validate:"required,oneof=rent maintenance"`
}

// Create handles POST /payments (manager only).  Date defaults to now.
func (h *PaymentHandler) Create(c echo.Context) error {
	var req createPaymentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p := &model.Payment{
		ApartmentID: req.ApartmentID,
		TenantID:    req.TenantID,
		Amount:      req.Amount,
		Type:        model.PaymentType(req.Type),
		Date:        time.Now().UTC(),
	}
	if req.Date != nil {
		p.Date = req.Date.UTC()
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	err := h.Payments.Create(ctx, p)
	if errors.Is(err, repository.ErrReferenceNotFound) {
		return apperr.Validation("apartment or tenant does not exist")
	}
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, p, "Payment recorded successfully")
}

// ListByApartment handles GET /apartments/:id/payments (manager only).
func (h *PaymentHandler) ListByApartment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if _, err := h.Apartments.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Apartment not found")
		}
		return err
	}
	out, err := h.Payments.ListByApartment(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, out, "Payments fetched successfully")
}
