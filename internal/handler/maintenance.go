package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/repository"
)

// MaintenanceStore is implemented by *repository.MaintenanceRepo.
type MaintenanceStore interface {
	Create(ctx context.Context, m *model.MaintenanceRequest) error
	UpdateStatus(ctx context.Context, id uint64, status model.MaintenanceStatus) (*model.MaintenanceRequest, error)
}

// MaintenanceHandler serves maintenance requests.
type MaintenanceHandler struct {
	Requests MaintenanceStore
}

func NewMaintenanceHandler(s MaintenanceStore) *MaintenanceHandler {
	return &MaintenanceHandler{Requests: s}
}

type createMaintenanceReq struct {
	ApartmentID uint64 `json:"apartmentId" validate:"required"`
	Description string `json:"description" validate:"notblank"`
}

type updateMaintenanceStatusReq struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed denied"`
}

// Create handles POST /maintenance-requests.  The caller is recorded as the
// tenant and the request starts out pending.
func (h *MaintenanceHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	var req createMaintenanceReq
	if err := bind(c, &req); err != nil {
		return err
	}
	m := &model.MaintenanceRequest{
		ApartmentID: req.ApartmentID,
		TenantID:    uid,
		Description: strings.TrimSpace(req.Description),
		Status:      model.MaintenancePending,
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	err = h.Requests.Create(ctx, m)
	if errors.Is(err, repository.ErrReferenceNotFound) {
		return apperr.Validation("apartment does not exist")
	}
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, m, "Maintenance request created successfully")
}

// UpdateStatus handles PATCH /maintenance-requests/:id/status (manager only).
func (h *MaintenanceHandler) UpdateStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateMaintenanceStatusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	m, err := h.Requests.UpdateStatus(ctx, id, model.MaintenanceStatus(req.Status))
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Maintenance request not found")
	}
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, m, "Maintenance request updated successfully")
}
