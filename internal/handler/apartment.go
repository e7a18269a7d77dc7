package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/repository"
)

// ApartmentStore is implemented by *repository.ApartmentRepo.
type ApartmentStore interface {
	ExistsByNumberBuilding(ctx context.Context, number, building string) (bool, error)
	Create(ctx context.Context, a *model.Apartment) error
	GetByID(ctx context.Context, id uint64) (*model.Apartment, error)
}

// ApartmentHandler serves apartment records.
type ApartmentHandler struct {
	Apartments ApartmentStore
}

func NewApartmentHandler(s ApartmentStore) *ApartmentHandler { return &ApartmentHandler{Apartments: s} }

type createApartmentReq struct {
	Number              string     `json:"number" validate:"notblank,max=32"`
	Building            string     `json:"building" validate:"notblank,max=64"`
	Rent                *float64   `json:"rent" validate:"required,gte=0"`
	Area                *float64   `json:"area" validate:"required,gt=0"`
	Amenities           []string   `json:"amenities"`
	SocietyName         string     `json:"societyName" validate:"notblank,max=128"`
	OwnerID             *uint64    `json:"ownerId"`
	TenantID            *uint64    `json:"tenantId"`
	Status              string     `json:"status" validate:"omitempty,oneof=vacant occupied"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate"`
}

// Create handles POST /apartments (manager only).
func (h *ApartmentHandler) Create(c echo.Context) error {
	var req createApartmentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a := &model.Apartment{
		Number:              strings.TrimSpace(req.Number),
		Building:            strings.TrimSpace(req.Building),
		TenantID:            req.TenantID,
		OwnerID:             req.OwnerID,
		Rent:                *req.Rent,
		Status:              model.ApartmentStatus(req.Status),
		Area:                *req.Area,
		Amenities:           trimAll(req.Amenities),
		LastMaintenanceDate: req.LastMaintenanceDate,
		SocietyName:         strings.TrimSpace(req.SocietyName),
	}
	if a.Status == "" {
		a.Status = model.ApartmentVacant
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	exists, err := h.Apartments.ExistsByNumberBuilding(ctx, a.Number, a.Building)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Conflict("Apartment already exists in this building")
	}
	switch err := h.Apartments.Create(ctx, a); {
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("Apartment already exists in this building")
	case errors.Is(err, repository.ErrReferenceNotFound):
		return apperr.Validation("owner or tenant does not exist")
	case err != nil:
		return err
	}
	return respond(c, http.StatusCreated, a, "Apartment created successfully")
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
