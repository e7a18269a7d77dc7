package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/queue"
	"github.com/iliyamo/apartment-management/internal/repository"
	"github.com/iliyamo/apartment-management/internal/service"
)

// VisitorStore is implemented by *repository.VisitorRepo.
type VisitorStore interface {
	Create(ctx context.Context, v *model.Visitor) error
	GetByID(ctx context.Context, id uint64) (*model.Visitor, error)
	Delete(ctx context.Context, id uint64) error
}

// VisitorHandler serves the visitor log and announces changes on the broker.
type VisitorHandler struct {
	Visitors VisitorStore
	Events   service.EventPublisher
	Log      *slog.Logger
}

func NewVisitorHandler(s VisitorStore, events service.EventPublisher, log *slog.Logger) *VisitorHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &VisitorHandler{Visitors: s, Events: events, Log: log}
}

type createVisitorReq struct {
	Name            string     `json:"name" validate:"notblank,max=128"`
	Purpose         string     `json:"purpose" validate:"notblank,max=255"`
	Status          string     `json:"status" validate:"required,oneof=upcoming current past pending"`
	ApartmentID     uint64     `json:"apartmentId" validate:"required"`
	ExpectedAt      *time.Time `json:"expectedAt" validate:"required"`
	ContactNumber   string     `json:"contactNumber" validate:"notblank,max=32"`
	ApprovedBy      *uint64    `json:"approvedBy"`
	PendingApproval bool       `json:"pendingApproval"`
	ActualEntryAt   *time.Time `json:"actualEntryAt"`
	ActualExitAt    *time.Time `json:"actualExitAt"`
}

// Create handles POST /visitors.
func (h *VisitorHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	var req createVisitorReq
	if err := bind(c, &req); err != nil {
		return err
	}
	v := &model.Visitor{
		Name:            strings.TrimSpace(req.Name),
		Purpose:         strings.TrimSpace(req.Purpose),
		Status:          model.VisitorStatus(req.Status),
		ApartmentID:     req.ApartmentID,
		ExpectedAt:      req.ExpectedAt.UTC(),
		ActualEntryAt:   req.ActualEntryAt,
		ActualExitAt:    req.ActualExitAt,
		ApprovedBy:      req.ApprovedBy,
		ContactNumber:   strings.TrimSpace(req.ContactNumber),
		PendingApproval: req.PendingApproval,
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	err = h.Visitors.Create(ctx, v)
	if errors.Is(err, repository.ErrReferenceNotFound) {
		return apperr.Validation("apartment or approver does not exist")
	}
	if err != nil {
		return err
	}
	h.publish(ctx, queue.VisitorRegistered, v, uid)
	return respond(c, http.StatusCreated, v, "Visitor logged successfully")
}

// Delete handles DELETE /visitors/:id (manager only).
func (h *VisitorHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	v, err := h.Visitors.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Visitor not found")
	}
	if err != nil {
		return err
	}
	err = h.Visitors.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Visitor not found")
	}
	if err != nil {
		return err
	}
	h.publish(ctx, queue.VisitorRemoved, v, uid)
	return respond(c, http.StatusOK, map[string]uint64{"_id": id}, "Visitor deleted successfully")
}

// publish is best effort: the visitor change is already committed.
func (h *VisitorHandler) publish(ctx context.Context, kind string, v *model.Visitor, actor uint64) {
	ev := queue.NewVisitorEvent(kind, v, actor, time.Now())
	if err := h.Events.PublishVisitorEvent(context.WithoutCancel(ctx), ev); err != nil {
		h.Log.WarnContext(ctx, "visitor event not published", "type", kind, "visitor_id", v.ID, "err", err)
	}
}
