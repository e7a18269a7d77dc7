package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/model"
)

// AnnouncementStore is implemented by *repository.AnnouncementRepo.
type AnnouncementStore interface {
	Create(ctx context.Context, a *model.Announcement) error
	List(ctx context.Context, limit int) ([]*model.Announcement, error)
}

// AnnouncementHandler serves the notice board.  Purge, when set, drops cached
// listings after a new announcement is posted.
type AnnouncementHandler struct {
	Announcements AnnouncementStore
	Purge         func(ctx context.Context) error
	Log           *slog.Logger
}

func NewAnnouncementHandler(s AnnouncementStore, purge func(ctx context.Context) error, log *slog.Logger) *AnnouncementHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AnnouncementHandler{Announcements: s, Purge: purge, Log: log}
}

type createAnnouncementReq struct {
	Title     string `json:"title" validate:"notblank,max=255"`
	Content   string `json:"content" validate:"notblank"`
	Important bool   `json:"important"`
}

const maxAnnouncementLimit = 100

// Create handles POST /announcements (manager only).
func (h *AnnouncementHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	var req createAnnouncementReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a := &model.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		CreatedBy: uid,
		Important: req.Important,
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Announcements.Create(ctx, a); err != nil {
		return err
	}
	if h.Purge != nil {
		if err := h.Purge(ctx); err != nil {
			h.Log.WarnContext(ctx, "announcement cache not purged", "err", err)
		}
	}
	return respond(c, http.StatusCreated, a, "Announcement created successfully")
}

// List handles GET /announcements.  ?limit caps the result (default and
// maximum 100).
func (h *AnnouncementHandler) List(c echo.Context) error {
	limit := maxAnnouncementLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return apperr.Validation("invalid limit")
		}
		if n < limit {
			limit = n
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.Announcements.List(ctx, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, out, "Announcements fetched successfully")
}
