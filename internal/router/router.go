// Package router registers every HTTP route and the middleware each one
// needs.  Middleware is attached per route instead of through root groups so
// that unknown paths still answer 404 rather than 401.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apartment-management/internal/handler"
	"github.com/iliyamo/apartment-management/internal/middleware"
	"github.com/iliyamo/apartment-management/internal/model"
)

// Deps bundles the handlers and shared middleware the route tables need.
type Deps struct {
	DB            handler.Pinger
	Auth          *handler.AuthHandler
	Apartments    *handler.ApartmentHandler
	Visitors      *handler.VisitorHandler
	Maintenance   *handler.MaintenanceHandler
	Payments      *handler.PaymentHandler
	Announcements *handler.AnnouncementHandler

	Gate      echo.MiddlewareFunc // Auth Gate
	RateLimit echo.MiddlewareFunc // credential endpoints
	Cache     echo.MiddlewareFunc // read-mostly listings
}

// Register installs every route.
func Register(e *echo.Echo, d Deps) {
	if d.RateLimit == nil {
		d.RateLimit = passthrough
	}
	if d.Cache == nil {
		d.Cache = passthrough
	}
	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d)
	RegisterResident(e, d)
	RegisterManager(e, d)
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account and session endpoints.  Register,
// login and refresh are rate limited; the rest sit behind the Auth Gate.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := d.Auth
	e.POST("/register", a.Register, d.RateLimit)
	e.GET("/login", a.Login, d.RateLimit)
	e.POST("/login", a.Login, d.RateLimit)
	e.POST("/refresh-token", a.RefreshToken, d.RateLimit)

	e.POST("/logout", a.Logout, d.Gate)
	e.GET("/me", a.Me, d.Gate)
	e.POST("/change-password", a.ChangePassword, d.Gate, d.RateLimit)
}

// RegisterResident registers endpoints open to any authenticated account.
func RegisterResident(e *echo.Echo, d Deps) {
	e.POST("/visitors", d.Visitors.Create, d.Gate)
	e.POST("/maintenance-requests", d.Maintenance.Create, d.Gate)
	e.GET("/announcements", d.Announcements.List, d.Gate, d.Cache)
}

// RegisterManager registers endpoints restricted to managers.
func RegisterManager(e *echo.Echo, d Deps) {
	manager := middleware.RequireRole(model.RoleManager)

	e.POST("/apartments", d.Apartments.Create, d.Gate, manager)
	e.GET("/apartments/:id/payments", d.Payments.ListByApartment, d.Gate, manager)
	e.DELETE("/visitors/:id", d.Visitors.Delete, d.Gate, manager)
	e.PATCH("/maintenance-requests/:id/status", d.Maintenance.UpdateStatus, d.Gate, manager)
	e.POST("/payments", d.Payments.Create, d.Gate, manager)
	e.POST("/announcements", d.Announcements.Create, d.Gate, manager)
}
