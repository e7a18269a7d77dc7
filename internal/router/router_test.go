package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apartment-management/internal/handler"
	"github.com/iliyamo/apartment-management/internal/middleware"
	"github.com/iliyamo/apartment-management/internal/model"
	"github.com/iliyamo/apartment-management/internal/service"
	"github.com/iliyamo/apartment-management/internal/testutil"
	"github.com/iliyamo/apartment-management/internal/validator"
)

type server struct {
	e      *echo.Echo
	users  *testutil.Users
	events *testutil.Events
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := testutil.NewUsers()
	apartments := testutil.NewApartments()
	events := &testutil.Events{}
	auth := service.NewAuthService(users, testutil.Tokens(), log)

	e := echo.New()
	e.HTTPErrorHandler = middleware.NewErrorHandler(log).HandleHTTPError
	e.Validator = validator.New()
	Register(e, Deps{
		Auth:          handler.NewAuthHandler(auth, true),
		Apartments:    handler.NewApartmentHandler(apartments),
		Visitors:      handler.NewVisitorHandler(testutil.NewVisitors(apartments), events, log),
		Maintenance:   handler.NewMaintenanceHandler(testutil.NewMaintenance(apartments)),
		Payments:      handler.NewPaymentHandler(testutil.NewPayments(apartments), apartments),
		Announcements: handler.NewAnnouncementHandler(testutil.NewAnnouncements(), nil, log),
		Gate:          middleware.AuthGate(auth),
	})
	return &server{e: e, users: users, events: events}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

func (s *server) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type session struct {
	ID      uint64
	Access  string
	Refresh string
}

func (s *server) registerAndLogin(t *testing.T, username, email, role string) session {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/register", map[string]string{
		"username": username, "fullName": username + " Example", "email": email, "password": "Secret1", "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodPost, "/login", map[string]string{"username": username, "password": "Secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		User         model.SanitizedUser `json:"user"`
		AccessToken  string              `json:"accessToken"`
		RefreshToken string              `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return session{ID: data.User.ID, Access: data.AccessToken, Refresh: data.RefreshToken}
}

func TestRegisterLoginScenario(t *testing.T) {
	s := newServer(t)

	rec, env := s.do(t, http.MethodPost, "/register", map[string]string{
		"username": "alice", "fullName": "Alice A", "email": "a@x.com", "password": "Secret1", "role": "tenant",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "Secret1")
	assert.NotContains(t, string(env.Data), "refresh")
	assert.Nil(t, cookieNamed(rec, "accessToken"))

	rec, env = s.do(t, http.MethodPost, "/register", map[string]string{
		"username": "alice2", "fullName": "Alice B", "email": "a@x.com", "password": "Secret1", "role": "tenant",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusConflict, env.StatusCode)

	rec, _ = s.do(t, http.MethodPost, "/register", map[string]string{"username": "bob", "email": "b@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{"email": "ghost@x.com", "password": "Secret1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{"password": "Secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/login", map[string]string{"email": "A@X.COM", "password": "Secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, string(env.Data), "Secret1")

	access := cookieNamed(rec, "accessToken")
	refresh := cookieNamed(rec, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	for _, c := range []*http.Cookie{access, refresh} {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
	}
	assert.Equal(t, 15*60, access.MaxAge)
	assert.Equal(t, 7*24*60*60, refresh.MaxAge)
	assert.Equal(t, refresh.Value, *s.users.StoredRefreshToken(1))
}

func TestApartmentRoleGate(t *testing.T) {
	s := newServer(t)
	tenant := s.registerAndLogin(t, "alice", "a@x.com", "tenant")
	manager := s.registerAndLogin(t, "mgr", "m@x.com", "manager")

	body := map[string]any{"number": "101", "building": "A", "rent": 1000, "area": 500, "societyName": "Greenview"}

	rec, _ := s.do(t, http.MethodPost, "/apartments", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/apartments", body, bearer(tenant.Access))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/apartments", body, bearer(manager.Access))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var apt model.Apartment
	require.NoError(t, json.Unmarshal(env.Data, &apt))
	assert.Equal(t, model.ApartmentVacant, apt.Status)
	assert.Equal(t, "Greenview", apt.SocietyName)
	assert.Equal(t, []string{}, apt.Amenities)

	rec, _ = s.do(t, http.MethodPost, "/apartments", body, withCookie("accessToken", manager.Access))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/apartments", map[string]any{"number": "102", "building": "A", "status": "sold"}, bearer(manager.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, env.Errors)
}

func TestRefreshRotation(t *testing.T) {
	s := newServer(t)
	sess := s.registerAndLogin(t, "alice", "a@x.com", "tenant")

	rec, env := s.do(t, http.MethodPost, "/refresh-token", nil, withCookie("refreshToken", sess.Refresh))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEqual(t, sess.Refresh, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, cookieNamed(rec, "refreshToken").Value)

	// replaying the superseded token fails, from the body as well
	rec, _ = s.do(t, http.MethodPost, "/refresh-token", map[string]string{"refreshToken": sess.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/refresh-token", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/refresh-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	s := newServer(t)
	sess := s.registerAndLogin(t, "alice", "a@x.com", "tenant")

	rec, _ := s.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/logout", nil, bearer(sess.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieNamed(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.True(t, c.MaxAge < 0)
	}
	assert.Nil(t, s.users.StoredRefreshToken(sess.ID))

	// logging out twice is fine
	rec, _ = s.do(t, http.MethodPost, "/logout", nil, bearer(sess.Access))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/refresh-token", map[string]string{"refreshToken": sess.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeAndChangePassword(t *testing.T) {
	s := newServer(t)
	sess := s.registerAndLogin(t, "alice", "a@x.com", "tenant")

	rec, env := s.do(t, http.MethodGet, "/me", nil, bearer(sess.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.SanitizedUser
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.Username)

	rec, _ = s.do(t, http.MethodPost, "/change-password", map[string]string{"oldPassword": "nope", "newPassword": "Another1"}, bearer(sess.Access))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/change-password", map[string]string{"oldPassword": "Secret1", "newPassword": "Another1"}, bearer(sess.Access))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "Secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "Another1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVisitors(t *testing.T) {
	s := newServer(t)
	tenant := s.registerAndLogin(t, "alice", "a@x.com", "tenant")
	manager := s.registerAndLogin(t, "mgr", "m@x.com", "manager")

	rec, _ := s.do(t, http.MethodPost, "/apartments",
		map[string]any{"number": "101", "building": "A", "rent": 1000, "area": 500, "societyName": "Greenview"}, bearer(manager.Access))
	require.Equal(t, http.StatusCreated, rec.Code)

	visitor := map[string]any{
		"name": "Bob", "purpose": "delivery", "status": "upcoming", "apartmentId": 1,
		"expectedAt": "2026-03-01T10:00:00Z", "contactNumber": "555-0100",
	}
	rec, env := s.do(t, http.MethodPost, "/visitors", visitor, bearer(tenant.Access))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v model.Visitor
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.False(t, v.PendingApproval)

	visitor["apartmentId"] = 99
	rec, _ = s.do(t, http.MethodPost, "/visitors", visitor, bearer(tenant.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/visitors/1", nil, bearer(tenant.Access))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/visitors/1", nil, bearer(manager.Access))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/visitors/1", nil, bearer(manager.Access))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/visitors/abc", nil, bearer(manager.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	published := s.events.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "visitor.registered", published[0].Type)
	assert.Equal(t, "visitor.removed", published[1].Type)
	assert.Equal(t, manager.ID, published[1].ActorID)
}

func TestMaintenancePaymentsAnnouncements(t *testing.T) {
	s := newServer(t)
	tenant := s.registerAndLogin(t, "alice", "a@x.com", "tenant")
	manager := s.registerAndLogin(t, "mgr", "m@x.com", "manager")

	rec, _ := s.do(t, http.MethodPost, "/apartments",
		map[string]any{"number": "101", "building": "A", "rent": 1000, "area": 500, "societyName": "Greenview"}, bearer(manager.Access))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/maintenance-requests", map[string]any{"apartmentId": 1, "description": "leaking tap"}, bearer(tenant.Access))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m model.MaintenanceRequest
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, model.MaintenancePending, m.Status)
	assert.Equal(t, tenant.ID, m.TenantID)

	rec, _ = s.do(t, http.MethodPatch, "/maintenance-requests/1/status", map[string]string{"status": "completed"}, bearer(tenant.Access))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodPatch, "/maintenance-requests/1/status", map[string]string{"status": "fixed"}, bearer(manager.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodPatch, "/maintenance-requests/1/status", map[string]string{"status": "completed"}, bearer(manager.Access))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodPatch, "/maintenance-requests/9/status", map[string]string{"status": "completed"}, bearer(manager.Access))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/payments", map[string]any{"apartmentId": 1, "tenantId": tenant.ID, "amount": 0, "type": "rent"}, bearer(manager.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/payments", map[string]any{"apartmentId": 1, "tenantId": tenant.ID, "amount": 1000, "type": "rent"}, bearer(manager.Access))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = s.do(t, http.MethodGet, "/apartments/1/payments", nil, bearer(manager.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []model.Payment
	require.NoError(t, json.Unmarshal(env.Data, &payments))
	assert.Len(t, payments, 1)
	rec, _ = s.do(t, http.MethodGet, "/apartments/7/payments", nil, bearer(manager.Access))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/announcements", map[string]any{"title": "Water outage", "content": "Tuesday 9-12"}, bearer(tenant.Access))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/announcements", map[string]any{"title": "Water outage", "content": "Tuesday 9-12", "important": true}, bearer(manager.Access))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/announcements", nil, bearer(tenant.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Announcement
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, manager.ID, list[0].CreatedBy)

	rec, _ = s.do(t, http.MethodGet, "/announcements?limit=-1", nil, bearer(tenant.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newServer(t)

	rec, env := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = s.do(t, http.MethodGet, "/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestRefreshWithUnreadableBodyIsUnauthorized(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(`{not json`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestOverlongInputIsRejected(t *testing.T) {
	s := newServer(t)
	long := strings.Repeat("x", 80)

	rec, _ := s.do(t, http.MethodPost, "/register", map[string]string{
		"username": "carol", "fullName": "Carol C", "email": "c@x.com", "password": long, "role": "tenant",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodPost, "/register", map[string]string{
		"username": strings.Repeat("u", 65), "fullName": "Carol C", "email": "c@x.com", "password": "Secret1", "role": "tenant",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	sess := s.registerAndLogin(t, "alice", "a@x.com", "tenant")
	rec, _ = s.do(t, http.MethodPost, "/change-password", map[string]string{"oldPassword": "Secret1", "newPassword": long}, bearer(sess.Access))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "Secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
