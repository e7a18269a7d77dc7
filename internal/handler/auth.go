package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apartment-management/internal/apperr"
	"github.com/iliyamo/apartment-management/internal/middleware"
	"github.com/iliyamo/apartment-management/internal/service"
)

const refreshTokenCookie = "refreshToken"

// AuthHandler serves the account and session endpoints.
type AuthHandler struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func NewAuthHandler(svc *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, CookieSecure: cookieSecure}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"max=64"`
	FullName string `json:"fullName" validate:"max=128"`
	Email    string `json:"email" validate:"max=255"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"notblank,min=6,max=72"`
}

type loginResp struct {
	User         any    `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type tokensResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ----- cookies -----

func (h *AuthHandler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) setAuthCookies(c echo.Context, access, refresh string) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, access, h.Svc.Tokens().AccessTTL()))
	c.SetCookie(h.cookie(refreshTokenCookie, refresh, h.Svc.Tokens().RefreshTTL()))
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		ck := h.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

// ----- endpoints -----

// Register creates an account.  No tokens are issued; the client logs in next.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, u, "User registered successfully")
}

// Login accepts a username or an email with the password, sets both auth
// cookies and returns the tokens in the body as well.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Svc.Login(ctx, service.LoginInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	h.setAuthCookies(c, res.AccessToken.Token, res.RefreshToken.Token)
	return respond(c, http.StatusOK, loginResp{
		User:         res.User,
		AccessToken:  res.AccessToken.Token,
		RefreshToken: res.RefreshToken.Token,
	}, "User logged in successfully")
}

// Logout ends the current session and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, uid); err != nil {
		return err
	}
	h.clearAuthCookies(c)
	return respond(c, http.StatusOK, nil, "User logged out successfully")
}

// RefreshToken rotates the refresh token found in the refreshToken cookie or
// in the request body.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var presented string
	if ck, err := c.Cookie(refreshTokenCookie); err == nil {
		presented = strings.TrimSpace(ck.Value)
	}
	if presented == "" {
		// an unreadable body counts as no token presented
		var req refreshReq
		if err := c.Bind(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	pair, err := h.Svc.Rotate(ctx, presented)
	if err != nil {
		return err
	}
	h.setAuthCookies(c, pair.Access.Token, pair.Refresh.Token)
	return respond(c, http.StatusOK, tokensResp{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
	}, "New access and refresh token generated successfully")
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.Unauthorized("unauthorized request")
	}
	return respond(c, http.StatusOK, u, "Current user fetched successfully")
}

// ChangePassword replaces the password and ends the session; the client has
// to log in again with the new password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, uid, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	h.clearAuthCookies(c)
	return respond(c, http.StatusOK, nil, "Password changed successfully")
}
