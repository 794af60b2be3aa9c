package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/internal/api/middleware"
	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/service"
	"github.com/nsvirk/hrassistapi/pkg/utils/response"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username          string `json:"username" form:"username"`
	Password          string `json:"password" form:"password"`
	RememberMe        bool   `json:"remember_me" form:"remember_me"`
	DeviceFingerprint string `json:"device_fingerprint" form:"device_fingerprint"`
}

// RememberMeRequest is the body of POST /auth/remember-me/verify
type RememberMeRequest struct {
	Token             string `json:"token" form:"token"`
	DeviceFingerprint string `json:"device_fingerprint" form:"device_fingerprint"`
}

// LogoutRequest is the optional body of POST /auth/logout
type LogoutRequest struct {
	DeviceFingerprint string `json:"device_fingerprint" form:"device_fingerprint"`
}

// AuthHandler is the handler for login, auto-login and logout
type AuthHandler struct {
	service       *service.AuthService
	secureCookies bool
}

// NewAuthHandler creates a new handler for the auth API
func NewAuthHandler(service *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{service: service, secureCookies: secureCookies}
}

// Login checks the credentials and sets the auth cookie
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`username` is required")
	}
	if req.Password == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`password` is required")
	}

	result, err := h.service.Login(c.Request().Context(), req.Username, req.Password, req.RememberMe, req.DeviceFingerprint)
	if errors.Is(err, apperr.ErrInvalidCredentials) {
		return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthenticationException, "Invalid username or password")
	}
	if err != nil {
		zaplogger.Error("login failed", zaplogger.Fields{"username": req.Username, "error": err.Error()})
		return response.ServerError(c)
	}

	h.setAuthCookie(c, result.Token, result.ExpiresAt)
	return response.SuccessResponse(c, result)
}

// VerifyRememberMe logs the device in with a stored remember-me token
func (h *AuthHandler) VerifyRememberMe(c echo.Context) error {
	var req RememberMeRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}
	if req.Token == "" || req.DeviceFingerprint == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`token` and `device_fingerprint` are required")
	}

	result, err := h.service.AutoLogin(c.Request().Context(), req.Token, req.DeviceFingerprint)
	if errors.Is(err, apperr.ErrInvalidToken) {
		return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthenticationException, "Please log in manually")
	}
	if err != nil {
		zaplogger.Error("auto login failed", zaplogger.Fields{"error": err.Error()})
		return response.ServerError(c)
	}

	h.setAuthCookie(c, result.Token, result.ExpiresAt)
	return response.SuccessResponse(c, result)
}

// RememberMeAvailable reports whether the device has a stored token
func (h *AuthHandler) RememberMeAvailable(c echo.Context) error {
	fingerprint := c.QueryParam("device_fingerprint")
	if fingerprint == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "`device_fingerprint` is required")
	}

	available, err := h.service.RememberMeAvailable(c.Request().Context(), fingerprint)
	if err != nil {
		zaplogger.Error("remember-me check failed", zaplogger.Fields{"error": err.Error()})
		return response.ServerError(c)
	}
	return response.SuccessResponse(c, map[string]bool{"available": available})
}

// Logout revokes the device token and clears the auth cookie.
// Without a device fingerprint every token of the user is revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}

	username := middleware.Username(c)
	if err := h.service.Logout(c.Request().Context(), username, req.DeviceFingerprint); err != nil {
		zaplogger.Error("logout failed", zaplogger.Fields{"username": username, "error": err.Error()})
		return response.ServerError(c)
	}

	h.setAuthCookie(c, "", time.Unix(0, 0))
	return response.SuccessResponse(c, true)
}

// Status reports whether the request carries a valid auth cookie
func (h *AuthHandler) Status(c echo.Context) error {
	status := map[string]interface{}{"authenticated": false}
	if token := middleware.TokenFromRequest(c); token != "" {
		if username, err := h.service.VerifyToken(token); err == nil {
			status["authenticated"] = true
			status["username"] = username
		}
	}
	return response.SuccessResponse(c, status)
}

func (h *AuthHandler) setAuthCookie(c echo.Context, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	c.SetCookie(cookie)
}
