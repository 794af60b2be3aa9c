package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/pkg/utils/response"
)

const (
	// AuthCookieName carries the signed session token
	AuthCookieName = "hr_auth"
	// UsernameKey is the context key set by AuthMiddleware
	UsernameKey = "username"
)

// TokenVerifier resolves an auth token to a username
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthMiddleware accepts the auth cookie or an `Authorization: Bearer` header
func AuthMiddleware(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthorizationException, "Missing auth token")
			}

			username, err := tokens.VerifyToken(token)
			if err != nil {
				return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthorizationException, "Invalid or expired session, please log in")
			}

			c.Set(UsernameKey, username)
			return next(c)
		}
	}
}

// TokenFromRequest returns the cookie token, falling back to the bearer header
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Username returns the authenticated user set by AuthMiddleware
func Username(c echo.Context) string {
	username, _ := c.Get(UsernameKey).(string)
	return username
}
