package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator validates credentials against the identity provider
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// StaticAuthenticator checks passwords against a fixed set of bcrypt hashes
type StaticAuthenticator struct {
	users map[string][]byte
	dummy []byte
}

// NewStaticAuthenticator parses "user:bcrypthash,user2:bcrypthash"
func NewStaticAuthenticator(users string) (*StaticAuthenticator, error) {
	a := &StaticAuthenticator{users: make(map[string][]byte)}
	for _, entry := range strings.Split(users, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, hash, ok := strings.Cut(entry, ":")
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("invalid user entry %q, expected user:bcrypthash", entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid bcrypt hash for user %s: %w", user, err)
		}
		a.users[user] = []byte(hash)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a.dummy = dummy
	return a, nil
}

// Authenticate returns apperr.ErrInvalidCredentials for an unknown user or a wrong password
func (a *StaticAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	hash, ok := a.users[username]
	if !ok {
		// same cost as a real comparison
		_ = bcrypt.CompareHashAndPassword(a.dummy, []byte(password))
		return apperr.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return apperr.ErrInvalidCredentials
	}
	return nil
}

// Claims is the payload of the auth cookie
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs and verifies auth cookies
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	NowFunc func() time.Time
}

// NewTokenService creates an HS256 token service
func NewTokenService(secret string, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  issuer,
		NowFunc: time.Now,
	}
}

// Issue returns a signed token for username and its expiry
func (t *TokenService) Issue(username string) (string, time.Time, error) {
	now := t.NowFunc()
	expiresAt := now.Add(t.ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the username of a valid token
func (t *TokenService) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.NowFunc),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", apperr.ErrInvalidToken
	}
	return claims.Subject, nil
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Username        string    `json:"username"`
	ExpiresAt       time.Time `json:"expires_at"`
	RememberMeToken string    `json:"remember_me_token,omitempty"`
	Token           string    `json:"-"`
}

// AuthService ties the identity provider, the auth cookie and the remember-me vault together
type AuthService struct {
	authenticator Authenticator
	tokens        *TokenService
	vault         *RememberMeService
}

// NewAuthService creates an AuthService
func NewAuthService(authenticator Authenticator, tokens *TokenService, vault *RememberMeService) *AuthService {
	return &AuthService{authenticator: authenticator, tokens: tokens, vault: vault}
}

// Login checks credentials and, when rememberMe is set, issues a device token.
// A vault failure does not fail the login.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool, fingerprint string) (*LoginResult, error) {
	if err := s.authenticator.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}
	result, err := s.session(username)
	if err != nil {
		return nil, err
	}

	if rememberMe && fingerprint != "" {
		raw, err := s.vault.Issue(ctx, username, fingerprint, password)
		if err != nil {
			zaplogger.Error("remember-me token not issued", zaplogger.Fields{
				"username": username,
				"error":    err.Error(),
			})
		} else {
			result.RememberMeToken = raw
		}
	}
	return result, nil
}

// AutoLogin resolves a remember-me token and re-checks the recovered credentials.
// A token whose password no longer authenticates is revoked.
func (s *AuthService) AutoLogin(ctx context.Context, raw, fingerprint string) (*LoginResult, error) {
	username, password, err := s.vault.Resolve(ctx, raw, fingerprint)
	if err != nil {
		return nil, err
	}
	if err := s.authenticator.Authenticate(ctx, username, password); err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			if _, revokeErr := s.vault.Revoke(ctx, username, fingerprint); revokeErr != nil {
				zaplogger.Warn("stale remember-me token not revoked", zaplogger.Fields{
					"username": username,
					"error":    revokeErr.Error(),
				})
			}
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	return s.session(username)
}

// RememberMeAvailable reports whether the device has a stored token
func (s *AuthService) RememberMeAvailable(ctx context.Context, fingerprint string) (bool, error) {
	return s.vault.Check(ctx, fingerprint)
}

// Logout revokes the device token, or all of the user's tokens without a fingerprint
func (s *AuthService) Logout(ctx context.Context, username, fingerprint string) error {
	_, err := s.vault.Revoke(ctx, username, fingerprint)
	return err
}

// VerifyToken returns the username carried by an auth cookie
func (s *AuthService) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) session(username string) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Username: username, Token: token, ExpiresAt: expiresAt}, nil
}
