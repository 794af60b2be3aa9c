package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/nsvirk/hrassistapi/internal/security"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
)

// RememberMeService is the credential vault behind auto-login.
// The raw token is a bearer secret; only its hash is stored.
type RememberMeService struct {
	repo    repository.RememberMeRepository
	NowFunc func() time.Time
}

// NewRememberMeService creates a vault over repo
func NewRememberMeService(repo repository.RememberMeRepository) *RememberMeService {
	return &RememberMeService{
		repo:    repo,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a token for the device, replacing any previous one for the same
// (username, device_fingerprint). The raw token is returned once and never stored.
func (s *RememberMeService) Issue(ctx context.Context, username, fingerprint, password string) (string, error) {
	if username == "" || fingerprint == "" {
		return "", fmt.Errorf("%w: username and device fingerprint are required", apperr.ErrMalformedInput)
	}

	raw, err := security.NewToken()
	if err != nil {
		return "", err
	}
	sealed, err := security.SealPassword(password, raw, security.Binding{Username: username, DeviceFingerprint: fingerprint})
	if err != nil {
		return "", fmt.Errorf("seal password: %w", err)
	}

	token := &models.RememberMeTokenModel{
		Username:          username,
		DeviceFingerprint: fingerprint,
		TokenHash:         security.HashToken(raw),
		EncryptedPassword: sealed,
		CreatedAt:         s.NowFunc(),
	}
	if err := s.repo.Upsert(ctx, token); err != nil {
		return "", fmt.Errorf("store remember-me token: %w", err)
	}
	return raw, nil
}

// Resolve returns the credentials sealed under raw for this device.
// Every failure, storage errors aside, is apperr.ErrInvalidToken.
func (s *RememberMeService) Resolve(ctx context.Context, raw, fingerprint string) (string, string, error) {
	if raw == "" || fingerprint == "" {
		return "", "", apperr.ErrInvalidToken
	}

	hash := security.HashToken(raw)
	token, err := s.repo.GetByHash(ctx, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", "", apperr.ErrInvalidToken
	}
	if err != nil {
		return "", "", fmt.Errorf("lookup remember-me token: %w", err)
	}
	if !security.EqualHash(token.TokenHash, hash) ||
		subtle.ConstantTimeCompare([]byte(token.DeviceFingerprint), []byte(fingerprint)) != 1 {
		return "", "", apperr.ErrInvalidToken
	}

	password, err := security.OpenPassword(token.EncryptedPassword, raw,
		security.Binding{Username: token.Username, DeviceFingerprint: token.DeviceFingerprint})
	if err != nil {
		return "", "", apperr.ErrInvalidToken
	}

	if err := s.repo.TouchLastUsed(ctx, hash, s.NowFunc()); err != nil {
		zaplogger.Warn("remember-me last_used_at not updated", zaplogger.Fields{
			"username": token.Username,
			"error":    err.Error(),
		})
	}
	return token.Username, password, nil
}

// Check reports whether any token exists for the device
func (s *RememberMeService) Check(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	return s.repo.ExistsForDevice(ctx, fingerprint)
}

// Revoke deletes the token for the device, or every token of the user when
// fingerprint is empty. Revoking nothing is not an error.
func (s *RememberMeService) Revoke(ctx context.Context, username, fingerprint string) (int64, error) {
	if username == "" {
		return 0, nil
	}
	if fingerprint == "" {
		return s.repo.DeleteAllForUser(ctx, username)
	}
	return s.repo.Delete(ctx, username, fingerprint)
}

// SweepIdle deletes tokens unused for longer than idle. A zero idle disables the sweep.
func (s *RememberMeService) SweepIdle(ctx context.Context, idle time.Duration) (int64, error) {
	if idle <= 0 {
		return 0, nil
	}
	return s.repo.DeleteIdle(ctx, s.NowFunc().Add(-idle))
}
