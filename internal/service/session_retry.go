package service

import (
	"context"
	"errors"

	"github.com/gfranca/conta-gateway-go/internal/domain"
)

// WithAuth runs an authenticated operation under the uniform auth policy:
// try once; on a 401, refresh the session exactly once and retry; if the
// retried call is also rejected, sign out and report the session as
// expired so the caller redirects to login instead of showing an error.
//
// The single retry tolerates clock-skew-induced premature 401s without
// masking genuinely dead sessions. Every authenticated read and mutation
// in this system goes through here rather than hand-rolling the pattern.
func (m *SessionManager) WithAuth(ctx context.Context, op func(ctx context.Context, token string) error) error {
	token, err := m.Token(ctx)
	if err != nil {
		return err
	}

	err = op(ctx, token)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		return err
	}

	m.metrics.IncrAuthRetry()
	fresh, refreshErr := m.Refresh(ctx)
	if refreshErr != nil {
		return refreshErr
	}

	err = op(ctx, fresh.AccessToken)
	if errors.As(err, &unauthorized) {
		m.SignOut(ctx)
		return &domain.ErrAuthExpired{Reason: "rejected after refresh"}
	}
	return err
}
