package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ============================================================
// AuthProvider implementation — GoTrue endpoints
// ============================================================

// gotrueSession maps the GoTrue token grant response.
type gotrueSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (g *gotrueSession) toDomain() *domain.Session {
	s := &domain.Session{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		UserID:       g.User.ID,
		Email:        g.User.Email,
	}
	if g.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(g.ExpiresIn) * time.Second)
	}
	// Some deployments omit expires_in or the user object; the access
	// token itself carries exp and sub, so fall back to its claims.
	// The signature is the provider's concern, not ours.
	if s.ExpiresAt.IsZero() || s.UserID == "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(g.AccessToken, claims); err == nil {
			if s.ExpiresAt.IsZero() {
				if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
					s.ExpiresAt = exp.Time
				}
			}
			if s.UserID == "" {
				if sub, err := claims.GetSubject(); err == nil {
					s.UserID = sub
				}
			}
		}
	}
	return s
}

// SignIn authenticates with the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	body := map[string]string{"email": email, "password": password}
	raw, err := c.doWrite(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body)
	if err != nil {
		return nil, c.asAuthError(err, "E-mail ou senha incorretos")
	}

	var gs gotrueSession
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	c.logger.Info("customer signed in", zap.String("user_id", gs.User.ID))
	return gs.toDomain(), nil
}

// SignUp registers a new customer. The account stays pending until the
// confirmation e-mail is clicked, so no session comes back.
func (c *Client) SignUp(ctx context.Context, req *domain.SignUpRequest) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data": map[string]string{
			"name":  req.Name,
			"phone": req.Phone,
		},
	}
	if _, err := c.doWrite(ctx, http.MethodPost, "/auth/v1/signup", "", body); err != nil {
		return err
	}

	c.logger.Info("customer registered, confirmation pending", zap.String("email", req.Email))
	return nil
}

// RefreshSession exchanges a refresh token for a new session. The provider
// rotates the refresh token; reusing the old one afterwards fails.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.RefreshSession")
	defer span.End()

	body := map[string]string{"refresh_token": refreshToken}
	raw, err := c.doWrite(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body)
	if err != nil {
		return nil, c.asAuthError(err, "Sessão expirada")
	}

	var gs gotrueSession
	if err := json.Unmarshal(raw, &gs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return gs.toDomain(), nil
}

// SignOut revokes the session server-side. An already-dead token is fine:
// sign-out is idempotent.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	_, err := c.doWrite(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil)
	if err != nil {
		var unauthorized *domain.ErrUnauthorized
		if errors.As(err, &unauthorized) {
			return nil
		}
		return err
	}
	return nil
}

// ForgotPassword requests a recovery e-mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ForgotPassword")
	defer span.End()

	_, err := c.doWrite(ctx, http.MethodPost, "/auth/v1/recover", "", map[string]string{"email": email})
	return err
}

// asAuthError normalizes GoTrue's 400 invalid_grant answers into the
// unauthorized type the session layer understands.
func (c *Client) asAuthError(err error, msg string) error {
	var rejected *domain.ErrServerRejected
	if errors.As(err, &rejected) && rejected.Status == http.StatusBadRequest {
		return &domain.ErrUnauthorized{Message: msg}
	}
	return err
}
