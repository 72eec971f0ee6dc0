// Package service — the state-synchronization layer of the account area.
// SessionManager owns the authentication token lifecycle; every other
// service reaches the backend through it.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var sessionTracer = otel.Tracer("service/session")

// defaultExpiryMargin is how close to expiry a token may be before Token
// refreshes it proactively. It absorbs clock skew against the provider.
const defaultExpiryMargin = 30 * time.Second

// SessionListener receives session lifecycle events. Listeners run on the
// publishing goroutine; a panicking listener is logged and isolated.
type SessionListener func(domain.SessionEvent)

// SessionManager owns the session: acquisition, passive read, forced
// refresh, and change notification. Concurrent refresh requests collapse
// into one provider call so a rotated refresh token is never reused.
type SessionManager struct {
	provider port.AuthProvider
	metrics  *observability.Metrics
	logger   *zap.Logger
	margin   time.Duration

	mu      sync.Mutex
	session *domain.Session
	nextID  int
	subs    map[int]SessionListener

	refreshGroup singleflight.Group
}

// NewSessionManager creates a session manager in the signed-out state.
func NewSessionManager(provider port.AuthProvider, metrics *observability.Metrics, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		margin:   defaultExpiryMargin,
		subs:     make(map[int]SessionListener),
	}
}

// SignIn authenticates and publishes the signed-in event.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.SignIn")
	defer span.End()

	session, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.logger.Info("signed in", zap.String("user_id", session.UserID))
	m.metrics.IncrSessionEvent(string(domain.SessionSignedIn))
	m.publish(domain.SessionEvent{Kind: domain.SessionSignedIn, Session: session, At: time.Now()})

	return session, nil
}

// SignUp forwards registration to the provider. The account stays in
// pending-confirmation; no session is created here.
func (m *SessionManager) SignUp(ctx context.Context, req *domain.SignUpRequest) error {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.SignUp")
	defer span.End()

	return m.provider.SignUp(ctx, req)
}

// ForgotPassword forwards a recovery request to the provider.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) error {
	return m.provider.ForgotPassword(ctx, email)
}

// Session returns a copy of the current session, or nil when signed out.
func (m *SessionManager) Session() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// Token returns an access token guaranteed unexpired at call time,
// refreshing first when the cached one is expired or about to expire.
func (m *SessionManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session == nil {
		return "", &domain.ErrAuthExpired{Reason: "not signed in"}
	}
	if !session.Expired(m.margin) {
		return session.AccessToken, nil
	}

	refreshed, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Refresh forces a token refresh. Concurrent callers collapse into a
// single provider call and all observe the same result. A definitive
// provider rejection destroys the session; transient failures leave it
// in place so the user can retry.
func (m *SessionManager) Refresh(ctx context.Context) (*domain.Session, error) {
	result, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		ctx, span := sessionTracer.Start(ctx, "SessionManager.Refresh")
		defer span.End()

		m.mu.Lock()
		session := m.session
		m.mu.Unlock()

		if session == nil {
			return nil, &domain.ErrAuthExpired{Reason: "not signed in"}
		}

		fresh, err := m.provider.RefreshSession(ctx, session.RefreshToken)
		if err != nil {
			var unauthorized *domain.ErrUnauthorized
			if errors.As(err, &unauthorized) {
				m.logger.Warn("session refresh rejected, signing out", zap.Error(err))
				m.signOut(ctx)
				return nil, &domain.ErrAuthExpired{Reason: "refresh rejected"}
			}
			m.logger.Warn("session refresh failed", zap.Error(err))
			return nil, err
		}

		m.mu.Lock()
		m.session = fresh
		m.mu.Unlock()

		m.metrics.IncrSessionEvent(string(domain.SessionTokenRefresh))
		m.publish(domain.SessionEvent{Kind: domain.SessionTokenRefresh, Session: fresh, At: time.Now()})

		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Session), nil
}

// SignOut invalidates the session and notifies listeners with a nil
// session. Calling it while already signed out is a no-op.
func (m *SessionManager) SignOut(ctx context.Context) {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.SignOut")
	defer span.End()

	m.signOut(ctx)
}

func (m *SessionManager) signOut(ctx context.Context) {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session == nil {
		return
	}

	// Best effort: a dead token must not block local sign-out.
	if err := m.provider.SignOut(ctx, session.AccessToken); err != nil {
		m.logger.Warn("provider sign-out failed", zap.Error(err))
	}

	m.logger.Info("signed out", zap.String("user_id", session.UserID))
	m.metrics.IncrSessionEvent(string(domain.SessionSignedOut))
	m.publish(domain.SessionEvent{Kind: domain.SessionSignedOut, At: time.Now()})
}

// Subscribe registers a listener for session events and returns its
// unsubscribe function. Each UI surface holds its own subscription.
func (m *SessionManager) Subscribe(fn SessionListener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// publish delivers an event to every listener, isolating panics so one
// broken surface cannot take down the others.
func (m *SessionManager) publish(event domain.SessionEvent) {
	m.mu.Lock()
	listeners := make([]SessionListener, 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("session listener panicked", zap.Any("panic", r))
				}
			}()
			fn(event)
		}()
	}
}
