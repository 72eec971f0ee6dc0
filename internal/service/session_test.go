package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"go.uber.org/zap"
)

func newSessionManager(provider *mockAuthProvider) *service.SessionManager {
	return service.NewSessionManager(provider, observability.NewMetrics(), zap.NewNop())
}

func signIn(t *testing.T, m *service.SessionManager) *domain.Session {
	t.Helper()
	s, err := m.SignIn(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return s
}

func TestSignIn_PublishesEvent(t *testing.T) {
	m := newSessionManager(&mockAuthProvider{})

	var events []domain.SessionEvent
	unsub := m.Subscribe(func(e domain.SessionEvent) { events = append(events, e) })
	defer unsub()

	signIn(t, m)

	if len(events) != 1 || events[0].Kind != domain.SessionSignedIn {
		t.Fatalf("expected one signed_in event, got %+v", events)
	}
	if events[0].Session == nil || events[0].Session.UserID != "user-1" {
		t.Errorf("event should carry the session, got %+v", events[0].Session)
	}
}

func TestToken_FreshTokenNoRefresh(t *testing.T) {
	provider := &mockAuthProvider{}
	m := newSessionManager(provider)
	signIn(t, m)

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "access-1" {
		t.Errorf("expected cached token, got %q", token)
	}
	if _, refreshes, _ := provider.calls(); refreshes != 0 {
		t.Errorf("fresh token must not trigger a refresh, got %d", refreshes)
	}
}

func TestToken_ExpiredTriggersRefresh(t *testing.T) {
	provider := &mockAuthProvider{
		signInFn: func(string, string) (*domain.Session, error) {
			s := validSession()
			s.ExpiresAt = time.Now().Add(-time.Minute)
			return s, nil
		},
	}
	m := newSessionManager(provider)
	signIn(t, m)

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "access-2" {
		t.Errorf("expected refreshed token, got %q", token)
	}
}

func TestToken_SignedOut(t *testing.T) {
	m := newSessionManager(&mockAuthProvider{})

	_, err := m.Token(context.Background())
	var expired *domain.ErrAuthExpired
	if !errors.As(err, &expired) {
		t.Fatalf("expected ErrAuthExpired when signed out, got %v", err)
	}
}

func TestRefresh_ConcurrentCallersCollapse(t *testing.T) {
	release := make(chan struct{})
	provider := &mockAuthProvider{
		refreshFn: func(string) (*domain.Session, error) {
			<-release
			s := validSession()
			s.AccessToken = "access-2"
			return s, nil
		},
	}
	m := newSessionManager(provider)
	signIn(t, m)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Refresh(context.Background())
			errs[i] = err
			if s != nil {
				tokens[i] = s.AccessToken
			}
		}(i)
	}

	// Let all callers pile up on the in-flight refresh, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if tokens[i] != "access-2" {
			t.Errorf("caller %d got token %q, want access-2", i, tokens[i])
		}
	}
	if _, refreshes, _ := provider.calls(); refreshes != 1 {
		t.Errorf("expected exactly one provider refresh, got %d", refreshes)
	}
}

func TestRefresh_RejectedDestroysSession(t *testing.T) {
	provider := &mockAuthProvider{
		refreshFn: func(string) (*domain.Session, error) {
			return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
		},
	}
	m := newSessionManager(provider)

	var events []domain.SessionEventKind
	unsub := m.Subscribe(func(e domain.SessionEvent) { events = append(events, e.Kind) })
	defer unsub()

	signIn(t, m)

	_, err := m.Refresh(context.Background())
	var expired *domain.ErrAuthExpired
	if !errors.As(err, &expired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if m.Session() != nil {
		t.Error("session should be destroyed after a rejected refresh")
	}
	if len(events) != 2 || events[1] != domain.SessionSignedOut {
		t.Errorf("expected signed_out after rejected refresh, got %v", events)
	}
}

func TestRefresh_TransientFailureKeepsSession(t *testing.T) {
	provider := &mockAuthProvider{
		refreshFn: func(string) (*domain.Session, error) {
			return nil, &domain.ErrNetwork{Err: errors.New("connection refused")}
		},
	}
	m := newSessionManager(provider)
	signIn(t, m)

	_, err := m.Refresh(context.Background())
	var netErr *domain.ErrNetwork
	if !errors.As(err, &netErr) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if m.Session() == nil {
		t.Error("a transient refresh failure must not destroy the session")
	}
}

func TestSignOut_Idempotent(t *testing.T) {
	provider := &mockAuthProvider{}
	m := newSessionManager(provider)

	var signedOut int
	unsub := m.Subscribe(func(e domain.SessionEvent) {
		if e.Kind == domain.SessionSignedOut {
			signedOut++
		}
	})
	defer unsub()

	signIn(t, m)
	m.SignOut(context.Background())
	m.SignOut(context.Background())

	if signedOut != 1 {
		t.Errorf("expected one signed_out event, got %d", signedOut)
	}
	if _, _, provSignOuts := provider.calls(); provSignOuts != 1 {
		t.Errorf("expected one provider sign-out, got %d", provSignOuts)
	}
}

func TestSignOut_ProviderFailureStillSignsOutLocally(t *testing.T) {
	provider := &mockAuthProvider{
		signOutFn: func(string) error { return errors.New("backend down") },
	}
	m := newSessionManager(provider)
	signIn(t, m)

	m.SignOut(context.Background())

	if m.Session() != nil {
		t.Error("local session must end even when the provider call fails")
	}
}

func TestPublish_PanickingListenerIsIsolated(t *testing.T) {
	m := newSessionManager(&mockAuthProvider{})

	var sawEvent bool
	m.Subscribe(func(domain.SessionEvent) { panic("broken surface") })
	m.Subscribe(func(domain.SessionEvent) { sawEvent = true })

	signIn(t, m)

	if !sawEvent {
		t.Error("a panicking listener must not prevent delivery to the others")
	}
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	m := newSessionManager(&mockAuthProvider{})

	var count int
	unsub := m.Subscribe(func(domain.SessionEvent) { count++ })

	signIn(t, m)
	unsub()
	m.SignOut(context.Background())

	if count != 1 {
		t.Errorf("expected delivery only before unsubscribe, got %d", count)
	}
}

func TestWithAuth_UnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	provider := &mockAuthProvider{}
	m := newSessionManager(provider)
	signIn(t, m)

	var seen []string
	err := m.WithAuth(context.Background(), func(_ context.Context, token string) error {
		seen = append(seen, token)
		if token == "access-1" {
			return &domain.ErrUnauthorized{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retried call to succeed, got %v", err)
	}
	if len(seen) != 2 || seen[0] != "access-1" || seen[1] != "access-2" {
		t.Errorf("expected one retry with the refreshed token, got %v", seen)
	}
}

func TestWithAuth_SecondRejectionSignsOut(t *testing.T) {
	provider := &mockAuthProvider{}
	m := newSessionManager(provider)
	signIn(t, m)

	var calls int
	err := m.WithAuth(context.Background(), func(context.Context, string) error {
		calls++
		return &domain.ErrUnauthorized{}
	})

	var expired *domain.ErrAuthExpired
	if !errors.As(err, &expired) {
		t.Fatalf("expected ErrAuthExpired after second rejection, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly two attempts, got %d", calls)
	}
	if m.Session() != nil {
		t.Error("session must end after the retried call is also rejected")
	}
}

func TestWithAuth_NonAuthErrorPassesThrough(t *testing.T) {
	provider := &mockAuthProvider{}
	m := newSessionManager(provider)
	signIn(t, m)

	want := &domain.ErrServerRejected{Status: 422, Message: "limite atingido"}
	err := m.WithAuth(context.Background(), func(context.Context, string) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected the rejection unchanged, got %v", err)
	}
	if _, refreshes, _ := provider.calls(); refreshes != 0 {
		t.Errorf("non-401 errors must not trigger a refresh, got %d", refreshes)
	}
}
