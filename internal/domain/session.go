package domain

import "time"

// Session is the authenticated credential pair plus its expiry. It is owned
// exclusively by the session manager and never persisted in plaintext
// beyond the auth provider's own storage.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
}

// Expired reports whether the access token is expired or expires within
// the given margin. The margin absorbs clock skew between us and the
// auth provider.
func (s *Session) Expired(margin time.Duration) bool {
	if s == nil {
		return true
	}
	return !time.Now().Add(margin).Before(s.ExpiresAt)
}

// SessionEventKind enumerates the typed session lifecycle events.
type SessionEventKind string

const (
	SessionSignedIn     SessionEventKind = "signed_in"
	SessionSignedOut    SessionEventKind = "signed_out"
	SessionTokenRefresh SessionEventKind = "token_refreshed"
)

// SessionEvent is delivered to every subscribed surface on sign-in,
// sign-out and token refresh. Session is nil for signed_out.
type SessionEvent struct {
	Kind    SessionEventKind `json:"kind"`
	Session *Session         `json:"session,omitempty"`
	At      time.Time        `json:"at"`
}

// SignUpRequest carries the registration fields forwarded to the auth
// provider. Registration ends in a pending-confirmation state; no session
// is created until the e-mail is confirmed.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
