package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/port"
	"github.com/gfranca/conta-gateway-go/internal/validate"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var profileTracer = otel.Tracer("service/profile")

// maxAvatarBytes is the client-side upload size limit (2 MiB).
const maxAvatarBytes = 2 << 20

var allowedAvatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// StoreState is the profile store's lifecycle.
type StoreState int

const (
	StateUninitialized StoreState = iota
	StateLoading
	StateReady
	StateError
)

func (s StoreState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// ProfileStore holds the authoritative in-memory profile for the account
// page. It fetches through the session manager's auth policy, applies
// mutations optimistically against the server of record, and keeps the
// snapshot keeper and the read cache consistent with every change.
type ProfileStore struct {
	sessions *SessionManager
	api      port.ProfileAPI
	snapshot *SnapshotKeeper
	cache    port.Cache[*domain.Profile]
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu       sync.Mutex
	state    StoreState
	profile  *domain.Profile
	lastErr  error
	mutating bool
}

// NewProfileStore creates a profile store in the uninitialized state.
func NewProfileStore(sessions *SessionManager, api port.ProfileAPI, snapshot *SnapshotKeeper, cache port.Cache[*domain.Profile], metrics *observability.Metrics, logger *zap.Logger) *ProfileStore {
	return &ProfileStore{
		sessions: sessions,
		api:      api,
		snapshot: snapshot,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		state:    StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (s *ProfileStore) State() StoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns a copy of the loaded profile, or nil before ready.
func (s *ProfileStore) Profile() *domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil
	}
	p := *s.profile
	p.Addresses = append([]domain.Address(nil), s.profile.Addresses...)
	return &p
}

// ColdSnapshot returns the persisted identity snapshot for rendering
// before the first fetch completes.
func (s *ProfileStore) ColdSnapshot() *domain.ProfileSnapshot {
	return s.snapshot.Read()
}

func (s *ProfileStore) cacheKey(userID string) string {
	return "profile:" + userID
}

// Load fetches the profile under the auth policy: a 401 triggers exactly
// one refresh and retry; a second rejection surfaces as ErrAuthExpired so
// the surface redirects to login rather than showing an error state.
func (s *ProfileStore) Load(ctx context.Context) (*domain.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileStore.Load")
	defer span.End()

	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	start := time.Now()
	var fetched *domain.Profile

	err := s.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		if session := s.sessions.Session(); session != nil {
			if cached, ok := s.cache.Get(s.cacheKey(session.UserID)); ok {
				s.metrics.IncrCacheHit("profile")
				fetched = cached
				return nil
			}
			s.metrics.IncrCacheMiss("profile")
		}

		p, err := s.api.GetMe(ctx, token)
		if err != nil {
			return err
		}
		fetched = p
		return nil
	})
	s.metrics.RecordRequestDuration("profile.load", time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateError
		s.lastErr = err
		return nil, err
	}

	s.state = StateReady
	s.profile = fetched
	s.lastErr = nil

	if session := s.sessions.Session(); session != nil {
		s.cache.Set(s.cacheKey(session.UserID), fetched)
	}
	// Every successful fetch refreshes the cross-surface mirror.
	s.snapshot.Write(domain.SnapshotPatch{
		AvatarID:        &fetched.AvatarID,
		CustomAvatarURL: &fetched.CustomAvatarURL,
	})

	return s.Profile(), nil
}

// beginMutation gates concurrent mutations on the profile resource. The
// UI disables the action while one is outstanding instead of queueing.
func (s *ProfileStore) beginMutation(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mutating {
		return &domain.ErrBusy{Operation: op}
	}
	if s.state != StateReady {
		return &domain.ErrValidation{Field: "profile", Message: "perfil ainda não carregado"}
	}
	s.mutating = true
	return nil
}

func (s *ProfileStore) endMutation() {
	s.mu.Lock()
	s.mutating = false
	s.mu.Unlock()
}

// invalidate drops the server-read cache for the signed-in profile. It
// runs before local state is updated so a racing Load cannot resurrect
// the pre-mutation profile.
func (s *ProfileStore) invalidate() {
	if session := s.sessions.Session(); session != nil {
		s.cache.Delete(s.cacheKey(session.UserID))
	}
}

// UpdateProfile sends the full mutable field set. Phone and tax id are
// normalized to digits; on failure local state is untouched.
func (s *ProfileStore) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileStore.UpdateProfile")
	defer span.End()

	upd.Name = strings.TrimSpace(upd.Name)
	upd.Phone = validate.Digits(upd.Phone)
	upd.TaxID = validate.Digits(upd.TaxID)

	if upd.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "Informe seu nome"}
	}
	if upd.Phone != "" && !validate.Phone(upd.Phone) {
		return nil, &domain.ErrValidation{Field: "phone", Message: "Telefone inválido"}
	}
	if upd.TaxID != "" && !validate.CPF(upd.TaxID) {
		return nil, &domain.ErrValidation{Field: "tax_id", Message: "CPF inválido"}
	}

	if err := s.beginMutation("profile.update"); err != nil {
		return nil, err
	}
	defer s.endMutation()

	var saved *domain.Profile
	err := s.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		p, err := s.api.UpdateProfile(ctx, token, &upd)
		if err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()

	s.mu.Lock()
	s.profile = saved
	s.mu.Unlock()

	s.snapshot.Write(domain.SnapshotPatch{
		AvatarID:        &saved.AvatarID,
		CustomAvatarURL: &saved.CustomAvatarURL,
	})
	s.logger.Info("profile updated", zap.String("profile_id", saved.ID))

	return s.Profile(), nil
}

// SetAvatar picks a stock avatar. Choosing one discards any custom photo,
// matching backend behavior, so the mirror is patched for both fields.
func (s *ProfileStore) SetAvatar(ctx context.Context, avatarID string) error {
	ctx, span := profileTracer.Start(ctx, "ProfileStore.SetAvatar")
	defer span.End()

	if avatarID == "" {
		return &domain.ErrValidation{Field: "avatar_id", Message: "Escolha um avatar"}
	}

	if err := s.beginMutation("profile.set_avatar"); err != nil {
		return err
	}
	defer s.endMutation()

	err := s.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		return s.api.SetAvatar(ctx, token, avatarID)
	})
	if err != nil {
		return err
	}

	s.invalidate()

	s.mu.Lock()
	if s.profile != nil {
		s.profile.AvatarID = avatarID
		s.profile.CustomAvatarURL = ""
	}
	s.mu.Unlock()

	empty := ""
	s.snapshot.Write(domain.SnapshotPatch{AvatarID: &avatarID, CustomAvatarURL: &empty})

	return nil
}

// UploadAvatar validates the file locally before any network call, then
// uploads it and adopts the returned public URL.
func (s *ProfileStore) UploadAvatar(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileStore.UploadAvatar")
	defer span.End()

	if !allowedAvatarTypes[contentType] {
		return "", &domain.ErrValidation{Field: "avatar", Message: "Formato de imagem não suportado"}
	}
	if len(data) == 0 {
		return "", &domain.ErrValidation{Field: "avatar", Message: "Arquivo vazio"}
	}
	if len(data) > maxAvatarBytes {
		return "", &domain.ErrValidation{Field: "avatar", Message: "A imagem deve ter no máximo 2MB"}
	}

	if err := s.beginMutation("profile.upload_avatar"); err != nil {
		return "", err
	}
	defer s.endMutation()

	var uploaded *domain.UploadedAvatar
	err := s.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		u, err := s.api.UploadAvatar(ctx, token, filename, contentType, data)
		if err != nil {
			return err
		}
		uploaded = u
		return nil
	})
	if err != nil {
		return "", err
	}

	s.invalidate()

	s.mu.Lock()
	if s.profile != nil {
		s.profile.CustomAvatarURL = uploaded.CustomAvatarURL
	}
	s.mu.Unlock()

	s.snapshot.Write(domain.SnapshotPatch{CustomAvatarURL: &uploaded.CustomAvatarURL})
	s.logger.Info("custom avatar uploaded", zap.String("filename", filename))

	return uploaded.CustomAvatarURL, nil
}

// RemoveCustomAvatar deletes the custom photo and adopts the stock avatar
// the backend designates as the fallback.
func (s *ProfileStore) RemoveCustomAvatar(ctx context.Context) (string, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileStore.RemoveCustomAvatar")
	defer span.End()

	if err := s.beginMutation("profile.remove_avatar"); err != nil {
		return "", err
	}
	defer s.endMutation()

	var fallback *domain.AvatarFallback
	err := s.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		f, err := s.api.DeleteCustomAvatar(ctx, token)
		if err != nil {
			return err
		}
		fallback = f
		return nil
	})
	if err != nil {
		return "", err
	}

	s.invalidate()

	s.mu.Lock()
	if s.profile != nil {
		s.profile.CustomAvatarURL = ""
		s.profile.AvatarID = fallback.AvatarID
	}
	s.mu.Unlock()

	empty := ""
	s.snapshot.Write(domain.SnapshotPatch{AvatarID: &fallback.AvatarID, CustomAvatarURL: &empty})

	return fallback.AvatarID, nil
}
