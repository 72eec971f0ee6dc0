// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/gfranca/conta-gateway-go/internal/domain"
)

// AuthProvider is the consumed contract of the auth backend. Sessions are
// created, refreshed and destroyed here; the gateway never stores
// credentials itself.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	// SignUp ends in pending e-mail confirmation; no session is returned.
	SignUp(ctx context.Context, req *domain.SignUpRequest) error
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, email string) error
}

// ProfileAPI reads and mutates the authoritative profile record. All calls
// take the caller's access token; a 401 surfaces as *domain.ErrUnauthorized
// so the session layer can apply its refresh-once policy.
type ProfileAPI interface {
	GetMe(ctx context.Context, token string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, token string, upd *domain.ProfileUpdate) (*domain.Profile, error)
	SetAvatar(ctx context.Context, token, avatarID string) error
	UploadAvatar(ctx context.Context, token, filename, contentType string, data []byte) (*domain.UploadedAvatar, error)
	DeleteCustomAvatar(ctx context.Context, token string) (*domain.AvatarFallback, error)
}

// AddressAPI is the address book backend. Every mutation returns the
// server's authoritative full list, which the client adopts wholesale.
type AddressAPI interface {
	ListAddresses(ctx context.Context, token string) ([]domain.Address, error)
	CreateAddress(ctx context.Context, token string, form *domain.AddressForm) ([]domain.Address, error)
	UpdateAddress(ctx context.Context, token, id string, form *domain.AddressForm) ([]domain.Address, error)
	DeleteAddress(ctx context.Context, token, id string) ([]domain.Address, error)
	SetDefaultAddress(ctx context.Context, token, id string) ([]domain.Address, error)
}

// FavoritesAPI is the favorites backend. Membership is always replaced
// wholesale from the returned list.
type FavoritesAPI interface {
	ListFavorites(ctx context.Context, token string) ([]domain.FavoriteEntry, error)
	AddFavorite(ctx context.Context, token, sku, titulo string) ([]domain.FavoriteEntry, error)
	RemoveFavorite(ctx context.Context, token, sku string) ([]domain.FavoriteEntry, error)
}

// OrdersAPI is the read-only order and review history backend.
type OrdersAPI interface {
	MyOrders(ctx context.Context, token string) ([]domain.Order, error)
	UserReviews(ctx context.Context, token string) ([]domain.Review, error)
}

// PostalLookup resolves an 8-digit postal code into address fields.
// A miss returns *domain.ErrNotFound, which is non-fatal.
type PostalLookup interface {
	Lookup(ctx context.Context, cep string) (*domain.PostalAddress, error)
}

// SnapshotStore is the persistent key-value store for the profile
// snapshot. It survives restarts and is injectable so tests can fake it.
type SnapshotStore interface {
	Load() (*domain.ProfileSnapshot, error)
	Save(*domain.ProfileSnapshot) error
	Clear() error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
