package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gfranca/conta-gateway-go/internal/domain"
)

// Hand-written fakes of the backend ports. Each func field defaults to a
// success path so tests only override what they exercise.

type mockAuthProvider struct {
	mu           sync.Mutex
	signInCalls  int
	refreshCalls int
	signOutCalls int

	signInFn  func(email, password string) (*domain.Session, error)
	refreshFn func(refreshToken string) (*domain.Session, error)
	signOutFn func(accessToken string) error
}

func validSession() *domain.Session {
	return &domain.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       "user-1",
		Email:        "ana@example.com",
	}
}

func (m *mockAuthProvider) SignIn(_ context.Context, email, password string) (*domain.Session, error) {
	m.mu.Lock()
	m.signInCalls++
	fn := m.signInFn
	m.mu.Unlock()

	if fn != nil {
		return fn(email, password)
	}
	return validSession(), nil
}

func (m *mockAuthProvider) SignUp(context.Context, *domain.SignUpRequest) error { return nil }

func (m *mockAuthProvider) RefreshSession(_ context.Context, refreshToken string) (*domain.Session, error) {
	m.mu.Lock()
	m.refreshCalls++
	fn := m.refreshFn
	m.mu.Unlock()

	if fn != nil {
		return fn(refreshToken)
	}
	s := validSession()
	s.AccessToken = "access-2"
	s.RefreshToken = "refresh-2"
	return s, nil
}

func (m *mockAuthProvider) SignOut(_ context.Context, accessToken string) error {
	m.mu.Lock()
	m.signOutCalls++
	fn := m.signOutFn
	m.mu.Unlock()

	if fn != nil {
		return fn(accessToken)
	}
	return nil
}

func (m *mockAuthProvider) ForgotPassword(context.Context, string) error { return nil }

func (m *mockAuthProvider) calls() (signIn, refresh, signOut int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signInCalls, m.refreshCalls, m.signOutCalls
}

type mockProfileAPI struct {
	mu         sync.Mutex
	getMeCalls int

	getMeFn        func(token string) (*domain.Profile, error)
	updateFn       func(token string, upd *domain.ProfileUpdate) (*domain.Profile, error)
	setAvatarFn    func(token, avatarID string) error
	uploadFn       func(token, filename, contentType string, data []byte) (*domain.UploadedAvatar, error)
	deleteAvatarFn func(token string) (*domain.AvatarFallback, error)
}

func validProfile() *domain.Profile {
	return &domain.Profile{
		ID:       "user-1",
		Email:    "ana@example.com",
		Name:     "Ana Souza",
		Phone:    "44997330202",
		TaxID:    "52998224725",
		AvatarID: "robot1",
	}
}

func (m *mockProfileAPI) GetMe(_ context.Context, token string) (*domain.Profile, error) {
	m.mu.Lock()
	m.getMeCalls++
	fn := m.getMeFn
	m.mu.Unlock()

	if fn != nil {
		return fn(token)
	}
	return validProfile(), nil
}

func (m *mockProfileAPI) UpdateProfile(_ context.Context, token string, upd *domain.ProfileUpdate) (*domain.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(token, upd)
	}
	p := validProfile()
	p.Name = upd.Name
	p.Phone = upd.Phone
	p.TaxID = upd.TaxID
	return p, nil
}

func (m *mockProfileAPI) SetAvatar(_ context.Context, token, avatarID string) error {
	if m.setAvatarFn != nil {
		return m.setAvatarFn(token, avatarID)
	}
	return nil
}

func (m *mockProfileAPI) UploadAvatar(_ context.Context, token, filename, contentType string, data []byte) (*domain.UploadedAvatar, error) {
	if m.uploadFn != nil {
		return m.uploadFn(token, filename, contentType, data)
	}
	return &domain.UploadedAvatar{CustomAvatarURL: "https://cdn.example/avatars/" + filename}, nil
}

func (m *mockProfileAPI) DeleteCustomAvatar(_ context.Context, token string) (*domain.AvatarFallback, error) {
	if m.deleteAvatarFn != nil {
		return m.deleteAvatarFn(token)
	}
	return &domain.AvatarFallback{AvatarID: "robot1"}, nil
}

// mockAddressAPI keeps a server-side list and returns it in full after
// every mutation, like the real backend.
type mockAddressAPI struct {
	mu   sync.Mutex
	list []domain.Address
	next int

	createErr error
	listErr   error
}

func (m *mockAddressAPI) snapshot() []domain.Address {
	out := append([]domain.Address(nil), m.list...)
	return out
}

func (m *mockAddressAPI) ListAddresses(context.Context, string) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.snapshot(), nil
}

func (m *mockAddressAPI) CreateAddress(_ context.Context, _ string, form *domain.AddressForm) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}

	m.next++
	addr := domain.Address{
		ID:           fmt.Sprintf("addr-%d", m.next),
		Label:        form.Label,
		CEP:          form.CEP,
		Street:       form.Street,
		Number:       form.Number,
		Complement:   form.Complement,
		Neighborhood: form.Neighborhood,
		City:         form.City,
		State:        form.State,
		IsDefault:    form.IsDefault,
	}
	if addr.IsDefault {
		for i := range m.list {
			m.list[i].IsDefault = false
		}
	}
	m.list = append(m.list, addr)
	return m.snapshot(), nil
}

func (m *mockAddressAPI) UpdateAddress(_ context.Context, _ string, id string, form *domain.AddressForm) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.list {
		if m.list[i].ID == id {
			m.list[i].Label = form.Label
			m.list[i].Street = form.Street
			m.list[i].Number = form.Number
			m.list[i].City = form.City
			m.list[i].State = form.State
		}
	}
	return m.snapshot(), nil
}

func (m *mockAddressAPI) DeleteAddress(_ context.Context, _ string, id string) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.list[:0]
	for _, a := range m.list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	m.list = out
	return m.snapshot(), nil
}

func (m *mockAddressAPI) SetDefaultAddress(_ context.Context, _ string, id string) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.list {
		m.list[i].IsDefault = m.list[i].ID == id
	}
	return m.snapshot(), nil
}

type mockFavoritesAPI struct {
	mu   sync.Mutex
	list []domain.FavoriteEntry

	addErr    error
	removeErr error
}

func (m *mockFavoritesAPI) snapshot() []domain.FavoriteEntry {
	return append([]domain.FavoriteEntry(nil), m.list...)
}

func (m *mockFavoritesAPI) ListFavorites(context.Context, string) ([]domain.FavoriteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(), nil
}

func (m *mockFavoritesAPI) AddFavorite(_ context.Context, _ string, sku, titulo string) ([]domain.FavoriteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return nil, m.addErr
	}

	for _, e := range m.list {
		if e.SKU == sku {
			return m.snapshot(), nil
		}
	}
	m.list = append(m.list, domain.FavoriteEntry{SKU: sku, Titulo: titulo, AddedAt: time.Now()})
	return m.snapshot(), nil
}

func (m *mockFavoritesAPI) RemoveFavorite(_ context.Context, _ string, sku string) ([]domain.FavoriteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return nil, m.removeErr
	}

	out := m.list[:0]
	for _, e := range m.list {
		if e.SKU != sku {
			out = append(out, e)
		}
	}
	m.list = out
	return m.snapshot(), nil
}

type mockOrdersAPI struct {
	orders  []domain.Order
	reviews []domain.Review
	err     error
}

func (m *mockOrdersAPI) MyOrders(context.Context, string) ([]domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Order(nil), m.orders...), nil
}

func (m *mockOrdersAPI) UserReviews(context.Context, string) ([]domain.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Review(nil), m.reviews...), nil
}

type mockPostalLookup struct {
	found *domain.PostalAddress
	err   error
}

func (m *mockPostalLookup) Lookup(context.Context, string) (*domain.PostalAddress, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.found, nil
}

// memSnapshotStore is an in-memory SnapshotStore for tests.
type memSnapshotStore struct {
	mu      sync.Mutex
	snap    *domain.ProfileSnapshot
	saveErr error
}

func (m *memSnapshotStore) Load() (*domain.ProfileSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	s := *m.snap
	return &s, nil
}

func (m *memSnapshotStore) Save(s *domain.ProfileSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	c := *s
	m.snap = &c
	return nil
}

func (m *memSnapshotStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}
