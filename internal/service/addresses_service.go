package service

import (
	"context"
	"errors"
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

var addressTracer = otel.Tracer("service/addresses")

// AddressBook manages the address collection. Mutations are optimistic
// only in the UI sense: every create/update/delete/set-default call ends
// by adopting the full list the backend returns, so local state can never
// drift from the server of record.
type AddressBook struct {
	sessions *SessionManager
	api      port.AddressAPI
	postal   port.PostalLookup
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu        sync.Mutex
	addresses []domain.Address
	mutating  bool
}

// NewAddressBook creates an empty address book.
func NewAddressBook(sessions *SessionManager, api port.AddressAPI, postal port.PostalLookup, metrics *observability.Metrics, logger *zap.Logger) *AddressBook {
	return &AddressBook{
		sessions: sessions,
		api:      api,
		postal:   postal,
		metrics:  metrics,
		logger:   logger,
	}
}

// Addresses returns a copy of the current list.
func (b *AddressBook) Addresses() []domain.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Address(nil), b.addresses...)
}

// Default returns the default address, or nil when none is set.
func (b *AddressBook) Default() *domain.Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.addresses {
		if b.addresses[i].IsDefault {
			a := b.addresses[i]
			return &a
		}
	}
	return nil
}

func (b *AddressBook) beginMutation(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mutating {
		return &domain.ErrBusy{Operation: op}
	}
	b.mutating = true
	return nil
}

func (b *AddressBook) endMutation() {
	b.mu.Lock()
	b.mutating = false
	b.mu.Unlock()
}

// adopt replaces the local list with the server's authoritative one.
func (b *AddressBook) adopt(list []domain.Address) {
	b.mu.Lock()
	b.addresses = list
	b.mu.Unlock()
}

// Load fetches the current list from the backend.
func (b *AddressBook) Load(ctx context.Context) ([]domain.Address, error) {
	ctx, span := addressTracer.Start(ctx, "AddressBook.Load")
	defer span.End()

	start := time.Now()
	var list []domain.Address
	err := b.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		l, err := b.api.ListAddresses(ctx, token)
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	b.metrics.RecordRequestDuration("addresses.load", time.Since(start))
	if err != nil {
		return nil, err
	}

	b.adopt(list)
	return b.Addresses(), nil
}

// validateForm checks the required fields of a submission. The backend
// revalidates; this only saves a round trip for obviously broken input.
func validateAddressForm(form *domain.AddressForm) error {
	form.CEP = validate.Digits(form.CEP)
	form.State = strings.ToUpper(strings.TrimSpace(form.State))

	switch {
	case len(form.CEP) != 8:
		return &domain.ErrValidation{Field: "cep", Message: "CEP deve ter 8 dígitos"}
	case strings.TrimSpace(form.Street) == "":
		return &domain.ErrValidation{Field: "street", Message: "Informe a rua"}
	case strings.TrimSpace(form.Number) == "":
		return &domain.ErrValidation{Field: "number", Message: "Informe o número"}
	case strings.TrimSpace(form.Neighborhood) == "":
		return &domain.ErrValidation{Field: "neighborhood", Message: "Informe o bairro"}
	case strings.TrimSpace(form.City) == "":
		return &domain.ErrValidation{Field: "city", Message: "Informe a cidade"}
	case len(form.State) != 2:
		return &domain.ErrValidation{Field: "state", Message: "UF inválida"}
	}

	switch form.Label {
	case domain.AddressLabelCasa, domain.AddressLabelTrabalho, domain.AddressLabelOutro:
	case "":
		form.Label = domain.AddressLabelCasa
	default:
		return &domain.ErrValidation{Field: "label", Message: "Etiqueta inválida"}
	}
	return nil
}

// Create adds an address. The first address of an empty book is forced to
// be the default regardless of the form flag. The local limit check avoids
// a round trip; the backend enforces the same limit.
func (b *AddressBook) Create(ctx context.Context, form *domain.AddressForm) ([]domain.Address, error) {
	ctx, span := addressTracer.Start(ctx, "AddressBook.Create")
	defer span.End()

	if err := validateAddressForm(form); err != nil {
		return nil, err
	}

	if err := b.beginMutation("addresses.create"); err != nil {
		return nil, err
	}
	defer b.endMutation()

	b.mu.Lock()
	if len(b.addresses) >= domain.MaxAddresses {
		b.mu.Unlock()
		return nil, &domain.ErrValidation{Field: "addresses", Message: "Limite de 10 endereços atingido"}
	}
	if len(b.addresses) == 0 {
		form.IsDefault = true
	}
	b.mu.Unlock()

	var list []domain.Address
	err := b.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		l, err := b.api.CreateAddress(ctx, token, form)
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.adopt(list)
	b.logger.Info("address created", zap.Int("count", len(list)))
	return b.Addresses(), nil
}

// Update edits an existing address and adopts the returned list.
func (b *AddressBook) Update(ctx context.Context, id string, form *domain.AddressForm) ([]domain.Address, error) {
	ctx, span := addressTracer.Start(ctx, "AddressBook.Update")
	defer span.End()

	if id == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "Endereço inválido"}
	}
	if err := validateAddressForm(form); err != nil {
		return nil, err
	}

	if err := b.beginMutation("addresses.update"); err != nil {
		return nil, err
	}
	defer b.endMutation()

	var list []domain.Address
	err := b.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		l, err := b.api.UpdateAddress(ctx, token, id, form)
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.adopt(list)
	return b.Addresses(), nil
}

// Delete removes an address. If the default is deleted the backend
// promotes another entry; the adopted list reflects whatever it decided.
func (b *AddressBook) Delete(ctx context.Context, id string) ([]domain.Address, error) {
	ctx, span := addressTracer.Start(ctx, "AddressBook.Delete")
	defer span.End()

	if id == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "Endereço inválido"}
	}

	if err := b.beginMutation("addresses.delete"); err != nil {
		return nil, err
	}
	defer b.endMutation()

	var list []domain.Address
	err := b.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		l, err := b.api.DeleteAddress(ctx, token, id)
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.adopt(list)
	return b.Addresses(), nil
}

// SetDefault marks an address as the default. Exclusivity is the
// backend's job; the adopted list carries exactly one default.
func (b *AddressBook) SetDefault(ctx context.Context, id string) ([]domain.Address, error) {
	ctx, span := addressTracer.Start(ctx, "AddressBook.SetDefault")
	defer span.End()

	if id == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "Endereço inválido"}
	}

	if err := b.beginMutation("addresses.set_default"); err != nil {
		return nil, err
	}
	defer b.endMutation()

	var list []domain.Address
	err := b.sessions.WithAuth(ctx, func(ctx context.Context, token string) error {
		l, err := b.api.SetDefaultAddress(ctx, token, id)
		if err != nil {
			return err
		}
		list = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.adopt(list)
	return b.Addresses(), nil
}

// Autofill resolves a complete postal code and fills only the form fields
// the user has not touched. A lookup miss or failure never blocks manual
// entry: it comes back as a field-scoped message on the postal code and
// the form stays editable.
func (b *AddressBook) Autofill(ctx context.Context, form *domain.AddressForm) (string, error) {
	ctx, span := addressTracer.Start(ctx, "AddressBook.Autofill")
	defer span.End()

	cep := validate.Digits(form.CEP)
	if len(cep) != 8 {
		// Partial input; nothing to look up yet.
		return "", nil
	}

	found, err := b.postal.Lookup(ctx, cep)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			b.logger.Debug("postal code not found", zap.String("cep", cep))
			return "CEP não encontrado", nil
		}
		b.logger.Warn("postal lookup failed", zap.Error(err))
		return "Não foi possível consultar o CEP", nil
	}

	if form.Street == "" {
		form.Street = found.Street
	}
	if form.Complement == "" {
		form.Complement = found.Complement
	}
	if form.Neighborhood == "" {
		form.Neighborhood = found.Neighborhood
	}
	if form.City == "" {
		form.City = found.City
	}
	if form.State == "" {
		form.State = found.State
	}
	return "", nil
}
