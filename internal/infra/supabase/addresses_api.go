package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// AddressAPI implementation — PostgREST RPC
// ============================================================
//
// Every mutation RPC enforces default-exclusivity and the per-profile
// limit server-side and answers with the authoritative full list, which
// the service layer adopts wholesale.

type addressListEnvelope struct {
	Addresses []domain.Address `json:"addresses"`
}

func (c *Client) decodeAddressList(raw []byte) ([]domain.Address, error) {
	var env addressListEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}
	if env.Addresses == nil {
		env.Addresses = []domain.Address{}
	}
	return env.Addresses, nil
}

// ListAddresses returns the address book. An empty book is a valid,
// non-error state.
func (c *Client) ListAddresses(ctx context.Context, token string) ([]domain.Address, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAddresses")
	defer span.End()

	raw, err := c.doRead(ctx, http.MethodPost, "/rest/v1/rpc/address_list", token, struct{}{})
	if err != nil {
		return nil, err
	}
	return c.decodeAddressList(raw)
}

// CreateAddress adds an entry and returns the new full list.
func (c *Client) CreateAddress(ctx context.Context, token string, form *domain.AddressForm) ([]domain.Address, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAddress")
	defer span.End()

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/address_create", token, form)
	if err != nil {
		return nil, err
	}
	return c.decodeAddressList(raw)
}

// UpdateAddress edits an entry and returns the new full list.
func (c *Client) UpdateAddress(ctx context.Context, token, id string, form *domain.AddressForm) ([]domain.Address, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAddress")
	defer span.End()
	span.SetAttributes(attribute.String("address.id", id))

	body := struct {
		ID string `json:"id"`
		*domain.AddressForm
	}{ID: id, AddressForm: form}

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/address_update", token, body)
	if err != nil {
		return nil, err
	}
	return c.decodeAddressList(raw)
}

// DeleteAddress removes an entry and returns the new full list.
func (c *Client) DeleteAddress(ctx context.Context, token, id string) ([]domain.Address, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAddress")
	defer span.End()
	span.SetAttributes(attribute.String("address.id", id))

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/address_delete", token, map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	return c.decodeAddressList(raw)
}

// SetDefaultAddress is the dedicated single-field default mutation,
// distinct from a full update.
func (c *Client) SetDefaultAddress(ctx context.Context, token, id string) ([]domain.Address, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SetDefaultAddress")
	defer span.End()
	span.SetAttributes(attribute.String("address.id", id))

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/address_set_default", token, map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	return c.decodeAddressList(raw)
}
