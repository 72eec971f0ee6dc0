package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gfranca/conta-gateway-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProfileAPI implementation — PostgREST RPC + Storage
// ============================================================

// supabaseProfile maps the me/update_profile RPC payload.
type supabaseProfile struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone"`
	TaxID           string           `json:"tax_id"`
	AvatarID        string           `json:"avatar_id"`
	CustomAvatarURL string           `json:"custom_avatar_url"`
	CreatedAt       string           `json:"created_at"`
	Addresses       []domain.Address `json:"addresses"`
}

func (p *supabaseProfile) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:              p.ID,
		Email:           p.Email,
		Name:            p.Name,
		Phone:           p.Phone,
		TaxID:           p.TaxID,
		Addresses:       p.Addresses,
		AvatarID:        p.AvatarID,
		CustomAvatarURL: p.CustomAvatarURL,
		CreatedAt:       parseTime(p.CreatedAt),
	}
}

// GetMe fetches the signed-in customer's full profile.
func (c *Client) GetMe(ctx context.Context, token string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetMe")
	defer span.End()

	raw, err := c.doRead(ctx, http.MethodPost, "/rest/v1/rpc/me", token, struct{}{})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: "me"}
	}

	var p supabaseProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p.toDomain(), nil
}

// UpdateProfile sends the full mutable field set and returns the profile
// the backend persisted. The call is all-or-nothing.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd *domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/update_profile", token, upd)
	if err != nil {
		return nil, err
	}

	var p supabaseProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p.toDomain(), nil
}

// SetAvatar selects a stock avatar. The backend clears any custom photo in
// the same transaction so stock choice always supersedes.
func (c *Client) SetAvatar(ctx context.Context, token, avatarID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetAvatar")
	defer span.End()
	span.SetAttributes(attribute.String("avatar.id", avatarID))

	body := map[string]string{"avatar_id": avatarID}
	_, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/set_avatar", token, body)
	return err
}

// UploadAvatar stores the photo in the avatars bucket and registers its
// public URL on the profile. Content validation happens before this call.
func (c *Client) UploadAvatar(ctx context.Context, token, filename, contentType string, data []byte) (*domain.UploadedAvatar, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UploadAvatar")
	defer span.End()

	object := uuid.New().String() + path.Ext(filename)
	if err := c.uploadObject(ctx, token, "avatars/"+object, contentType, data); err != nil {
		return nil, err
	}

	publicURL := c.baseURL + "/storage/v1/object/public/avatars/" + object
	body := map[string]string{"custom_avatar_url": publicURL}
	if _, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/set_custom_avatar", token, body); err != nil {
		return nil, err
	}

	return &domain.UploadedAvatar{CustomAvatarURL: publicURL}, nil
}

// DeleteCustomAvatar removes the custom photo; the backend answers with
// the stock avatar id to fall back to.
func (c *Client) DeleteCustomAvatar(ctx context.Context, token string) (*domain.AvatarFallback, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCustomAvatar")
	defer span.End()

	raw, err := c.doWrite(ctx, http.MethodPost, "/rest/v1/rpc/delete_custom_avatar", token, struct{}{})
	if err != nil {
		return nil, err
	}

	var fb domain.AvatarFallback
	if err := json.Unmarshal(raw, &fb); err != nil {
		return nil, fmt.Errorf("decode avatar fallback: %w", err)
	}
	return &fb, nil
}

// uploadObject performs the raw storage upload. It bypasses the JSON
// helper because the body is the file itself.
func (c *Client) uploadObject(ctx context.Context, token, objectPath, contentType string, data []byte) error {
	url := c.baseURL + "/storage/v1/object/" + objectPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ErrNetwork{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.ErrUnauthorized{}
	default:
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return &domain.ErrServerRejected{Status: resp.StatusCode, Message: ae.text()}
	}
}
