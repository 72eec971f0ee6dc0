package domain

import "time"

// Profile is the authoritative, page-scoped profile record. Email is never
// user-editable; it only changes through the auth provider.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	TaxID           string    `json:"tax_id"`
	Addresses       []Address `json:"addresses"`
	AvatarID        string    `json:"avatar_id"`
	CustomAvatarURL string    `json:"custom_avatar_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Incomplete reports whether the profile still misses a field needed for
// checkout (tax id, phone or name).
func (p *Profile) Incomplete() bool {
	return p.TaxID == "" || p.Phone == "" || p.Name == ""
}

// DisplayAvatar resolves which avatar a surface should render. A custom
// photo always wins over a stock avatar id.
func (p *Profile) DisplayAvatar() string {
	if p.CustomAvatarURL != "" {
		return p.CustomAvatarURL
	}
	return p.AvatarID
}

// ProfileSnapshot is the minimal subset of the profile mirrored outside the
// account page, so a cold-starting surface can render an identity without
// waiting for the network. Empty strings mean "not set".
type ProfileSnapshot struct {
	AvatarID        string `json:"avatar_id"`
	CustomAvatarURL string `json:"custom_avatar_url"`
}

// DisplayAvatar mirrors Profile.DisplayAvatar for the cached subset.
func (s *ProfileSnapshot) DisplayAvatar() string {
	if s.CustomAvatarURL != "" {
		return s.CustomAvatarURL
	}
	return s.AvatarID
}

// SnapshotPatch merges into a persisted snapshot. Nil fields are left
// untouched; a pointer to the empty string clears the field.
type SnapshotPatch struct {
	AvatarID        *string
	CustomAvatarURL *string
}

// ProfileUpdate is the full mutable field set sent on every profile save.
// Phone and TaxID are normalized to digits-only before submission.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	TaxID string `json:"tax_id"`
}

// UploadedAvatar is the backend's answer to an avatar photo upload.
type UploadedAvatar struct {
	CustomAvatarURL string `json:"custom_avatar_url"`
}

// AvatarFallback is the backend's answer to removing a custom photo: the
// stock avatar id to fall back to. The client never invents one.
type AvatarFallback struct {
	AvatarID string `json:"avatar_id"`
}
