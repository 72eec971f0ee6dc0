package domain

import "time"

// FavoriteEntry is one favorited product, deduplicated by SKU.
type FavoriteEntry struct {
	SKU     string    `json:"sku"`
	Titulo  string    `json:"titulo"`
	AddedAt time.Time `json:"added_at"`
}

// FavoriteSet is the derived SKU set for O(1) membership checks. It is
// always rebuilt wholesale from the server's list, never patched locally.
type FavoriteSet map[string]struct{}

// NewFavoriteSet builds the membership set from a server list.
func NewFavoriteSet(entries []FavoriteEntry) FavoriteSet {
	set := make(FavoriteSet, len(entries))
	for _, e := range entries {
		set[e.SKU] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s FavoriteSet) Has(sku string) bool {
	_, ok := s[sku]
	return ok
}
