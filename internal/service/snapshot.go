package service

import (
	"sync"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/infra/observability"
	"github.com/gfranca/conta-gateway-go/internal/port"

	"go.uber.org/zap"
)

// SnapshotKeeper is the process-wide mirror of the minimal profile fields
// other surfaces need (avatar identity). It is written synchronously with
// every avatar mutation and read optimistically on cold start, so a
// surface without its own subscription still renders the latest identity
// on its next tick.
//
// The keeper is a display hint, never a source of truth: persistence
// failures are logged and swallowed so a broken disk cannot break a
// mutation that already succeeded on the backend.
type SnapshotKeeper struct {
	store   port.SnapshotStore
	metrics *observability.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

// NewSnapshotKeeper wraps a persistent store.
func NewSnapshotKeeper(store port.SnapshotStore, metrics *observability.Metrics, logger *zap.Logger) *SnapshotKeeper {
	return &SnapshotKeeper{store: store, metrics: metrics, logger: logger}
}

// Read returns the last persisted snapshot, or nil when none exists. Used
// only to avoid a flash of "unauthenticated" UI before the network
// responds.
func (k *SnapshotKeeper) Read() *domain.ProfileSnapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	snap, err := k.store.Load()
	if err != nil {
		k.logger.Warn("snapshot read failed", zap.Error(err))
		return nil
	}
	return snap
}

// Write merges the patch into the persisted snapshot. Nil fields are left
// untouched. Safe to call from any surface.
func (k *SnapshotKeeper) Write(patch domain.SnapshotPatch) {
	k.mu.Lock()
	defer k.mu.Unlock()

	snap, err := k.store.Load()
	if err != nil || snap == nil {
		snap = &domain.ProfileSnapshot{}
	}
	if patch.AvatarID != nil {
		snap.AvatarID = *patch.AvatarID
	}
	if patch.CustomAvatarURL != nil {
		snap.CustomAvatarURL = *patch.CustomAvatarURL
	}

	if err := k.store.Save(snap); err != nil {
		k.logger.Warn("snapshot write failed", zap.Error(err))
		return
	}
	k.metrics.IncrSnapshotWrite()
}

// Clear drops the snapshot. Runs on every sign-out.
func (k *SnapshotKeeper) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.Clear(); err != nil {
		k.logger.Warn("snapshot clear failed", zap.Error(err))
	}
}

// WatchSession clears the snapshot whenever the session ends, so no
// identity from the previous user leaks into the next cold start.
// Returns the unsubscribe function.
func (k *SnapshotKeeper) WatchSession(sessions *SessionManager) func() {
	return sessions.Subscribe(func(event domain.SessionEvent) {
		if event.Kind == domain.SessionSignedOut {
			k.Clear()
		}
	})
}
