package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/domain/ports"
)

// Reconciler mirrors the authoritative session list into the store's tab
// strip. It holds only a SessionDirectory: passive mirroring is incapable
// of stopping or deleting a session by construction.
type Reconciler struct {
	store *Store
	dir   ports.SessionDirectory

	kick chan struct{}
}

// NewReconciler creates a reconciler over store backed by dir.
func NewReconciler(store *Store, dir ports.SessionDirectory) *Reconciler {
	return &Reconciler{
		store: store,
		dir:   dir,
		kick:  make(chan struct{}, 1),
	}
}

// SetScope switches scope (resetting view state) and fetches the new list.
func (r *Reconciler) SetScope(ctx context.Context, scope domain.Scope) error {
	r.store.SetScope(scope)
	return r.Refresh(ctx)
}

// Refresh fetches the session list for the current scope and applies it.
// A fetch failure leaves the previous tab state untouched.
func (r *Reconciler) Refresh(ctx context.Context) error {
	scope := r.store.Scope()
	if scope.IsZero() {
		return domain.ErrNoScope
	}

	sessions, err := r.dir.ListSessions(ctx, scope)
	if err != nil {
		log.Warn().Err(err).Str("scope_id", scope.ID).Msg("session list fetch failed, keeping current tabs")
		return fmt.Errorf("refresh sessions: %w", err)
	}

	// Guard against a scope change that raced the fetch.
	if r.store.Scope() != scope {
		return nil
	}
	r.store.ApplySessions(sessions)
	return nil
}

// Invalidate schedules an out-of-band refresh from Run's loop. Non-blocking
// and safe from any goroutine; used on server change notifications and
// after explicit session mutations.
func (r *Reconciler) Invalidate() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run refreshes periodically and on Invalidate until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.kick:
		}
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			log.Debug().Err(err).Msg("periodic refresh failed")
		}
	}
}
