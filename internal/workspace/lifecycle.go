package workspace

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/crewdeck/crewdeck/internal/domain"
	"github.com/crewdeck/crewdeck/internal/domain/ports"
)

// Controller performs the explicit, user-triggered session lifecycle
// actions. It is the only holder of the SessionLifecycle capability; the
// reconciler can never reach these code paths.
type Controller struct {
	store     *Store
	lifecycle ports.SessionLifecycle
}

// NewController creates a lifecycle controller.
func NewController(store *Store, lifecycle ports.SessionLifecycle) *Controller {
	return &Controller{store: store, lifecycle: lifecycle}
}

// CloseSession stops (if still active) and deletes a session. Stop failure
// is swallowed: a stale or unstoppable session must still be removable.
// The session is evicted from the local cache first so reconciliation
// cannot re-open its tab while the server-side delete is in flight. A
// delete failure is returned but local tab removal is not rolled back.
func (c *Controller) CloseSession(ctx context.Context, session domain.Session) error {
	c.store.EvictSession(session.ID)

	if session.Status.Active() {
		if err := c.lifecycle.StopSession(ctx, session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("stop failed, proceeding to delete")
		}
	}

	if err := c.lifecycle.DeleteSession(ctx, session.ID); err != nil {
		return fmt.Errorf("close session %s: %w", session.ID, err)
	}
	return nil
}

// StartSession creates a session in the current scope and opens its tab
// immediately, without waiting for the next reconcile.
func (c *Controller) StartSession(ctx context.Context, provider string) (domain.Session, error) {
	scope := c.store.Scope()
	if scope.IsZero() {
		return domain.Session{}, domain.ErrNoScope
	}

	session, err := c.lifecycle.StartSession(ctx, scope, provider)
	if err != nil {
		return domain.Session{}, fmt.Errorf("start session: %w", err)
	}
	c.store.OpenTab(domain.SessionTab(session.ID))
	return session, nil
}
