package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/infra"
)

const minCleanupInterval = time.Minute

// Registry keeps live sessions in memory. Sessions expire after ttl without
// access; nothing survives a restart.
type Registry struct {
	sessions *cache.Cache
	editor   gateway.Editor
	logger   *infra.Logger
	newID    func() string
}

// NewRegistry creates a registry whose sessions edit through editor.
func NewRegistry(editor gateway.Editor, ttl time.Duration, logger *infra.Logger) *Registry {
	if logger == nil {
		logger = infra.NopLogger()
	}
	cleanup := ttl / 2
	if cleanup < minCleanupInterval {
		cleanup = minCleanupInterval
	}
	r := &Registry{
		sessions: cache.New(ttl, cleanup),
		editor:   editor,
		logger:   logger,
		newID:    uuid.NewString,
	}
	r.sessions.OnEvicted(func(id string, v any) {
		if ctrl, ok := v.(*Controller); ok {
			ctrl.Close()
		}
		r.logger.Debug().Str("session_id", id).Msg("session: evicted")
	})
	return r
}

// Create registers a new, empty session.
func (r *Registry) Create() *Controller {
	id := r.newID()
	ctrl := NewController(id, r.editor, r.logger)
	r.sessions.Set(id, ctrl, cache.DefaultExpiration)
	return ctrl
}

// Get returns a live session and extends its lifetime.
func (r *Registry) Get(id string) (*Controller, error) {
	id = strings.TrimSpace(id)
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	ctrl, ok := v.(*Controller)
	if !ok {
		return nil, domain.ErrNotFound
	}
	// Replace fails once the entry is gone, so a session deleted or evicted
	// since the read is never put back.
	if err := r.sessions.Replace(id, ctrl, cache.DefaultExpiration); err != nil {
		return nil, domain.ErrNotFound
	}
	return ctrl, nil
}

// Delete discards a session. Any edit still in flight for it is dropped.
func (r *Registry) Delete(id string) error {
	id = strings.TrimSpace(id)
	if _, ok := r.sessions.Get(id); !ok {
		return domain.ErrNotFound
	}
	r.sessions.Delete(id)
	return nil
}

func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// CloseAll discards every session, e.g. on shutdown.
func (r *Registry) CloseAll() {
	for _, item := range r.sessions.Items() {
		if ctrl, ok := item.Object.(*Controller); ok {
			ctrl.Close()
		}
	}
	r.sessions.Flush()
}
