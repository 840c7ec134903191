package api

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"ts-dashboard/internal/dashboard"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
	"ts-dashboard/internal/view"
)

// Workspace is the dashboard state of one logged-in session.
type Workspace struct {
	Controller *dashboard.Controller
	View       *view.Model

	once sync.Once
}

// Workspaces holds one workspace per session token. Idle workspaces expire.
type Workspaces struct {
	items    *cache.Cache
	src      source.Source
	store    session.Store
	pageSize int
	log      *zap.Logger
}

// NewWorkspaces creates a registry whose workspaces expire after ttl of
// inactivity.
func NewWorkspaces(src source.Source, store session.Store, pageSize int, ttl time.Duration, logger *zap.Logger) *Workspaces {
	items := cache.New(ttl, ttl/2)
	items.OnEvicted(func(_ string, v any) {
		v.(*Workspace).View.Close()
	})
	return &Workspaces{items: items, src: src, store: store, pageSize: pageSize, log: logger}
}

// Open returns the workspace for token, creating and initializing it on
// first use.
func (w *Workspaces) Open(ctx context.Context, token string, sess session.Session) *Workspace {
	ws := w.Get(token)
	if ws == nil {
		model := view.New(view.Options{})
		ctrl := dashboard.New(dashboard.Config{
			Source:   w.src,
			Store:    w.store,
			Renderer: model,
			Logger:   w.log,
			Token:    token,
			Session:  sess,
			PageSize: w.pageSize,
		})
		candidate := &Workspace{Controller: ctrl, View: model}
		ws = candidate
		if err := w.items.Add(token, candidate, cache.DefaultExpiration); err != nil {
			// Lost a race with a concurrent request for the same token.
			if existing := w.Get(token); existing != nil {
				model.Close()
				ws = existing
			}
		}
	}

	ws.once.Do(func() {
		if err := ws.Controller.Initialize(context.WithoutCancel(ctx)); err != nil {
			w.log.Warn("dashboard initialization incomplete", zap.Error(err))
		}
	})
	return ws
}

// Get returns the workspace for token and extends its lifetime, or nil.
func (w *Workspaces) Get(token string) *Workspace {
	v, found := w.items.Get(token)
	if !found {
		return nil
	}
	w.items.Set(token, v, cache.DefaultExpiration)
	return v.(*Workspace)
}

// Drop discards the workspace for token.
func (w *Workspaces) Drop(token string) {
	w.items.Delete(token)
}

// Len returns the number of live workspaces.
func (w *Workspaces) Len() int {
	return w.items.ItemCount()
}
