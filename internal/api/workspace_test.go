package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

type nopStore struct{}

func (nopStore) Save(context.Context, string, session.Session) error { return nil }

func (nopStore) Load(context.Context, string) (session.Session, error) {
	return session.Session{}, session.ErrNotFound
}

func (nopStore) Clear(context.Context, string) error { return nil }

func TestWorkspaces_OpenIsShared(t *testing.T) {
	w := NewWorkspaces(source.NewFixture(nil, time.UTC), nopStore{}, 10, time.Minute, zap.NewNop())
	sess := session.Session{StationCode: "IETS", DisplayName: "港島東轉運站"}

	var wg sync.WaitGroup
	opened := make([]*Workspace, 8)
	for i := range opened {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opened[i] = w.Open(context.Background(), "tok", sess)
		}()
	}
	wg.Wait()

	for _, ws := range opened {
		assert.Same(t, opened[0], ws)
	}
	assert.Equal(t, 1, w.Len())

	snap := opened[0].View.Snapshot()
	assert.Equal(t, "IETS", snap.Nav.Active())
	assert.Len(t, snap.Table.Rows, 10)
}

func TestWorkspaces_DropClosesView(t *testing.T) {
	w := NewWorkspaces(source.NewFixture(nil, time.UTC), nopStore{}, 10, time.Minute, zap.NewNop())
	ws := w.Open(context.Background(), "tok", session.Session{StationCode: source.AdminStation, IsAdmin: true})
	updates, cancel := ws.View.Subscribe()
	defer cancel()
	<-updates

	w.Drop("tok")
	assert.Nil(t, w.Get("tok"))

	select {
	case _, ok := <-updates:
		require.False(t, ok, "subscription should be closed")
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}
