package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ts-dashboard/internal/gateway"
)

type failingSource struct {
	Source
	err   error
	calls int
}

func (f *failingSource) Stations(context.Context) (Directory, error) {
	f.calls++
	return nil, f.err
}

func (f *failingSource) FilterOptions(context.Context) (FilterOptions, error) {
	f.calls++
	return FilterOptions{}, f.err
}

func (f *failingSource) StationData(context.Context, string, Query) (StationData, error) {
	f.calls++
	return StationData{}, f.err
}

func TestWithFallback(t *testing.T) {
	primary := &failingSource{err: &gateway.Error{Kind: gateway.KindTimeout, Action: ActionStations}}
	src := WithFallback(primary, newTestFixture(), zap.NewNop())
	ctx := context.Background()

	dir, err := src.Stations(ctx)
	require.NoError(t, err)
	assert.Len(t, dir, 7)
	assert.True(t, dir[AdminStation].IsAdmin)

	opts, err := src.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, DemoFilterOptions(), opts)

	_, err = src.StationData(ctx, "IETS", Query{})
	assert.ErrorIs(t, err, gateway.ErrTimeout, "record loads have no fallback")
	assert.Equal(t, 3, primary.calls)
}

func TestWithFallback_CanceledContext(t *testing.T) {
	primary := &failingSource{err: context.Canceled}
	src := WithFallback(primary, newTestFixture(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Stations(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
