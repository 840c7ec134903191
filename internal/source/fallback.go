package source

import (
	"context"

	"go.uber.org/zap"
)

type withFallback struct {
	Source
	reference Source
	log       *zap.Logger
}

// WithFallback serves the station directory and filter options from
// reference whenever primary fails. Every other call goes to primary.
func WithFallback(primary, reference Source, logger *zap.Logger) Source {
	return &withFallback{Source: primary, reference: reference, log: logger}
}

func (f *withFallback) Stations(ctx context.Context) (Directory, error) {
	dir, err := f.Source.Stations(ctx)
	if err == nil || ctx.Err() != nil {
		return dir, err
	}
	f.log.Warn("station directory unavailable, using built-in table", zap.Error(err))
	return f.reference.Stations(ctx)
}

func (f *withFallback) FilterOptions(ctx context.Context) (FilterOptions, error) {
	opts, err := f.Source.FilterOptions(ctx)
	if err == nil || ctx.Err() != nil {
		return opts, err
	}
	f.log.Warn("filter options unavailable, using built-in lists", zap.Error(err))
	return f.reference.FilterOptions(ctx)
}
