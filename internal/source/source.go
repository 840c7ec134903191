// Package source provides the dashboard's data: a live variant backed by the
// reporting backend and a deterministic fixture variant for demo mode.
package source

import (
	"context"
	"errors"

	"ts-dashboard/internal/filter"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 50

var (
	// ErrUnknownStation is returned by credential checks for codes outside
	// the known directory.
	ErrUnknownStation = errors.New("unknown station code")
	// ErrRejected is returned when the backend declines a login without
	// giving a reason.
	ErrRejected = errors.New("login rejected")
)

// Query selects one page of filtered records.
type Query struct {
	Filters  filter.Selection
	Page     int
	PageSize int
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	q.Filters = q.Filters.Normalize()
	return q
}

// Verifier checks a station code and password digest.
type Verifier interface {
	Login(ctx context.Context, stationCode, digest string) (Account, error)
}

// Source is everything the dashboard reads.
type Source interface {
	Verifier
	Stations(ctx context.Context) (Directory, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	StationData(ctx context.Context, station string, q Query) (StationData, error)
	ComparisonStats(ctx context.Context, filters filter.Selection) ([]StationStats, error)
	ComparisonTable(ctx context.Context, q Query) (TablePage, error)
}
