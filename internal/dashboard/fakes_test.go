package dashboard

import (
	"context"
	"sync"

	"ts-dashboard/internal/filter"
	"ts-dashboard/internal/nav"
	"ts-dashboard/internal/paging"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

// fakeSource answers from functions and counts calls per method.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int

	stations        func(ctx context.Context) (source.Directory, error)
	stationData     func(ctx context.Context, station string, q source.Query) (source.StationData, error)
	comparisonStats func(ctx context.Context, f filter.Selection) ([]source.StationStats, error)
	comparisonTable func(ctx context.Context, q source.Query) (source.TablePage, error)
}

func (f *fakeSource) count(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

func (f *fakeSource) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSource) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeSource) Login(context.Context, string, string) (source.Account, error) {
	f.count("Login")
	return source.Account{}, nil
}

func (f *fakeSource) Stations(ctx context.Context) (source.Directory, error) {
	f.count("Stations")
	if f.stations != nil {
		return f.stations(ctx)
	}
	return source.DemoDirectory(), nil
}

func (f *fakeSource) FilterOptions(context.Context) (source.FilterOptions, error) {
	f.count("FilterOptions")
	return source.DemoFilterOptions(), nil
}

func (f *fakeSource) StationData(ctx context.Context, station string, q source.Query) (source.StationData, error) {
	f.count("StationData")
	return f.stationData(ctx, station, q)
}

func (f *fakeSource) ComparisonStats(ctx context.Context, sel filter.Selection) ([]source.StationStats, error) {
	f.count("ComparisonStats")
	return f.comparisonStats(ctx, sel)
}

func (f *fakeSource) ComparisonTable(ctx context.Context, q source.Query) (source.TablePage, error) {
	f.count("ComparisonTable")
	return f.comparisonTable(ctx, q)
}

// recorder keeps the last value passed to each render method.
type recorder struct {
	mu         sync.Mutex
	user       session.Session
	panel      nav.Panel
	revealed   int
	loading    bool
	skeleton   bool
	station    source.Station
	stats      source.Stats
	comparison []source.StationStats
	trend      *source.Chart
	compChart  *source.Chart
	rows       []source.Record
	pager      paging.Pager
	filters    filter.Selection
	options    source.FilterOptions
	errors     []string
}

func (r *recorder) RenderUser(s session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = s
}

func (r *recorder) RenderFilterOptions(o source.FilterOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = o
}

func (r *recorder) RenderFilters(s filter.Selection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = s
}

func (r *recorder) RenderNav(p nav.Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panel = p
}

func (r *recorder) RevealContent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealed++
}

func (r *recorder) ShowLoading(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = on
}

func (r *recorder) ShowSkeleton(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skeleton = on
}

func (r *recorder) RenderStationStats(st source.Station, s source.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.station, r.stats = st, s
}

func (r *recorder) RenderComparisonStats(s []source.StationStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comparison = s
}

func (r *recorder) RenderCharts(trend, comparison *source.Chart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trend, r.compChart = trend, comparison
}

func (r *recorder) RenderTable(rows []source.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func (r *recorder) RenderPagination(p paging.Pager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pager = p
}

func (r *recorder) ShowError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func (r *recorder) Rows() []source.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

func (r *recorder) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// rowsFor builds n distinguishable rows.
func rowsFor(label string, n int) []source.Record {
	out := make([]source.Record, n)
	for i := range out {
		out[i] = source.Record{Station: source.Cell(label), Date: source.Cell("2024-05-01"), VehicleTask: source.Cell(label + "-" + string(rune('a'+i)))}
	}
	return out
}

func stationPage(label string, page, total int) source.StationData {
	return source.StationData{
		Stats:      source.Stats{TotalTransactions: source.Number(total)},
		Records:    rowsFor(label, 3),
		Pagination: source.Pagination{CurrentPage: page, TotalRecords: total, PageSize: 50},
	}
}
