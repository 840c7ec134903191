// Package dashboard drives one logged-in dashboard: target selection, data
// loads, filters, pagination, export and logout.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ts-dashboard/internal/filter"
	"ts-dashboard/internal/gateway"
	"ts-dashboard/internal/nav"
	"ts-dashboard/internal/paging"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

// Renderer receives everything the controller displays.
type Renderer interface {
	RenderUser(s session.Session)
	RenderFilterOptions(opts source.FilterOptions)
	RenderFilters(sel filter.Selection)
	RenderNav(p nav.Panel)
	RevealContent()
	ShowLoading(on bool)
	ShowSkeleton(on bool)
	RenderStationStats(station source.Station, stats source.Stats)
	RenderComparisonStats(stats []source.StationStats)
	RenderCharts(trend, comparison *source.Chart)
	RenderTable(rows []source.Record)
	RenderPagination(p paging.Pager)
	ShowError(msg string)
}

// Config wires a Controller.
type Config struct {
	Source   source.Source
	Store    session.Store
	Renderer Renderer
	Logger   *zap.Logger
	Token    string
	Session  session.Session
	PageSize int
	Now      func() time.Time
}

// State is the controller's selection.
type State struct {
	Target  string
	Page    int
	Filters filter.Selection
}

// Controller owns the state of one dashboard. Methods are safe for
// concurrent use; loads run without holding the lock and a load whose
// generation has been superseded is discarded.
type Controller struct {
	src      source.Source
	store    session.Store
	r        Renderer
	log      *zap.Logger
	token    string
	sess     session.Session
	pageSize int
	now      func() time.Time

	mu       sync.Mutex
	dir      source.Directory
	panel    nav.Panel
	target   string
	filters  filter.Selection
	page     int
	gen      uint64
	rows     []source.Record
	revealed bool
}

// New creates a controller for the session in cfg.
func New(cfg Config) *Controller {
	if cfg.PageSize < 1 {
		cfg.PageSize = source.DefaultPageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller{
		src:      cfg.Source,
		store:    cfg.Store,
		r:        cfg.Renderer,
		log:      cfg.Logger.With(zap.String("station", cfg.Session.StationCode)),
		token:    cfg.Token,
		sess:     cfg.Session,
		pageSize: cfg.PageSize,
		now:      cfg.Now,
		dir:      source.Directory{},
		filters:  filter.Default(),
		page:     1,
	}
}

// Session returns the session the controller was created for.
func (c *Controller) Session() session.Session {
	return c.sess
}

// State returns the current selection.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Target: c.target, Page: c.page, Filters: c.filters}
}

func (c *Controller) scope(ctx context.Context) context.Context {
	return gateway.WithUser(ctx, c.sess.StationCode)
}

// reject shows and returns a validation error.
func (c *Controller) reject(kind, cause error) error {
	err := newValidationError(kind, cause)
	c.r.ShowError(err.Message)
	return err
}

// Initialize loads the station directory and filter options, builds the
// navigation and, for station users, selects their own station.
func (c *Controller) Initialize(ctx context.Context) error {
	ctx = c.scope(ctx)

	dir, err := c.src.Stations(ctx)
	if err != nil {
		c.log.Warn("failed to load station directory", zap.Error(err))
		c.r.ShowError(Message(err))
		dir = source.Directory{}
	}
	opts, err := c.src.FilterOptions(ctx)
	if err != nil {
		c.log.Warn("failed to load filter options", zap.Error(err))
		c.r.ShowError(Message(err))
	}

	c.mu.Lock()
	c.dir = dir
	c.panel = nav.Build(c.sess, dir)
	c.r.RenderUser(c.sess)
	c.r.RenderFilterOptions(opts)
	c.r.RenderFilters(c.filters)
	c.r.RenderNav(c.panel.Clone())
	c.mu.Unlock()

	if c.sess.IsAdmin {
		return nil
	}
	return c.SelectTarget(ctx, c.sess.StationCode)
}

// SelectTarget switches to a station or to the comparison view and loads
// its first page.
func (c *Controller) SelectTarget(ctx context.Context, target string) error {
	c.mu.Lock()
	switch {
	case target == nav.ComparisonTarget && !c.sess.IsAdmin:
		c.mu.Unlock()
		return c.reject(ErrAdminOnly, nil)
	case !c.panel.Contains(target):
		c.mu.Unlock()
		return c.reject(ErrUnknownTarget, nil)
	}

	c.panel.SetActive(target)
	c.target = target
	c.page = 1
	c.r.RenderNav(c.panel.Clone())
	if !c.revealed {
		c.revealed = true
		c.r.RevealContent()
	}
	filters := c.filters
	c.mu.Unlock()

	return c.load(ctx, target, filters, 1)
}

// ApplyFilters replaces the filter selection and reloads page 1 of the
// current target.
func (c *Controller) ApplyFilters(ctx context.Context, sel filter.Selection) error {
	c.mu.Lock()
	target := c.target
	if target == "" {
		c.mu.Unlock()
		return c.reject(ErrNoTargetSelected, nil)
	}
	sel = sel.Normalize()
	if err := sel.Validate(); err != nil {
		c.mu.Unlock()
		return c.reject(ErrInvalidFilters, err)
	}
	c.filters = sel
	c.page = 1
	c.r.RenderFilters(sel)
	c.mu.Unlock()

	return c.load(ctx, target, sel, 1)
}

// ChangePage reloads the current target at page with the same filters.
func (c *Controller) ChangePage(ctx context.Context, page int) error {
	c.mu.Lock()
	target, filters := c.target, c.filters
	c.mu.Unlock()

	if target == "" {
		return c.reject(ErrNoTargetSelected, nil)
	}
	return c.load(ctx, target, filters, max(page, 1))
}

func (c *Controller) load(ctx context.Context, target string, filters filter.Selection, page int) error {
	if target == nav.ComparisonTarget {
		return c.LoadComparison(ctx, filters, page)
	}
	return c.loadStation(ctx, target, filters, page)
}

// begin starts a load generation. Callers hold c.mu.
func (c *Controller) begin() uint64 {
	c.gen++
	c.r.ShowLoading(true)
	c.r.ShowSkeleton(true)
	return c.gen
}

// end clears the loading state. Callers hold c.mu.
func (c *Controller) end() {
	c.r.ShowSkeleton(false)
	c.r.ShowLoading(false)
}

// LoadSingleStation loads page of the selected station. On failure a banner
// is shown and the previous content stays in place.
func (c *Controller) LoadSingleStation(ctx context.Context, filters filter.Selection, page int) error {
	c.mu.Lock()
	station := c.target
	c.mu.Unlock()
	return c.loadStation(ctx, station, filters, page)
}

// loadStation loads page of station, the target captured by the caller.
func (c *Controller) loadStation(ctx context.Context, station string, filters filter.Selection, page int) error {
	if station == "" || station == nav.ComparisonTarget {
		return c.reject(ErrNoTargetSelected, nil)
	}

	c.mu.Lock()
	gen := c.begin()
	c.mu.Unlock()

	data, err := c.src.StationData(c.scope(ctx), station, source.Query{Filters: filters, Page: page, PageSize: c.pageSize})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("discarding stale station data", zap.String("target", station), zap.Uint64("generation", gen))
		return nil
	}
	defer c.end()

	if err != nil {
		c.log.Warn("failed to load station data", zap.String("target", station), zap.Error(err))
		c.r.ShowError(Message(err))
		return err
	}

	st, ok := c.dir.Get(station)
	if !ok {
		st = source.Station{Code: station, Name: station}
	}
	pager := paging.Compute(data.Pagination, page)
	c.page = pager.CurrentPage
	c.rows = data.Records
	c.r.RenderStationStats(st, data.Stats)
	c.r.RenderCharts(data.MonthlyTrends, nil)
	c.r.RenderTable(data.Records)
	c.r.RenderPagination(pager)
	return nil
}

// LoadComparison loads the cross-station statistics and page of the merged
// table concurrently and renders them once both have arrived.
func (c *Controller) LoadComparison(ctx context.Context, filters filter.Selection, page int) error {
	if !c.sess.IsAdmin {
		return c.reject(ErrAdminOnly, nil)
	}

	c.mu.Lock()
	gen := c.begin()
	c.mu.Unlock()

	var (
		stats []source.StationStats
		table source.TablePage
	)
	g, gctx := errgroup.WithContext(c.scope(ctx))
	g.Go(func() error {
		var err error
		stats, err = c.src.ComparisonStats(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		table, err = c.src.ComparisonTable(gctx, source.Query{Filters: filters, Page: page, PageSize: c.pageSize})
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("discarding stale comparison data", zap.Uint64("generation", gen))
		return nil
	}
	defer c.end()

	if err != nil {
		c.log.Warn("failed to load comparison data", zap.Error(err))
		c.r.ShowError(Message(err))
		return err
	}

	pager := paging.Compute(table.Pagination, page)
	c.page = pager.CurrentPage
	c.rows = table.Records
	c.r.RenderComparisonStats(stats)
	c.r.RenderCharts(nil, ComparisonChart(stats, c.dir))
	c.r.RenderTable(table.Records)
	c.r.RenderPagination(pager)
	return nil
}

// ComparisonChart derives the per-station total weight chart, leaving out
// admin stations.
func ComparisonChart(stats []source.StationStats, dir source.Directory) *source.Chart {
	chart := &source.Chart{}
	ds := source.Dataset{Label: "總重量 (噸)"}
	for _, s := range stats {
		if st, ok := dir.Get(s.Code); ok && st.IsAdmin {
			continue
		}
		chart.Labels = append(chart.Labels, s.Name)
		ds.Colors = append(ds.Colors, s.Color)
		ds.Data = append(ds.Data, float64(s.Stats.TotalWeight))
	}
	if len(chart.Labels) == 0 {
		return nil
	}
	chart.Datasets = []source.Dataset{ds}
	return chart
}

// Export is a generated CSV download.
type Export struct {
	Filename string
	Data     []byte
}

// ExportCSV serializes the rows currently shown in the table.
func (c *Controller) ExportCSV() (Export, error) {
	c.mu.Lock()
	target, rows := c.target, c.rows
	c.mu.Unlock()

	if target == "" {
		return Export{}, c.reject(ErrNoTargetSelected, nil)
	}
	if len(rows) == 0 {
		return Export{}, c.reject(ErrNoDataToExport, nil)
	}

	data, err := EncodeCSV(rows)
	if err != nil {
		return Export{}, err
	}
	return Export{
		Filename: fmt.Sprintf("%s_%s.csv", target, c.now().Format(filter.DateLayout)),
		Data:     data,
	}, nil
}

// Logout clears the stored session and discards any load in flight.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()

	if err := c.store.Clear(ctx, c.token); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	c.log.Info("logged out")
	return nil
}
