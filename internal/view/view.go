// Package view keeps the renderable state of a dashboard as a snapshot and
// publishes every change to subscribers.
package view

import (
	"html"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"ts-dashboard/internal/filter"
	"ts-dashboard/internal/format"
	"ts-dashboard/internal/nav"
	"ts-dashboard/internal/paging"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

// DefaultBannerTTL is how long an error banner stays up.
const DefaultBannerTTL = 10 * time.Second

// Display text.
const (
	RoleAdmin       = "管理員"
	RoleStation     = "轉運站用戶"
	LoadingText     = "加載數據中..."
	ComparisonTitle = "比較全部"
	NoStatsText     = "選定的篩選條件沒有可用數據"
	NoChartsText    = "沒有可用的圖表數據"
	NoRecordsText   = "沒有找到記錄"
	TrendTitle      = "月度趨勢 - 總重量"
	CompareTitle    = "轉運站比較"
)

// User is the header identity.
type User struct {
	StationCode string `json:"stationCode"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Skeleton is the number of placeholders shown while loading.
type Skeleton struct {
	StatCards int `json:"statCards"`
	Charts    int `json:"charts"`
	Rows      int `json:"rows"`
}

// StatCard is one statistics card.
type StatCard struct {
	Title   string   `json:"title"`
	Value   string   `json:"value"`
	Label   string   `json:"label"`
	Color   string   `json:"color,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Chart is a chart ready for the client-side chart library.
type Chart struct {
	Title    string           `json:"title"`
	Kind     string           `json:"kind"`
	Labels   []string         `json:"labels"`
	Datasets []source.Dataset `json:"datasets"`
}

// Table is the records table.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Banner is a dismissible error message.
type Banner struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Snapshot is the complete rendered state of a dashboard.
type Snapshot struct {
	Version       uint64               `json:"version"`
	User          User                 `json:"user"`
	Nav           nav.Panel            `json:"nav"`
	Welcome       bool                 `json:"welcome"`
	Content       bool                 `json:"contentVisible"`
	Loading       bool                 `json:"loading"`
	LoadingText   string               `json:"loadingText,omitempty"`
	Skeleton      *Skeleton            `json:"skeleton,omitempty"`
	Heading       string               `json:"heading"`
	Stats         []StatCard           `json:"stats"`
	StatsEmpty    string               `json:"statsEmpty,omitempty"`
	Charts        []Chart              `json:"charts"`
	ChartsEmpty   string               `json:"chartsEmpty,omitempty"`
	Table         Table                `json:"table"`
	TableEmpty    string               `json:"tableEmpty,omitempty"`
	Pagination    *paging.Pager        `json:"pagination,omitempty"`
	FilterOptions source.FilterOptions `json:"filterOptions"`
	Filters       filter.Selection     `json:"filters"`
	Banners       []Banner             `json:"banners"`
}

// Options configure a Model.
type Options struct {
	BannerTTL time.Duration
	Now       func() time.Time
}

// Model implements the dashboard renderer on a Snapshot.
type Model struct {
	mu      sync.Mutex
	snap    Snapshot
	subs    map[uint64]chan Snapshot
	nextSub uint64
	timers  map[string]*time.Timer
	closed  bool

	ttl    time.Duration
	now    func() time.Time
	policy *bluemonday.Policy
}

// New creates an empty model showing the welcome panel.
func New(opts Options) *Model {
	if opts.BannerTTL <= 0 {
		opts.BannerTTL = DefaultBannerTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Model{
		snap: Snapshot{
			Welcome: true,
			Table:   Table{Columns: source.Columns},
			Filters: filter.Default(),
		},
		subs:   make(map[uint64]chan Snapshot),
		timers: make(map[string]*time.Timer),
		ttl:    opts.BannerTTL,
		now:    opts.Now,
		policy: bluemonday.StrictPolicy(),
	}
}

// plainText strips markup from backend-provided text.
func (m *Model) plainText(s string) string {
	return html.UnescapeString(m.policy.Sanitize(s))
}

// Snapshot returns the current state without expired banners.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pruneLocked() {
		m.snap.Version++
	}
	return m.snap
}

// Subscribe returns a channel receiving every new snapshot, starting with
// the current one. Slow readers only see the latest snapshot.
func (m *Model) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snap

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops banner timers and closes every subscription.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// update applies fn, bumps the version and publishes. Callers must not hold m.mu.
func (m *Model) update(fn func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.snap)
	m.pruneLocked()
	m.snap.Version++
	m.publishLocked()
}

func (m *Model) publishLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- m.snap:
			continue
		default:
		}
		// Replace the unread snapshot with the latest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- m.snap:
		default:
		}
	}
}

// pruneLocked drops expired banners and reports whether any were dropped.
func (m *Model) pruneLocked() bool {
	now := m.now()
	kept := make([]Banner, 0, len(m.snap.Banners))
	for _, b := range m.snap.Banners {
		if now.Before(b.ExpiresAt) {
			kept = append(kept, b)
			continue
		}
		if t, ok := m.timers[b.ID]; ok {
			t.Stop()
			delete(m.timers, b.ID)
		}
	}
	if len(kept) == len(m.snap.Banners) {
		return false
	}
	m.snap.Banners = kept
	return true
}

// Dismiss removes the banner with id. It reports whether it was shown.
func (m *Model) Dismiss(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]Banner, 0, len(m.snap.Banners))
	for _, b := range m.snap.Banners {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	if len(kept) == len(m.snap.Banners) {
		return false
	}
	m.snap.Banners = kept
	m.snap.Version++
	m.publishLocked()
	return true
}

// ShowError adds a banner that expires after the banner TTL.
func (m *Model) ShowError(msg string) {
	id := uuid.NewString()
	m.update(func(s *Snapshot) {
		banners := make([]Banner, 0, len(s.Banners)+1)
		banners = append(banners, s.Banners...)
		s.Banners = append(banners, Banner{ID: id, Message: m.plainText(msg), ExpiresAt: m.now().Add(m.ttl)})
		if !m.closed {
			m.timers[id] = time.AfterFunc(m.ttl, func() { m.Dismiss(id) })
		}
	})
}

func (m *Model) RenderUser(sess session.Session) {
	role := RoleStation
	if sess.IsAdmin {
		role = RoleAdmin
	}
	m.update(func(s *Snapshot) {
		s.User = User{StationCode: sess.StationCode, DisplayName: sess.DisplayName, Role: role, IsAdmin: sess.IsAdmin}
	})
}

func (m *Model) RenderFilterOptions(opts source.FilterOptions) {
	m.update(func(s *Snapshot) { s.FilterOptions = opts })
}

func (m *Model) RenderFilters(sel filter.Selection) {
	m.update(func(s *Snapshot) { s.Filters = sel })
}

func (m *Model) RenderNav(p nav.Panel) {
	p = p.Clone()
	for i := range p.Sections {
		for j := range p.Sections[i].Entries {
			e := &p.Sections[i].Entries[j]
			e.Label = m.plainText(e.Label)
			e.Name = m.plainText(e.Name)
		}
	}
	m.update(func(s *Snapshot) { s.Nav = p })
}

func (m *Model) RevealContent() {
	m.update(func(s *Snapshot) {
		s.Welcome = false
		s.Content = true
	})
}

func (m *Model) ShowLoading(on bool) {
	m.update(func(s *Snapshot) {
		s.Loading = on
		s.LoadingText = ""
		if on {
			s.LoadingText = LoadingText
		}
	})
}

func (m *Model) ShowSkeleton(on bool) {
	m.update(func(s *Snapshot) {
		s.Skeleton = nil
		if on {
			s.Skeleton = &Skeleton{StatCards: 6, Charts: 2, Rows: 5}
		}
	})
}

func tonnes(n source.Number) string {
	return format.Decimal(float64(n)) + " 噸"
}

func (m *Model) RenderStationStats(st source.Station, stats source.Stats) {
	cards := []StatCard{
		{Title: "總交易數", Value: format.Int(int64(stats.TotalTransactions)), Label: "筆", Color: st.Color},
		{Title: "總重量", Value: tonnes(stats.TotalWeight), Label: "物料重量", Color: st.Color},
		{Title: "平均重量", Value: tonnes(stats.AvgWeight), Label: "每筆", Color: st.Color},
		{Title: "最高重量", Value: tonnes(stats.MaxWeight), Label: "單筆", Color: st.Color},
	}
	heading := m.plainText(st.Name)
	m.update(func(s *Snapshot) {
		s.Heading = heading
		s.Stats = cards
		s.StatsEmpty = ""
	})
}

func (m *Model) RenderComparisonStats(list []source.StationStats) {
	cards := make([]StatCard, 0, len(list))
	for _, ts := range list {
		cards = append(cards, StatCard{
			Title: m.plainText(ts.Name),
			Value: format.Int(int64(ts.Stats.TotalTransactions)),
			Label: "總交易數",
			Color: ts.Color,
			Details: []string{
				"總重量: " + tonnes(ts.Stats.TotalWeight),
				"平均: " + tonnes(ts.Stats.AvgWeight),
				"最高: " + tonnes(ts.Stats.MaxWeight),
			},
		})
	}
	m.update(func(s *Snapshot) {
		s.Heading = ComparisonTitle
		s.Stats = cards
		s.StatsEmpty = ""
		if len(cards) == 0 {
			s.StatsEmpty = NoStatsText
		}
	})
}

func (m *Model) RenderCharts(trend, comparison *source.Chart) {
	var charts []Chart
	if trend != nil {
		charts = append(charts, Chart{Title: TrendTitle, Kind: "line", Labels: trend.Labels, Datasets: trend.Datasets})
	}
	if comparison != nil {
		charts = append(charts, Chart{Title: CompareTitle, Kind: "bar", Labels: comparison.Labels, Datasets: comparison.Datasets})
	}
	m.update(func(s *Snapshot) {
		s.Charts = charts
		s.ChartsEmpty = ""
		if len(charts) == 0 {
			s.ChartsEmpty = NoChartsText
		}
	})
}

func (m *Model) RenderTable(records []source.Record) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Values()
	}
	m.update(func(s *Snapshot) {
		s.Table = Table{Columns: source.Columns, Rows: rows}
		s.TableEmpty = ""
		if len(rows) == 0 {
			s.TableEmpty = NoRecordsText
		}
	})
}

func (m *Model) RenderPagination(p paging.Pager) {
	m.update(func(s *Snapshot) { s.Pagination = &p })
}
