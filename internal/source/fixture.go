package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"ts-dashboard/internal/filter"
)

const (
	fixtureRecordsPerStation = 240
	fixtureHistoryDays       = 400
)

type fixtureRecord struct {
	station  string
	at       time.Time
	weight   float64
	category string
	region   string
	record   Record
}

// Fixture serves deterministic demo data for the seven known stations.
type Fixture struct {
	dir     Directory
	options FilterOptions
	records map[string][]fixtureRecord
	now     func() time.Time
}

// NewFixture generates the demo data set relative to now(). A nil now uses
// time.Now; loc sets the calendar used for dates.
func NewFixture(now func() time.Time, loc *time.Location) *Fixture {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	clock := func() time.Time { return now().In(loc) }

	f := &Fixture{
		dir:     DemoDirectory(),
		options: DemoFilterOptions(),
		records: make(map[string][]fixtureRecord),
		now:     clock,
	}
	today := clock()
	for _, st := range demoStations {
		if st.IsAdmin {
			continue
		}
		f.records[st.Code] = generate(st, today)
	}
	return f
}

func generate(st Station, today time.Time) []fixtureRecord {
	h := fnv.New64a()
	h.Write([]byte(st.Code))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0x7473))

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	out := make([]fixtureRecord, 0, fixtureRecordsPerStation)
	for i := 0; i < fixtureRecordsPerStation; i++ {
		at := day.AddDate(0, 0, -rng.IntN(fixtureHistoryDays)).
			Add(time.Duration(6+rng.IntN(14))*time.Hour + time.Duration(rng.IntN(60))*time.Minute)
		weight := math.Round((2+rng.Float64()*28)*100) / 100
		category := demoCategories[rng.IntN(len(demoCategories))]
		region := demoRegions[rng.IntN(len(demoRegions))]

		out = append(out, fixtureRecord{
			station:  st.Code,
			at:       at,
			weight:   weight,
			category: category,
			region:   region,
			record: Record{
				Station:       Cell(st.Name),
				Date:          Cell(at.Format(filter.DateLayout)),
				Status:        Cell(demoStatuses[rng.IntN(len(demoStatuses))]),
				VehicleTask:   Cell(fmt.Sprintf("%s-%04d", demoTasks[rng.IntN(len(demoTasks))], rng.IntN(10000))),
				WeighInTime:   Cell(at.Format("15:04")),
				Weight:        Cell(strconv.FormatFloat(weight, 'f', 2, 64)),
				WasteCategory: Cell(category),
				Source:        Cell(region),
			},
		})
	}
	sortRecords(out)
	return out
}

// sortRecords orders newest first, then by station code.
func sortRecords(recs []fixtureRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].at.Equal(recs[j].at) {
			return recs[i].at.After(recs[j].at)
		}
		return recs[i].station < recs[j].station
	})
}

func (f *Fixture) Login(ctx context.Context, stationCode, _ string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	st, ok := f.dir.Get(stationCode)
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownStation, stationCode)
	}
	return Account{StationCode: st.Code, DisplayName: st.Name, IsAdmin: st.IsAdmin}, nil
}

func (f *Fixture) Stations(ctx context.Context) (Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DemoDirectory(), nil
}

func (f *Fixture) FilterOptions(ctx context.Context) (FilterOptions, error) {
	if err := ctx.Err(); err != nil {
		return FilterOptions{}, err
	}
	return DemoFilterOptions(), nil
}

func (f *Fixture) filtered(code string, sel filter.Selection) ([]fixtureRecord, error) {
	span, err := sel.DateRange.Bounds(f.now())
	if err != nil {
		return nil, err
	}
	var out []fixtureRecord
	for _, r := range f.records[code] {
		if span.Contains(r.at) && sel.Matches(r.category, r.region) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fixture) StationData(ctx context.Context, station string, q Query) (StationData, error) {
	if err := ctx.Err(); err != nil {
		return StationData{}, err
	}
	if _, ok := f.dir.Get(station); !ok {
		return StationData{}, fmt.Errorf("%w: %s", ErrUnknownStation, station)
	}
	q = q.normalized()
	recs, err := f.filtered(station, q.Filters)
	if err != nil {
		return StationData{}, err
	}

	rows, pagination := paginate(recs, q)
	return StationData{
		Stats:         aggregate(recs),
		Records:       rows,
		Pagination:    pagination,
		MonthlyTrends: f.monthlyTrends(station, recs),
	}, nil
}

func (f *Fixture) ComparisonStats(ctx context.Context, filters filter.Selection) ([]StationStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filters = filters.Normalize()

	var out []StationStats
	for _, code := range f.dir.Codes() {
		st := f.dir[code]
		if st.IsAdmin {
			continue
		}
		recs, err := f.filtered(code, filters)
		if err != nil {
			return nil, err
		}
		out = append(out, StationStats{Code: code, Name: st.Name, Color: st.Color, Stats: aggregate(recs)})
	}
	return out, nil
}

func (f *Fixture) ComparisonTable(ctx context.Context, q Query) (TablePage, error) {
	if err := ctx.Err(); err != nil {
		return TablePage{}, err
	}
	q = q.normalized()

	var merged []fixtureRecord
	for _, code := range f.dir.Codes() {
		recs, err := f.filtered(code, q.Filters)
		if err != nil {
			return TablePage{}, err
		}
		merged = append(merged, recs...)
	}
	sortRecords(merged)

	rows, pagination := paginate(merged, q)
	return TablePage{Records: rows, Pagination: pagination}, nil
}

func (f *Fixture) monthlyTrends(station string, recs []fixtureRecord) *Chart {
	if len(recs) == 0 {
		return nil
	}
	totals := make(map[string]float64)
	for _, r := range recs {
		totals[r.at.Format("2006-01")] += r.weight
	}
	labels := make([]string, 0, len(totals))
	for month := range totals {
		labels = append(labels, month)
	}
	sort.Strings(labels)

	st := f.dir[station]
	ds := Dataset{Label: st.Name, Color: st.Color, Data: make([]float64, len(labels))}
	for i, month := range labels {
		ds.Data[i] = round2(totals[month])
	}
	return &Chart{Labels: labels, Datasets: []Dataset{ds}}
}

func aggregate(recs []fixtureRecord) Stats {
	if len(recs) == 0 {
		return Stats{}
	}
	var total, peak float64
	for _, r := range recs {
		total += r.weight
		peak = math.Max(peak, r.weight)
	}
	return Stats{
		TotalTransactions: Number(len(recs)),
		TotalWeight:       Number(round2(total)),
		AvgWeight:         Number(round2(total / float64(len(recs)))),
		MaxWeight:         Number(peak),
	}
}

func paginate(recs []fixtureRecord, q Query) ([]Record, Pagination) {
	total := len(recs)
	pages := (total + q.PageSize - 1) / q.PageSize
	page := q.Page
	if page > pages && pages > 0 {
		page = pages
	}

	start := (page - 1) * q.PageSize
	end := min(start+q.PageSize, total)
	rows := make([]Record, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		rows = append(rows, recs[i].record)
	}
	return rows, Pagination{CurrentPage: page, TotalPages: pages, TotalRecords: total, PageSize: q.PageSize}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
