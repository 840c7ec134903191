package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Station describes one transfer station.
type Station struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	IsAdmin bool   `json:"isAdmin"`
}

// Directory maps station codes to stations.
type Directory map[string]Station

// Codes returns the station codes in sorted order.
func (d Directory) Codes() []string {
	codes := make([]string, 0, len(d))
	for code := range d {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Get returns the station for code.
func (d Directory) Get(code string) (Station, bool) {
	s, ok := d[code]
	return s, ok
}

// FilterOptions are the values offered by the category and region controls.
type FilterOptions struct {
	WasteCategories []string `json:"wasteCategories"`
	SourceRegions   []string `json:"sourceRegions"`
}

// Account is the identity returned by a successful credential check.
type Account struct {
	StationCode string
	DisplayName string
	IsAdmin     bool
}

// Cell is a table cell. The backend sends strings, numbers or null; all are
// kept as text.
type Cell string

func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Cell(s)
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*c = Cell(b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("table cell: %w", err)
		}
		*c = Cell(n.String())
	}
	return nil
}

// Columns is the fixed column order of the records table and its export.
var Columns = []string{"轉運站", "日期", "交收狀態", "車輛任務", "入磅時間", "物料重量", "廢物類別", "來源"}

// Record is one transaction row.
type Record struct {
	Station       Cell `json:"TS_Name"`
	Date          Cell `json:"日期"`
	Status        Cell `json:"交收狀態"`
	VehicleTask   Cell `json:"車輛任務"`
	WeighInTime   Cell `json:"入磅時間"`
	Weight        Cell `json:"物料重量"`
	WasteCategory Cell `json:"廢物類別"`
	Source        Cell `json:"來源"`
}

// Values returns the cells in Columns order.
func (r Record) Values() []string {
	return []string{
		string(r.Station), string(r.Date), string(r.Status), string(r.VehicleTask),
		string(r.WeighInTime), string(r.Weight), string(r.WasteCategory), string(r.Source),
	}
}

// Number is a numeric field that may also arrive as a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Stats aggregates the records matching a query.
type Stats struct {
	TotalTransactions Number `json:"totalTransactions"`
	TotalWeight       Number `json:"totalWeight"`
	AvgWeight         Number `json:"avgWeight"`
	MaxWeight         Number `json:"maxWeight"`
}

// StationStats is one station's entry in a comparison.
type StationStats struct {
	Code  string `json:"tsCode"`
	Name  string `json:"tsName"`
	Color string `json:"color"`
	Stats Stats  `json:"stats"`
}

// Pagination is the backend's description of the returned page.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalRecords int `json:"totalRecords"`
	PageSize     int `json:"pageSize"`
}

// Dataset is one series of a chart.
type Dataset struct {
	Label  string    `json:"label"`
	Color  string    `json:"color,omitempty"`
	Colors []string  `json:"colors,omitempty"` // per point, for bar charts
	Data   []float64 `json:"data"`
}

// Chart is a labelled set of series.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// StationData is the result of a single-station query.
type StationData struct {
	Stats         Stats
	Records       []Record
	Pagination    Pagination
	MonthlyTrends *Chart
}

// TablePage is one page of the merged comparison table.
type TablePage struct {
	Records    []Record
	Pagination Pagination
}
