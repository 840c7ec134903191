// Package filter holds the user's current date-range, waste-category and
// source-region selection and derives the backend `filters` parameter from it.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// DateLayout is the wire format of every date in a selection.
const DateLayout = "2006-01-02"

// RangeType tags a DateRange.
type RangeType string

const (
	RangeAll            RangeType = "all"
	RangeOneYear        RangeType = "1year"
	RangeSixMonths      RangeType = "6months"
	RangeThreeMonths    RangeType = "3months"
	RangeOneMonth       RangeType = "1month"
	RangeCurrentQuarter RangeType = "currentQuarter"
	RangeLastQuarter    RangeType = "lastQuarter"
	RangeCurrentYear    RangeType = "currentYear"
	RangeCustom         RangeType = "custom"
	RangeSpecificDate   RangeType = "specificDate"
)

// ErrInvalidDateRange is returned for unknown or incomplete date ranges.
var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is a tagged date range. StartDate and EndDate apply to
// RangeCustom, Date to RangeSpecificDate.
type DateRange struct {
	Type      RangeType `json:"type"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	Date      string    `json:"date,omitempty"`
}

// Selection is the complete filter state of a dashboard.
type Selection struct {
	DateRange       DateRange `json:"dateRange"`
	WasteCategories []string  `json:"wasteCategories"`
	SourceRegions   []string  `json:"sourceRegions"`
}

// Default returns the selection used when no control has been touched:
// every date, every category, every region.
func Default() Selection {
	return Selection{
		DateRange:       DateRange{Type: RangeAll},
		WasteCategories: []string{},
		SourceRegions:   []string{},
	}
}

// Normalize trims values, drops the fields that do not apply to the range
// type, and sorts and de-duplicates the lists.
func (s Selection) Normalize() Selection {
	out := Selection{
		DateRange:       s.DateRange,
		WasteCategories: uniqueSorted(s.WasteCategories),
		SourceRegions:   uniqueSorted(s.SourceRegions),
	}
	r := &out.DateRange
	r.Type = RangeType(strings.TrimSpace(string(r.Type)))
	if r.Type == "" {
		r.Type = RangeAll
	}
	switch r.Type {
	case RangeCustom:
		r.StartDate = strings.TrimSpace(r.StartDate)
		r.EndDate = strings.TrimSpace(r.EndDate)
		r.Date = ""
	case RangeSpecificDate:
		r.Date = strings.TrimSpace(r.Date)
		r.StartDate, r.EndDate = "", ""
	default:
		r.StartDate, r.EndDate, r.Date = "", "", ""
	}
	return out
}

// Validate checks the date range. Lists are always valid.
func (s Selection) Validate() error {
	return s.DateRange.Validate()
}

// Encode returns the JSON form sent as the backend `filters` parameter.
func (s Selection) Encode() (string, error) {
	b, err := json.Marshal(s.Normalize())
	if err != nil {
		return "", fmt.Errorf("encode filters: %w", err)
	}
	return string(b), nil
}

// Matches reports whether a record with the given category and region passes
// the list filters. An empty list matches everything.
func (s Selection) Matches(category, region string) bool {
	return contains(s.WasteCategories, category) && contains(s.SourceRegions, region)
}

func contains(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// FromValues reads a submitted filter form. Absent controls take their
// defaults. Both singular and plural list keys are accepted.
func FromValues(v url.Values) Selection {
	s := Default()
	if t := v.Get("dateRange"); t != "" {
		s.DateRange.Type = RangeType(t)
	}
	s.DateRange.StartDate = v.Get("startDate")
	s.DateRange.EndDate = v.Get("endDate")
	s.DateRange.Date = v.Get("date")

	s.WasteCategories = append(s.WasteCategories, v["wasteCategory"]...)
	s.WasteCategories = append(s.WasteCategories, v["wasteCategories"]...)
	s.SourceRegions = append(s.SourceRegions, v["sourceRegion"]...)
	s.SourceRegions = append(s.SourceRegions, v["sourceRegions"]...)
	return s.Normalize()
}
