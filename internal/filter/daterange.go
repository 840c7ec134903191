package filter

import (
	"fmt"
	"time"
)

// Span is a resolved, inclusive range of calendar days. An unbounded span
// contains every day.
type Span struct {
	From    time.Time
	To      time.Time
	Bounded bool
}

// Contains reports whether the calendar day of t lies within the span.
func (s Span) Contains(t time.Time) bool {
	if !s.Bounded {
		return true
	}
	day := truncateDay(t.In(s.From.Location()))
	return !day.Before(s.From) && !day.After(s.To)
}

// Validate checks the type and the dates it requires.
func (r DateRange) Validate() error {
	switch r.Type {
	case RangeAll, "", RangeOneYear, RangeSixMonths, RangeThreeMonths, RangeOneMonth,
		RangeCurrentQuarter, RangeLastQuarter, RangeCurrentYear:
		return nil
	case RangeCustom:
		start, err := parseDate("startDate", r.StartDate)
		if err != nil {
			return err
		}
		end, err := parseDate("endDate", r.EndDate)
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("%w: endDate %s is before startDate %s", ErrInvalidDateRange, r.EndDate, r.StartDate)
		}
		return nil
	case RangeSpecificDate:
		_, err := parseDate("date", r.Date)
		return err
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDateRange, r.Type)
	}
}

// Bounds resolves the range against now. Relative ranges end today; quarters
// are calendar quarters.
func (r DateRange) Bounds(now time.Time) (Span, error) {
	if err := r.Validate(); err != nil {
		return Span{}, err
	}
	loc := now.Location()
	today := truncateDay(now)

	switch r.Type {
	case RangeOneYear:
		return Span{From: today.AddDate(-1, 0, 0), To: today, Bounded: true}, nil
	case RangeSixMonths:
		return Span{From: today.AddDate(0, -6, 0), To: today, Bounded: true}, nil
	case RangeThreeMonths:
		return Span{From: today.AddDate(0, -3, 0), To: today, Bounded: true}, nil
	case RangeOneMonth:
		return Span{From: today.AddDate(0, -1, 0), To: today, Bounded: true}, nil
	case RangeCurrentQuarter:
		return Span{From: quarterStart(today), To: today, Bounded: true}, nil
	case RangeLastQuarter:
		start := quarterStart(today).AddDate(0, -3, 0)
		return Span{From: start, To: start.AddDate(0, 3, -1), Bounded: true}, nil
	case RangeCurrentYear:
		return Span{From: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, loc), To: today, Bounded: true}, nil
	case RangeCustom:
		from, _ := time.ParseInLocation(DateLayout, r.StartDate, loc)
		to, _ := time.ParseInLocation(DateLayout, r.EndDate, loc)
		return Span{From: from, To: to, Bounded: true}, nil
	case RangeSpecificDate:
		day, _ := time.ParseInLocation(DateLayout, r.Date, loc)
		return Span{From: day, To: day, Bounded: true}, nil
	default:
		return Span{}, nil
	}
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidDateRange, field)
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", ErrInvalidDateRange, field, v)
	}
	return t, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func quarterStart(t time.Time) time.Time {
	month := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location())
}
