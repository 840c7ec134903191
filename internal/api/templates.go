package api

import (
	"embed"
	"html/template"
	"slices"

	"ts-dashboard/internal/filter"
)

//go:embed templates/*.html
var templateFS embed.FS

type rangeOption struct {
	Value filter.RangeType
	Label string
}

var rangeOptions = []rangeOption{
	{filter.RangeAll, "全部時間"},
	{filter.RangeOneYear, "最近一年"},
	{filter.RangeSixMonths, "最近6個月"},
	{filter.RangeThreeMonths, "最近3個月"},
	{filter.RangeOneMonth, "最近1個月"},
	{filter.RangeCurrentQuarter, "本季度"},
	{filter.RangeLastQuarter, "上季度"},
	{filter.RangeCurrentYear, "今年"},
	{filter.RangeCustom, "自定義範圍"},
	{filter.RangeSpecificDate, "指定日期"},
}

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"rangeOptions": func() []rangeOption { return rangeOptions },
		"contains":     slices.Contains[[]string, string],
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
