// Package paging turns backend pagination into the controls shown under the
// records table.
package paging

import (
	"fmt"

	"ts-dashboard/internal/format"
	"ts-dashboard/internal/source"
)

// Control labels.
const (
	PrevLabel = "上一頁"
	NextLabel = "下一頁"
)

// Pager describes the rendered pagination controls.
type Pager struct {
	CurrentPage  int    `json:"currentPage"`
	TotalPages   int    `json:"totalPages"`
	TotalRecords int    `json:"totalRecords"`
	PageSize     int    `json:"pageSize"`
	First        int    `json:"first"`
	Last         int    `json:"last"`
	HasPrev      bool   `json:"hasPrev"`
	HasNext      bool   `json:"hasNext"`
	Summary      string `json:"summary"`
	PageLabel    string `json:"pageLabel"`
}

// Compute normalizes p. The page is taken from p, or from requested when the
// backend omitted it, and clamped into range.
func Compute(p source.Pagination, requested int) Pager {
	size := p.PageSize
	if size < 1 {
		size = source.DefaultPageSize
	}
	total := max(p.TotalRecords, 0)
	pages := (total + size - 1) / size

	current := p.CurrentPage
	if current < 1 {
		current = requested
	}
	current = min(max(current, 1), max(pages, 1))

	pg := Pager{
		CurrentPage:  current,
		TotalPages:   pages,
		TotalRecords: total,
		PageSize:     size,
		HasPrev:      current > 1,
		HasNext:      current < pages,
	}
	if total > 0 {
		pg.First = (current-1)*size + 1
		pg.Last = min(current*size, total)
	}
	pg.Summary = fmt.Sprintf("顯示 %s-%s 條，共 %s 條記錄",
		format.Int(int64(pg.First)), format.Int(int64(pg.Last)), format.Int(int64(total)))
	pg.PageLabel = fmt.Sprintf("第 %d 頁，共 %d 頁", current, pages)
	return pg
}

// Prev returns the previous page number, valid only when HasPrev.
func (p Pager) Prev() int { return p.CurrentPage - 1 }

// Next returns the next page number, valid only when HasNext.
func (p Pager) Next() int { return p.CurrentPage + 1 }
