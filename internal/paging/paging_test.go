package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ts-dashboard/internal/source"
)

func TestCompute(t *testing.T) {
	testCases := []struct {
		name      string
		in        source.Pagination
		requested int
		want      Pager
	}{
		{
			name: "First page",
			in:   source.Pagination{CurrentPage: 1, TotalRecords: 120, PageSize: 50},
			want: Pager{CurrentPage: 1, TotalPages: 3, TotalRecords: 120, PageSize: 50, First: 1, Last: 50,
				HasNext: true, Summary: "顯示 1-50 條，共 120 條記錄", PageLabel: "第 1 頁，共 3 頁"},
		},
		{
			name: "Middle page",
			in:   source.Pagination{CurrentPage: 2, TotalRecords: 120, PageSize: 50},
			want: Pager{CurrentPage: 2, TotalPages: 3, TotalRecords: 120, PageSize: 50, First: 51, Last: 100,
				HasPrev: true, HasNext: true, Summary: "顯示 51-100 條，共 120 條記錄", PageLabel: "第 2 頁，共 3 頁"},
		},
		{
			name: "Last partial page",
			in:   source.Pagination{CurrentPage: 3, TotalRecords: 120, PageSize: 50},
			want: Pager{CurrentPage: 3, TotalPages: 3, TotalRecords: 120, PageSize: 50, First: 101, Last: 120,
				HasPrev: true, Summary: "顯示 101-120 條，共 120 條記錄", PageLabel: "第 3 頁，共 3 頁"},
		},
		{
			name: "Backend total pages ignored",
			in:   source.Pagination{CurrentPage: 1, TotalPages: 9, TotalRecords: 10, PageSize: 5},
			want: Pager{CurrentPage: 1, TotalPages: 2, TotalRecords: 10, PageSize: 5, First: 1, Last: 5,
				HasNext: true, Summary: "顯示 1-5 條，共 10 條記錄", PageLabel: "第 1 頁，共 2 頁"},
		},
		{
			name: "Empty result",
			in:   source.Pagination{CurrentPage: 1, TotalRecords: 0, PageSize: 50},
			want: Pager{CurrentPage: 1, PageSize: 50, Summary: "顯示 0-0 條，共 0 條記錄", PageLabel: "第 1 頁，共 0 頁"},
		},
		{
			name:      "Missing page size and page",
			in:        source.Pagination{TotalRecords: 12345},
			requested: 2,
			want: Pager{CurrentPage: 2, TotalPages: 247, TotalRecords: 12345, PageSize: 50, First: 51, Last: 100,
				HasPrev: true, HasNext: true, Summary: "顯示 51-100 條，共 12,345 條記錄", PageLabel: "第 2 頁，共 247 頁"},
		},
		{
			name: "Page beyond range is clamped",
			in:   source.Pagination{CurrentPage: 7, TotalRecords: 60, PageSize: 50},
			want: Pager{CurrentPage: 2, TotalPages: 2, TotalRecords: 60, PageSize: 50, First: 51, Last: 60,
				HasPrev: true, Summary: "顯示 51-60 條，共 60 條記錄", PageLabel: "第 2 頁，共 2 頁"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.in, tc.requested))
		})
	}
}

func TestCompute_ControlsNeverPointOutOfRange(t *testing.T) {
	for total := 0; total <= 130; total += 7 {
		for size := 1; size <= 60; size += 11 {
			pages := (total + size - 1) / size
			for page := 1; page <= pages+1; page++ {
				pg := Compute(source.Pagination{CurrentPage: page, TotalRecords: total, PageSize: size}, page)

				assert.Equal(t, pages, pg.TotalPages)
				if pg.CurrentPage == 1 {
					assert.False(t, pg.HasPrev, "prev on page 1 (total=%d size=%d)", total, size)
				}
				if pg.CurrentPage >= pg.TotalPages {
					assert.False(t, pg.HasNext, "next on last page (total=%d size=%d)", total, size)
				}
				if pg.HasPrev {
					assert.GreaterOrEqual(t, pg.Prev(), 1)
				}
				if pg.HasNext {
					assert.LessOrEqual(t, pg.Next(), pg.TotalPages)
				}
			}
		}
	}
}
