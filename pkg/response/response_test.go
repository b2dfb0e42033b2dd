package response

import "testing"

func TestNewPage_TotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{12, 5, 3},
		{10, 5, 2},
		{0, 10, 0},
		{1, 10, 1},
		{100, 100, 1},
		{101, 100, 2},
	}
	for _, tc := range cases {
		got := NewPage(nil, tc.total, 1, tc.limit)
		if got.TotalPages != tc.want {
			t.Errorf("NewPage(total=%d, limit=%d): 期望 totalPages=%d，实际=%d",
				tc.total, tc.limit, tc.want, got.TotalPages)
		}
		if got.Total != tc.total {
			t.Errorf("NewPage(total=%d): total 应原样返回，实际=%d", tc.total, got.Total)
		}
	}
}
