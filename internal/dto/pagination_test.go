package dto

import "testing"

func TestPaginationRequest_Clamp(t *testing.T) {
	tests := []struct {
		name       string
		req        PaginationRequest
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"Defaults", PaginationRequest{}, 1, 20, 0},
		{"Normal", PaginationRequest{Page: 3, PageSize: 10}, 3, 10, 20},
		{"HugePage", PaginationRequest{Page: 92233720368547760, PageSize: 100}, MaxPage, 100, (MaxPage - 1) * 100},
		{"HugeSize", PaginationRequest{Page: 1, PageSize: 1 << 40}, 1, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.GetPage(); got != tt.wantPage {
				t.Errorf("GetPage = %d, want %d", got, tt.wantPage)
			}
			if got := tt.req.GetPageSize(); got != tt.wantSize {
				t.Errorf("GetPageSize = %d, want %d", got, tt.wantSize)
			}
			if got := tt.req.GetOffset(); got != tt.wantOffset || got < 0 {
				t.Errorf("GetOffset = %d, want %d", got, tt.wantOffset)
			}
		})
	}
}
