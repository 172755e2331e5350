package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		in     PageRequest
		want   PageRequest
		offset int
	}{
		{name: "zero value", in: PageRequest{}, want: PageRequest{Page: 1, PageSize: DefaultPageSize}, offset: 0},
		{name: "third page", in: PageRequest{Page: 3, PageSize: 10}, want: PageRequest{Page: 3, PageSize: 10}, offset: 20},
		{name: "negative page", in: PageRequest{Page: -2, PageSize: 5}, want: PageRequest{Page: 1, PageSize: 5}, offset: 0},
		{name: "oversized page", in: PageRequest{Page: 2, PageSize: 1000}, want: PageRequest{Page: 2, PageSize: MaxPageSize}, offset: MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
			assert.Equal(t, tt.offset, tt.in.Offset())
		})
	}
}

func TestPage_LastPage(t *testing.T) {
	assert.Equal(t, 1, Page[int]{Total: 0, PageSize: 10}.LastPage())
	assert.Equal(t, 1, Page[int]{Total: 10, PageSize: 10}.LastPage())
	assert.Equal(t, 2, Page[int]{Total: 11, PageSize: 10}.LastPage())
	assert.Equal(t, 1, Page[int]{Total: 5}.LastPage())
}
