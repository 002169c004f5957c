package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	tests := []struct {
		name    string
		param   string
		want    []int
		number  int
		hasPrev bool
		hasNext bool
	}{
		{"DefaultsToFirstPage", "", []int{1, 2, 3, 4, 5}, 1, false, true},
		{"MiddlePage", "2", []int{6, 7, 8, 9, 10}, 2, true, true},
		{"ShortLastPage", "3", []int{11, 12}, 3, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Paginate(items, tt.param)

			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Items)
			assert.Equal(t, tt.number, page.Number)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, tt.hasPrev, page.HasPrev())
			assert.Equal(t, tt.hasNext, page.HasNext())
		})
	}
}

func TestPaginate_InvalidPage_ShouldFail(t *testing.T) {
	for _, param := range []string{"0", "-1", "4", "two", "1.5"} {
		t.Run(param, func(t *testing.T) {
			_, err := Paginate([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, param)

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
			assert.Equal(t, "The page does not exist.", err.(*apperrors.AppError).Message)
		})
	}
}

func TestPaginate_EmptyList_ShouldHaveOnePage(t *testing.T) {
	page, err := Paginate([]string{}, "")

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)

	_, err = Paginate([]string{}, "2")
	assert.Error(t, err)
}
