package journal

import (
	"strconv"
	"strings"

	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// PageSize is the number of rows shown per page on every paginated view
const PageSize = 5

// Page is one slice of a longer list
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
}

// HasPrev reports whether a previous page exists
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Prev returns the previous page number
func (p Page[T]) Prev() int { return p.Number - 1 }

// Next returns the next page number
func (p Page[T]) Next() int { return p.Number + 1 }

// ErrPageNotFound builds the error returned for a page outside the list
func ErrPageNotFound() *apperrors.AppError {
	return apperrors.NewAppError(apperrors.CodeNotFound, "The page does not exist.", "")
}

// Paginate picks the requested page out of items. An empty page parameter
// means the first page; an empty list still has one (empty) page.
func Paginate[T any](items []T, pageParam string) (Page[T], error) {
	number := 1
	if p := strings.TrimSpace(pageParam); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Page[T]{}, ErrPageNotFound()
		}
		number = n
	}

	total := (len(items) + PageSize - 1) / PageSize
	if total == 0 {
		total = 1
	}
	if number < 1 || number > total {
		return Page[T]{}, ErrPageNotFound()
	}

	start := (number - 1) * PageSize
	end := min(start+PageSize, len(items))
	return Page[T]{Items: items[start:end], Number: number, TotalPages: total}, nil
}
