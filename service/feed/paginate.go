package feed

// PageSize is the fixed number of items per feed page.
const PageSize = 4

// PageResult is one page of feed items.
type PageResult struct {
	Items      []PostRecord `json:"posts"`
	NextCursor *int         `json:"nextCursor"`
}

// Paginate slices items to [cursor, cursor+PageSize) and returns the cursor of
// the following page, or nil when this is the last page.
func Paginate[T any](items []T, cursor int) ([]T, *int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(items) {
		return items[:0:0], nil
	}

	end := min(cursor+PageSize, len(items))

	var next *int
	if len(items)-1 >= cursor+PageSize {
		n := cursor + PageSize
		next = &n
	}

	return items[cursor:end], next
}
