package shared

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Page bounds a listing query.
type Page struct {
	Limit  uint64
	Offset uint64
}

// NewPage clamps caller supplied limit/offset.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: uint64(limit), Offset: uint64(offset)}
}
