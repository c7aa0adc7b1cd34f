package query

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	// MaxLimit bounds every page the stores are asked for, whatever the caller requests.
	MaxLimit = 100
)

type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

func (d SortDirection) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Page is a normalized pagination and sort request.
type Page struct {
	Page          int
	Limit         int
	Skip          int
	SortField     string
	SortDirection SortDirection
}

// Paginator normalizes raw paging input. Zero fields fall back to package defaults.
type Paginator struct {
	DefaultLimit int
	MaxLimit     int
	DefaultSort  string
}

// DefaultPaginator is used for trace listings.
var DefaultPaginator = Paginator{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit, DefaultSort: DefaultSortField}

// Normalize uses DefaultPaginator.
func Normalize(page, limit int, sortBy, sortOrder string) Page {
	return DefaultPaginator.Normalize(page, limit, sortBy, sortOrder)
}

// Normalize clamps page to [1, math.MaxInt/limit] and limit to [1, MaxLimit]. Unknown sort fields fall back to
// the default sort field; anything but "asc" sorts descending.
func (p Paginator) Normalize(page, limit int, sortBy, sortOrder string) Page {
	maxLimit := p.MaxLimit
	if maxLimit <= 0 || maxLimit > MaxLimit {
		maxLimit = MaxLimit
	}
	defLimit := p.DefaultLimit
	if defLimit <= 0 {
		defLimit = DefaultLimit
	}
	defSort := p.DefaultSort
	if defSort == "" {
		defSort = DefaultSortField
	}

	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// keeps Skip and Skip+Limit within int
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	field := sortBy
	if !isSortField(field) {
		field = defSort
	}
	dir := Descending
	if sortOrder == "asc" {
		dir = Ascending
	}

	return Page{
		Page:          page,
		Limit:         limit,
		Skip:          (page - 1) * limit,
		SortField:     field,
		SortDirection: dir,
	}
}

// TotalPages is ceil(total/limit), and 0 when there is nothing to page through.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
