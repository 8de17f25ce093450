package shared

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// Pagination carries offset/limit window parameters for list queries.
type Pagination struct {
	Offset int
	Limit  int
}

// PaginationFromRequest parses skip/limit query parameters with sane bounds.
func PaginationFromRequest(r *http.Request) Pagination {
	p := Pagination{Limit: defaultPageSize}
	if raw := r.URL.Query().Get("skip"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			p.Offset = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}
