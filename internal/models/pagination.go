package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NormalizePage clamps page to >= 1 and limit to 1..MaxPageLimit, using
// DefaultPageLimit when limit is unset.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func NewPagination(page, limit int, total int64) Pagination {
	page, limit = NormalizePage(page, limit)
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Offset is the row offset for page/limit after normalization.
func Offset(page, limit int) int {
	page, limit = NormalizePage(page, limit)
	return (page - 1) * limit
}
