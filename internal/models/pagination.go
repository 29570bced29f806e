package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit into their allowed ranges.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(req PageRequest, total int) *Pagination {
	req = req.Normalize()
	pages := total / req.Limit
	if total%req.Limit != 0 {
		pages++
	}
	return &Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: pages,
	}
}
