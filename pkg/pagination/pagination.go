package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to 1-based and the page size to the configured
// default and maximum.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return p.Normalize().PageSize
}

// Bounds returns the half-open slice window [start, end) for paginating an
// in-memory collection of the given length. An out-of-range page yields an
// empty window.
func (p Params) Bounds(length int) (int, int) {
	n := p.Normalize()
	start := (n.Page - 1) * n.PageSize
	if start >= length {
		return 0, 0
	}
	end := start + n.PageSize
	if end > length {
		end = length
	}
	return start, end
}
