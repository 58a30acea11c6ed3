package jsonio

import (
	"net/http"
	"net/url"
	"strconv"
)

type (
	// PageRequest is the page requested through the page and page_size
	// query parameters
	PageRequest struct {
		Number int
		Size   int
	}

	Paginated struct {
		Count    int         `json:"count"`
		Next     *string     `json:"next"`
		Previous *string     `json:"previous"`
		Results  interface{} `json:"results"`
	}
)

const (
	MaxPageSize = 100
)

var (
	invalidPage = NotFound("Invalid page.")
)

// ParsePage reads page and page_size from the query string, a page that
// is not a positive integer is a NotFound problem.
func ParsePage(r *http.Request, defaultSize int) (PageRequest, error) {
	q := r.URL.Query()
	pr := PageRequest{Number: 1, Size: defaultSize}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return PageRequest{}, invalidPage
		}
		pr.Number = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			pr.Size = n
		}
	}
	if pr.Size > MaxPageSize {
		pr.Size = MaxPageSize
	}
	return pr, nil
}

func (p PageRequest) Offset() int {
	return (p.Number - 1) * p.Size
}

// Check returns a NotFound problem if the page lies beyond the last one,
// the first page always exists even when there are no results.
func (p PageRequest) Check(total int) error {
	if p.Number == 1 {
		return nil
	}
	if p.Offset() >= total {
		return invalidPage
	}
	return nil
}

// NewPaginated builds the page envelope with links to the neighbour pages
func NewPaginated(r *http.Request, p PageRequest, total int, results interface{}) Paginated {
	out := Paginated{Count: total, Results: results}
	if p.Offset()+p.Size < total {
		next := pageURL(r, p.Number+1)
		out.Next = &next
	}
	if p.Number > 1 {
		prev := pageURL(r, p.Number-1)
		out.Previous = &prev
	}
	return out
}

func pageURL(r *http.Request, page int) string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
