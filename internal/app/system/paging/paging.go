// internal/app/system/paging/paging.go
package paging

import (
	"math"
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultLimit is the page size when the client does not ask for one.
	DefaultLimit = 12
	// MaxLimit caps the page size a client can request.
	MaxLimit = 100
	// MaxPage caps the page number so the skip stays within an int32, which
	// is what the server accepts. Pages past the data are simply empty.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Page is a 1-based page number and a page size.
type Page struct {
	Number int
	Limit  int
}

// Parse reads "page" and "limit" from the query string. Missing or invalid
// values fall back to page 1 and DefaultLimit; limit is clamped to MaxLimit.
func Parse(r *http.Request) Page {
	return Page{
		Number: clampPage(atoiMin(query.Get(r, "page"), 1, 1)),
		Limit:  clampLimit(atoiMin(query.Get(r, "limit"), DefaultLimit, 1)),
	}
}

// New builds a Page with the same defaults and clamping as Parse.
func New(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return Page{Number: clampPage(number), Limit: clampLimit(limit)}
}

func atoiMin(s string, def, floor int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < floor {
		return def
	}
	return n
}

func clampPage(n int) int {
	if n > MaxPage {
		return MaxPage
	}
	return n
}

func clampLimit(n int) int {
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 { return int64(p.Number-1) * int64(p.Limit) }

// ApplyToFind sets skip and limit on find options.
func (p Page) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	return find.SetSkip(p.Skip()).SetLimit(int64(p.Limit))
}

// Result is the envelope returned by list endpoints.
type Result[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewResult wraps one page of items. A nil slice is returned as [].
func NewResult[T any](items []T, total int64, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Result[T]{Items: items, Total: total, Page: p.Number, Limit: p.Limit, Pages: pages}
}
