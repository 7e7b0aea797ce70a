package query

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// AllValue on an enum filter means no predicate for that field.
	AllValue = "all"

	DefaultSortColumn = "created_at"
	tieBreakerColumn  = "id"
)

// Params is a list request as received from the caller.
type Params struct {
	Page          int
	Limit         int
	Search        string
	SortField     string
	SortDirection string
	Filters       map[string]string
	StartDate     string
	EndDate       string
}

// EnumFilter maps a request parameter onto an equality predicate. Values
// translates accepted request values into stored values.
type EnumFilter struct {
	Param  string
	Column string
	Values map[string]any
}

// RangeFilter maps a pair of numeric request parameters onto Gte/Lte.
type RangeFilter struct {
	MinParam string
	MaxParam string
	Column   string
}

// Spec describes what a list endpoint may filter and sort on.
type Spec struct {
	SearchColumns []string
	EnumFilters   []EnumFilter
	RangeFilters  []RangeFilter
	// DateColumn receives the startDate/endDate range, if set.
	DateColumn string
	// SortFields maps request sort names onto columns. Anything else falls
	// back to DefaultSort descending.
	SortFields  map[string]string
	DefaultSort string
	// Fixed equality predicates always applied, e.g. visibility rules.
	Fixed []Filter
}

// Page is the result of Paginate.
type Page struct {
	Items      []Row
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ParamsFromQuery reads list parameters using get, typically fiber's Ctx.Query.
func ParamsFromQuery(get func(key string) string, s Spec) Params {
	p := Params{
		Page:          atoiOr(get("page"), DefaultPage),
		Limit:         atoiOr(get("limit"), DefaultLimit),
		Search:        firstNonEmpty(get("search"), get("keyword")),
		SortField:     firstNonEmpty(get("sortBy"), get("sortField")),
		SortDirection: firstNonEmpty(get("sortOrder"), get("sortDirection")),
		StartDate:     get("startDate"),
		EndDate:       get("endDate"),
		Filters:       map[string]string{},
	}
	for _, f := range s.EnumFilters {
		if v := get(f.Param); v != "" {
			p.Filters[f.Param] = v
		}
	}
	for _, f := range s.RangeFilters {
		if v := get(f.MinParam); v != "" {
			p.Filters[f.MinParam] = v
		}
		if v := get(f.MaxParam); v != "" {
			p.Filters[f.MaxParam] = v
		}
	}
	return p
}

// Normalize applies defaults and bounds to page and limit. Page is capped
// so that its offset cannot overflow.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	// The last row of the page must still be addressable as an int.
	if maxPage := math.MaxInt / p.Limit; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Offset is the zero based index of the first row of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns ceil(total/limit), or 0 when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Paginate applies p to b according to s and fetches one page together with
// the total count in a single call.
func Paginate(ctx context.Context, b Builder, p Params, s Spec) (*Page, error) {
	p = p.Normalize()

	b, err := Apply(b, p, s)
	if err != nil {
		return nil, err
	}

	offset := p.Offset()
	res, err := b.Range(offset, offset+p.Limit-1).Execute(ctx)
	if err != nil {
		return nil, err
	}

	items := res.Rows
	if items == nil {
		items = []Row{}
	}
	return &Page{
		Items:      items,
		Total:      res.Count,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(res.Count, p.Limit),
	}, nil
}

// Apply adds the filter and sort predicates described by p and s to b
// without touching the range.
func Apply(b Builder, p Params, s Spec) (Builder, error) {
	for _, f := range s.Fixed {
		b = b.Eq(f.Column, f.Value)
	}

	if term := strings.TrimSpace(p.Search); term != "" && len(s.SearchColumns) > 0 {
		b = b.ILike(s.SearchColumns, term)
	}

	for _, f := range s.EnumFilters {
		raw := strings.TrimSpace(p.Filters[f.Param])
		if raw == "" || strings.EqualFold(raw, AllValue) {
			continue
		}
		value, ok := f.Values[raw]
		if !ok {
			return nil, &FilterError{Param: f.Param, Value: raw}
		}
		b = b.Eq(f.Column, value)
	}

	for _, f := range s.RangeFilters {
		if raw := p.Filters[f.MinParam]; raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &FilterError{Param: f.MinParam, Value: raw}
			}
			b = b.Gte(f.Column, v)
		}
		if raw := p.Filters[f.MaxParam]; raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &FilterError{Param: f.MaxParam, Value: raw}
			}
			b = b.Lte(f.Column, v)
		}
	}

	if s.DateColumn != "" {
		if p.StartDate != "" {
			start, err := parseDate(p.StartDate, false)
			if err != nil {
				return nil, &FilterError{Param: "startDate", Value: p.StartDate}
			}
			b = b.Gte(s.DateColumn, start)
		}
		if p.EndDate != "" {
			end, err := parseDate(p.EndDate, true)
			if err != nil {
				return nil, &FilterError{Param: "endDate", Value: p.EndDate}
			}
			b = b.Lte(s.DateColumn, end)
		}
	}

	column, ascending := s.resolveSort(p.SortField, p.SortDirection)
	b = b.Order(column, ascending)
	if column != tieBreakerColumn {
		b = b.Order(tieBreakerColumn, true)
	}
	return b, nil
}

func (s Spec) resolveSort(field, direction string) (string, bool) {
	if column, ok := s.SortFields[field]; ok && field != "" {
		return column, strings.EqualFold(direction, "asc")
	}
	if s.DefaultSort != "" {
		return s.DefaultSort, false
	}
	return DefaultSortColumn, false
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func atoiOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
