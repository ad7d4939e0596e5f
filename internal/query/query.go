// Package query matches search terms against a catalog and filters, sorts
// and truncates the resulting matches.
package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/matheuskafuri/alccalc/internal/catalog"
)

var (
	// ErrUnknownField is returned for filters on a field that does not exist
	// and reported as a warning for an unknown sort key.
	ErrUnknownField = errors.New("unknown field")
	// ErrNotImplemented is returned when regular-expression search is asked for.
	ErrNotImplemented = errors.New("not implemented")
	// ErrBadThreshold is returned when a filter value does not fit its field.
	ErrBadThreshold = errors.New("invalid threshold")
)

type Bound int

const (
	Min Bound = iota
	Max
)

func (b Bound) String() string {
	if b == Max {
		return "max"
	}
	return "min"
}

// Filter keeps matches whose Field value is at least (Min) or at most (Max)
// Value.
type Filter struct {
	Bound Bound
	Field string
	Value string
}

type Options struct {
	Terms      []string
	SortBy     string
	Descending bool
	// Limit truncates the sorted result; zero or negative means no limit.
	Limit   int
	Filters []Filter
	Regex   bool
}

// Value is a field value of a Match. Text fields compare lexically,
// numeric fields numerically.
type Value struct {
	Num    float64
	Str    string
	IsText bool
}

func (v Value) Compare(o Value) int {
	if v.IsText {
		return strings.Compare(v.Str, o.Str)
	}
	return cmp.Compare(v.Num, o.Num)
}

// Match is one (search term, article) pair that survived the filters.
type Match struct {
	Term    string
	Display string
	Article catalog.Article
}

func newMatch(term string, a catalog.Article) Match {
	sub := ""
	if a.SubName != "" {
		sub = " " + a.SubName
	}
	return Match{
		Term:    term,
		Display: fmt.Sprintf("%s%s %d cl has apk: %.2f", a.Name, sub, int(a.VolumeMilliliters/10), a.RankMetric),
		Article: a,
	}
}

// Value returns the value of field f for this match.
func (m Match) Value(f Field) Value {
	a := m.Article
	switch f {
	case FieldAPK:
		return Value{Num: a.RankMetric}
	case FieldVolume:
		return Value{Num: a.VolumeMilliliters / 10}
	case FieldAlcohol:
		return Value{Num: a.AlcoholPercent}
	case FieldPrice:
		return Value{Num: a.PriceIncludingTax}
	case FieldName:
		return Value{Str: strings.ToLower(a.FullName()), IsText: true}
	case FieldType:
		return Value{Str: a.CategoryCode, IsText: true}
	}
	return Value{}
}

type Result struct {
	Matches []Match
	// Warnings are non-fatal problems, such as an unknown sort key.
	Warnings []error
}

// Lines returns the display string of every match, in order.
func (r Result) Lines() []string {
	out := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Display
	}
	return out
}

type compiledFilter struct {
	bound     Bound
	field     Field
	threshold Value
}

func (c compiledFilter) keep(m Match) bool {
	d := m.Value(c.field).Compare(c.threshold)
	if c.bound == Max {
		return d <= 0
	}
	return d >= 0
}

func compileFilters(filters []Filter) ([]compiledFilter, error) {
	out := make([]compiledFilter, 0, len(filters))
	for _, f := range filters {
		field, ok := LookupField(f.Field)
		if !ok {
			return nil, fmt.Errorf("don't know how to filter by %q (valid: %s): %w", f.Field, fieldList(), ErrUnknownField)
		}
		c := compiledFilter{bound: f.Bound, field: field}
		if field.Text() {
			c.threshold = Value{Str: f.Value, IsText: true}
		} else {
			n, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %q is not a number: %w", f.Bound, field, f.Value, ErrBadThreshold)
			}
			c.threshold = Value{Num: n}
		}
		out = append(out, c)
	}
	return out, nil
}

// Matches reports whether term selects article a. Article text is lowercased
// before comparison; the term is used as given.
func Matches(term string, a catalog.Article) bool {
	return strings.Contains(strings.ToLower(a.Name), term) ||
		strings.Contains(strings.ToLower(a.FullName()), term) ||
		strings.EqualFold(term, a.ArticleID) ||
		strings.EqualFold(term, a.StockNumber)
}

// Search runs every term against every article. An article matching several
// terms yields one Match per term.
func Search(articles catalog.Catalog, opts Options) (Result, error) {
	if opts.Regex {
		return Result{}, fmt.Errorf("regular expression search: %w", ErrNotImplemented)
	}
	filters, err := compileFilters(opts.Filters)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, term := range opts.Terms {
		for _, a := range articles {
			if !Matches(term, a) {
				continue
			}
			m := newMatch(term, a)
			if !keepAll(m, filters) {
				continue
			}
			res.Matches = append(res.Matches, m)
		}
	}

	if opts.SortBy != "" {
		field, ok := LookupField(opts.SortBy)
		if ok {
			sortMatches(res.Matches, field, opts.Descending)
		} else {
			res.Warnings = append(res.Warnings, fmt.Errorf("don't know how to sort by %q (valid: %s): %w", opts.SortBy, fieldList(), ErrUnknownField))
		}
	}

	if opts.Limit > 0 && len(res.Matches) > opts.Limit {
		res.Matches = res.Matches[:opts.Limit]
	}
	return res, nil
}

func keepAll(m Match, filters []compiledFilter) bool {
	for _, f := range filters {
		if !f.keep(m) {
			return false
		}
	}
	return true
}

// sortMatches orders matches by field; ties keep discovery order in both
// directions.
func sortMatches(matches []Match, field Field, descending bool) {
	slices.SortStableFunc(matches, func(a, b Match) int {
		c := a.Value(field).Compare(b.Value(field))
		if descending {
			return -c
		}
		return c
	})
}
