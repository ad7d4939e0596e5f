package query

import (
	"errors"
	"testing"

	"github.com/matheuskafuri/alccalc/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func article(name, sub string, price, volume, alcohol float64, id, stock string) catalog.Article {
	return catalog.Article{
		Name:              name,
		SubName:           sub,
		PriceIncludingTax: price,
		VolumeMilliliters: volume,
		AlcoholPercent:    alcohol,
		ArticleID:         id,
		StockNumber:       stock,
		CategoryCode:      "Sprit",
	}.WithRank()
}

func vodkas() catalog.Catalog {
	return catalog.Catalog{
		article("Vodka B", "", 300, 700, 37.5, "1002", "102"),
		article("Vodka A", "", 250, 500, 40, "1001", "101"),
	}
}

func TestEndToEndSortByAPK(t *testing.T) {
	res, err := Search(vodkas(), Options{Terms: []string{"vodka"}, SortBy: "apk"})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{
		"Vodka A 50 cl has apk: 0.80",
		"Vodka B 70 cl has apk: 0.88",
	}, res.Lines())
}

func TestEndToEndMinAlcohol(t *testing.T) {
	res, err := Search(vodkas(), Options{
		Terms:   []string{"vodka"},
		Filters: []Filter{{Bound: Min, Field: "alcohol", Value: "38"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Vodka A", res.Matches[0].Article.Name)
}

func TestEndToEndUnknownSortField(t *testing.T) {
	res, err := Search(vodkas(), Options{Terms: []string{"vodka"}, SortBy: "bogus"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.True(t, errors.Is(res.Warnings[0], ErrUnknownField))
	assert.Equal(t, []string{
		"Vodka B 70 cl has apk: 0.88",
		"Vodka A 50 cl has apk: 0.80",
	}, res.Lines())
}

func TestMatching(t *testing.T) {
	a := article("Absolut", "Citron", 250, 700, 40, "A-77", "45")
	tests := []struct {
		term string
		want bool
	}{
		{"absolut", true},
		{"solu", true},
		{"absolut citron", true},
		{"citron", true},
		{"Absolut", false}, // terms are used as given
		{"a-77", true},
		{"A-77", true},
		{"45", true},
		{"4", false}, // ids must match exactly
		{"vodka", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.term, a), "term %q", tt.term)
	}
}

func TestEveryTermProducesItsOwnMatch(t *testing.T) {
	res, err := Search(vodkas(), Options{Terms: []string{"vodka", "vodka a"}})
	require.NoError(t, err)
	require.Len(t, res.Matches, 3)
	assert.Equal(t, "vodka", res.Matches[0].Term)
	assert.Equal(t, "vodka a", res.Matches[2].Term)
	assert.Equal(t, "Vodka A", res.Matches[2].Article.Name)
}

func TestRegexNotImplemented(t *testing.T) {
	res, err := Search(vodkas(), Options{Terms: []string{"vod.*"}, Regex: true})
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Empty(t, res.Matches)
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"vol":     "volume",
		"volym":   "volume",
		"volume":  "volume",
		"alc":     "alcohol",
		"alcohol": "alcohol",
		"alkohol": "alcohol",
		"abv":     "alcohol",
		"pris":    "price",
		"price":   "price",
		"apk":     "apk",
		"name":    "name",
	}
	for in, want := range tests {
		once := Canonical(in)
		assert.Equal(t, want, once, "Canonical(%q)", in)
		assert.Equal(t, once, Canonical(once), "Canonical should be idempotent for %q", in)
	}
}

func TestLookupField(t *testing.T) {
	f, ok := LookupField("pris")
	assert.True(t, ok)
	assert.Equal(t, FieldPrice, f)

	f, ok = LookupField("vol")
	assert.True(t, ok)
	assert.Equal(t, FieldVolume, f)

	_, ok = LookupField("bogus")
	assert.False(t, ok)
}

func TestUnknownFilterFieldIsFatal(t *testing.T) {
	_, err := Search(vodkas(), Options{
		Terms:   []string{"vodka"},
		Filters: []Filter{{Bound: Max, Field: "sweetness", Value: "3"}},
	})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBadThreshold(t *testing.T) {
	_, err := Search(vodkas(), Options{
		Terms:   []string{"vodka"},
		Filters: []Filter{{Bound: Max, Field: "price", Value: "cheap"}},
	})
	assert.ErrorIs(t, err, ErrBadThreshold)
}

func priceCatalog() catalog.Catalog {
	prices := []float64{99, 100, 100.5, 250, 300, 49.9}
	var c catalog.Catalog
	for i, p := range prices {
		c = append(c, article("Gin", "", p, 700, 40, "", string(rune('a'+i))))
	}
	return c
}

func TestMinFilterKeepsExactlyAtOrAbove(t *testing.T) {
	for _, threshold := range []string{"0", "49.9", "100", "100.25", "300", "301"} {
		res, err := Search(priceCatalog(), Options{
			Terms:   []string{"gin"},
			Filters: []Filter{{Bound: Min, Field: "pris", Value: threshold}},
		})
		require.NoError(t, err)

		var want []float64
		for _, a := range priceCatalog() {
			if a.PriceIncludingTax >= mustFloat(t, threshold) {
				want = append(want, a.PriceIncludingTax)
			}
		}
		var got []float64
		for _, m := range res.Matches {
			got = append(got, m.Article.PriceIncludingTax)
		}
		assert.Equal(t, want, got, "min price %s", threshold)
	}
}

func TestMaxFilter(t *testing.T) {
	res, err := Search(priceCatalog(), Options{
		Terms:   []string{"gin"},
		Filters: []Filter{{Bound: Max, Field: "price", Value: "100"}},
	})
	require.NoError(t, err)
	for _, m := range res.Matches {
		assert.LessOrEqual(t, m.Article.PriceIncludingTax, 100.0)
	}
	assert.Len(t, res.Matches, 3)
}

func TestFiltersCombine(t *testing.T) {
	res, err := Search(priceCatalog(), Options{
		Terms: []string{"gin"},
		Filters: []Filter{
			{Bound: Min, Field: "price", Value: "100"},
			{Bound: Max, Field: "price", Value: "250"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 3)
}

func TestVolumeFilterUsesCentiliters(t *testing.T) {
	c := catalog.Catalog{
		article("Beer", "", 20, 330, 5, "1", "1"),
		article("Beer", "Big", 40, 500, 5, "2", "2"),
	}
	res, err := Search(c, Options{
		Terms:   []string{"beer"},
		Filters: []Filter{{Bound: Min, Field: "volym", Value: "50"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Beer Big 50 cl has apk: 0.62", res.Matches[0].Display)
}

func TestSortStable(t *testing.T) {
	c := catalog.Catalog{
		article("Rum", "One", 200, 700, 40, "1", "1"),
		article("Rum", "Two", 100, 700, 40, "2", "2"),
		article("Rum", "Three", 200, 700, 40, "3", "3"),
		article("Rum", "Four", 100, 700, 40, "4", "4"),
	}
	order := func(res Result) []string {
		var out []string
		for _, m := range res.Matches {
			out = append(out, m.Article.SubName)
		}
		return out
	}

	res, err := Search(c, Options{Terms: []string{"rum"}, SortBy: "price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Two", "Four", "One", "Three"}, order(res))

	res, err = Search(c, Options{Terms: []string{"rum"}, SortBy: "pris", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Three", "Two", "Four"}, order(res))
}

func TestSortByName(t *testing.T) {
	c := catalog.Catalog{
		article("Whisky", "Zeta", 500, 700, 40, "1", "1"),
		article("Whisky", "Alpha", 500, 700, 40, "2", "2"),
	}
	res, err := Search(c, Options{Terms: []string{"whisky"}, SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", res.Matches[0].Article.SubName)
}

func TestLimitAppliesAfterSort(t *testing.T) {
	res, err := Search(priceCatalog(), Options{Terms: []string{"gin"}, SortBy: "price", Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 49.9, res.Matches[0].Article.PriceIncludingTax)
	assert.Equal(t, 99.0, res.Matches[1].Article.PriceIncludingTax)

	res, err = Search(priceCatalog(), Options{Terms: []string{"gin"}, Limit: 0})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 6)
}

func TestZeroPriceSortsLast(t *testing.T) {
	c := catalog.Catalog{
		article("Water", "Free", 0, 500, 0, "1", "1"),
		article("Water", "Cheap", 10, 500, 1, "2", "2"),
	}
	res, err := Search(c, Options{Terms: []string{"water"}, SortBy: "apk"})
	require.NoError(t, err)
	assert.Equal(t, "Water Cheap 50 cl has apk: 0.50", res.Matches[0].Display)
	assert.Equal(t, "Water Free 50 cl has apk: +Inf", res.Matches[1].Display)
}

func TestTypeFilter(t *testing.T) {
	c := catalog.Catalog{article("Cider", "", 20, 330, 4.5, "1", "1")}
	c[0].CategoryCode = "Cider"
	res, err := Search(c, Options{
		Terms:   []string{"cider"},
		Filters: []Filter{{Bound: Min, Field: "type", Value: "Cider"}, {Bound: Max, Field: "type", Value: "Cider"}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := compileFilters([]Filter{{Field: "price", Value: s}})
	require.NoError(t, err)
	return v[0].threshold.Num
}
