package catalog

import "math"

// Article is one assortment entry. It only exists fully populated.
type Article struct {
	Name              string
	SubName           string
	PriceIncludingTax float64
	VolumeMilliliters float64
	AlcoholPercent    float64
	ArticleID         string
	StockNumber       string
	CategoryCode      string
	RankMetric        float64
}

// Catalog is the parsed assortment in feed order.
type Catalog []Article

// FullName returns the primary name followed by the secondary name, if any.
func (a Article) FullName() string {
	if a.SubName == "" {
		return a.Name
	}
	return a.Name + " " + a.SubName
}

// Rank computes the apk metric (millilitres of pure alcohol per currency
// unit). A zero price yields +Inf.
func Rank(alcoholPercent, volumeMilliliters, price float64) float64 {
	if price == 0 {
		return math.Inf(1)
	}
	return 0.01 * alcoholPercent * volumeMilliliters / price
}

// WithRank returns a copy of a with RankMetric derived from its other fields.
func (a Article) WithRank() Article {
	a.RankMetric = Rank(a.AlcoholPercent, a.VolumeMilliliters, a.PriceIncludingTax)
	return a
}
