package catalog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRecord marks a fragment that is missing a required field or
// carries an unparsable number. Such fragments are dropped, never defaulted.
var ErrMalformedRecord = errors.New("malformed record")

const (
	sectionStart     = "</info>"
	sectionEnd       = "</artiklar>"
	recordStart      = "<artikel>"
	recordTerminator = "</artikel>"
)

// Feed tag names.
const (
	tagName     = "Namn"
	tagSubName  = "Namn2"
	tagPrice    = "Prisinklmoms"
	tagVolume   = "Volymiml"
	tagAlcohol  = "Alkoholhalt"
	tagArticle  = "Artikelid"
	tagStock    = "Varnummer"
	tagCategory = "Varugrupp"
)

// ParseResult is the outcome of parsing a whole feed document.
type ParseResult struct {
	Articles Catalog
	Rejected []error
}

// ParseDocument splits raw into record fragments and parses each one.
// Rejected fragments are reported in Rejected and never abort the pass.
// A document without any well-formed record yields an empty catalog.
func ParseDocument(raw string) ParseResult {
	section := raw
	if i := strings.Index(section, sectionStart); i >= 0 {
		section = section[i+len(sectionStart):]
	}
	if i := strings.Index(section, sectionEnd); i >= 0 {
		section = section[:i]
	}

	pieces := strings.Split(section, recordTerminator)
	// The remainder after the last terminator is never a record.
	pieces = pieces[:len(pieces)-1]

	res := ParseResult{Articles: make(Catalog, 0, len(pieces))}
	for i, piece := range pieces {
		start := strings.Index(piece, recordStart)
		if start < 0 {
			res.Rejected = append(res.Rejected, fmt.Errorf("record %d: missing %s: %w", i, recordStart, ErrMalformedRecord))
			continue
		}
		a, err := ParseFragment(piece[start+len(recordStart):])
		if err != nil {
			res.Rejected = append(res.Rejected, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		res.Articles = append(res.Articles, a)
	}
	return res
}

// ParseFragment extracts one Article from the body of an <artikel> element.
func ParseFragment(raw string) (Article, error) {
	var (
		a   Article
		err error
	)
	text := func(tag string, dst *string) {
		if err != nil {
			return
		}
		v, ok := extract(raw, tag)
		if !ok {
			err = fmt.Errorf("missing <%s>: %w", tag, ErrMalformedRecord)
			return
		}
		*dst = v
	}
	number := func(tag string, dst *float64) {
		if err != nil {
			return
		}
		v, ok := extract(raw, tag)
		if !ok {
			err = fmt.Errorf("missing <%s>: %w", tag, ErrMalformedRecord)
			return
		}
		if tag == tagAlcohol {
			v = strings.TrimSpace(strings.TrimSuffix(v, "%"))
		}
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			err = fmt.Errorf("<%s> %q is not a number: %w", tag, v, ErrMalformedRecord)
			return
		}
		*dst = f
	}

	text(tagName, &a.Name)
	number(tagPrice, &a.PriceIncludingTax)
	number(tagVolume, &a.VolumeMilliliters)
	number(tagAlcohol, &a.AlcoholPercent)
	text(tagArticle, &a.ArticleID)
	text(tagStock, &a.StockNumber)
	text(tagCategory, &a.CategoryCode)
	if err != nil {
		return Article{}, err
	}

	// Namn2 is optional and many entries omit it.
	if v, ok := extract(raw, tagSubName); ok {
		a.SubName = v
	}
	return a.WithRank(), nil
}

// extract returns the trimmed text between <tag> and </tag>. A self-closing
// <tag/> counts as present and empty.
func extract(raw, tag string) (string, bool) {
	open := "<" + tag + ">"
	if i := strings.Index(raw, open); i >= 0 {
		rest := raw[i+len(open):]
		j := strings.Index(rest, "</"+tag+">")
		if j < 0 {
			return "", false
		}
		return strings.TrimSpace(rest[:j]), true
	}
	if strings.Contains(raw, "<"+tag+"/>") || strings.Contains(raw, "<"+tag+" />") {
		return "", true
	}
	return "", false
}
