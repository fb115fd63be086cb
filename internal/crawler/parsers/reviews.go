package parsers

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractReviews returns the review count from the reviewCount meta tag and
// the positive review percentage found in the raw markup. Either may be nil.
func (p *Parser) ExtractReviews(doc *goquery.Document, html string) (*int, *float64) {
	var count *int

	if content, ok := doc.Find(`meta[itemprop="reviewCount"]`).First().Attr("content"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(content)); err == nil {
			count = &n
		}
	}

	var score *float64

	if m := p.reviewScorePattern.FindStringSubmatch(html); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			score = &f
		}
	}

	return count, score
}
