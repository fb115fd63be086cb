package parsers

import "github.com/PuerkitoBio/goquery"

// PageStatus is the outcome of content classification.
type PageStatus int

// Page statuses.
const (
	PageOK PageStatus = iota
	PageBlocked
	PageAgeGated
)

const (
	blockedSelector  = "div.error"
	ageGatedSelector = "div.agegate_birthday_selector, #app_agegate"
)

func (s PageStatus) String() string {
	switch s {
	case PageOK:
		return "ok"
	case PageBlocked:
		return "blocked"
	case PageAgeGated:
		return "age_gated"
	}

	return "unknown"
}

// ClassifyPage reports whether the page is usable, hard-blocked or behind an
// age gate. A block marker wins over an age gate.
func ClassifyPage(doc *goquery.Document) PageStatus {
	if doc.Find(blockedSelector).Length() > 0 {
		return PageBlocked
	}

	if doc.Find(ageGatedSelector).Length() > 0 {
		return PageAgeGated
	}

	return PageOK
}
