package parsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"steamscraper/internal/models"
)

// AgeGatedMarker prefixes mature_content for pages reached through an age gate.
const AgeGatedMarker = "Age gated (18+)"

// ExtractOptions carries the per-request context of one fetched page.
type ExtractOptions struct {
	AppID           int
	URL             string
	Version         models.SchemaVersion
	AgeGateBypassed bool
	HTML            string
	ScrapedAt       models.Timestamp
}

// ExtractRecord builds a record of opts.Version from doc. Review fields are
// filled from v2 on and requirements are structured from v3 on. The returned
// notes describe fallbacks taken by the requirements parser.
func (p *Parser) ExtractRecord(doc *goquery.Document, opts ExtractOptions) (*models.GameRecord, []string) {
	scrapedAt := opts.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = models.Now()
	}

	record := &models.GameRecord{
		Version:       opts.Version,
		AppID:         opts.AppID,
		URL:           opts.URL,
		Title:         ExtractTitle(doc),
		Price:         ExtractPrice(doc),
		ReleaseDate:   ExtractReleaseDate(doc),
		Developer:     ExtractDeveloper(doc),
		Publisher:     ExtractPublisher(doc),
		Tags:          ExtractTags(doc),
		Description:   ExtractDescription(doc),
		MatureContent: ExtractMatureContent(doc, opts.AgeGateBypassed),
		AboutThisGame: ExtractAboutThisGame(doc),
		ScrapedAt:     scrapedAt,
		HTML:          opts.HTML,
	}

	if opts.Version.HasReviews() {
		record.ReviewCount, record.ReviewScore = p.ExtractReviews(doc, opts.HTML)
	}

	raw := ExtractRawRequirements(doc)

	if !opts.Version.HasStructuredRequirements() {
		record.SystemRequirements = models.SystemRequirements{Raw: raw}

		return record, nil
	}

	parsed, notes := p.ParsePageRequirements(doc)
	structured, dropNotes := BuildStructured(raw, parsed)
	record.SystemRequirements = models.SystemRequirements{Structured: structured}

	return record, append(notes, dropNotes...)
}

// ExtractTitle returns the app name.
func ExtractTitle(doc *goquery.Document) *string {
	return firstText(doc.Find("div.apphub_AppName"))
}

// ExtractPrice returns the purchase price, falling back to the discounted price.
func ExtractPrice(doc *goquery.Document) *string {
	if price := firstText(doc.Find("div.game_purchase_price")); price != nil {
		return price
	}

	return firstText(doc.Find("div.discount_final_price"))
}

// ExtractReleaseDate returns the date inside the release date block.
func ExtractReleaseDate(doc *goquery.Document) *string {
	section := doc.Find("div.release_date").First()
	if section.Length() == 0 {
		return nil
	}

	return firstText(section.Find("div.date"))
}

// ExtractDeveloper returns the link texts of the first developer row.
func ExtractDeveloper(doc *goquery.Document) []string {
	row := doc.Find("div.dev_row").First()
	if row.Length() == 0 {
		return []string{}
	}

	return linkTexts(row)
}

// ExtractPublisher returns the links of the grid content that follows the
// first "Publisher" grid label, or an empty list.
func ExtractPublisher(doc *goquery.Document) []string {
	labelFound := false

	var content *goquery.Selection

	doc.Find("div.grid_label, div.grid_content").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !labelFound {
			if s.HasClass("grid_label") && strings.Contains(s.Text(), "Publisher") {
				labelFound = true
			}

			return true
		}

		if s.HasClass("grid_content") {
			content = s

			return false
		}

		return true
	})

	if content == nil {
		return []string{}
	}

	return linkTexts(content)
}

// ExtractTags returns the non-empty user tags in page order.
func ExtractTags(doc *goquery.Document) []string {
	tags := []string{}

	doc.Find("a.app_tag").Each(func(_ int, s *goquery.Selection) {
		if tag := strings.TrimSpace(s.Text()); tag != "" {
			tags = append(tags, tag)
		}
	})

	return tags
}

// ExtractDescription returns the short description snippet.
func ExtractDescription(doc *goquery.Document) *string {
	return firstText(doc.Find("div.game_description_snippet"))
}

// ExtractAboutThisGame returns the long description.
func ExtractAboutThisGame(doc *goquery.Document) *string {
	return firstText(doc.Find("div#game_area_description"))
}

// ExtractMatureContent returns the content descriptor text. When the page
// was reached through an age gate the value starts with AgeGatedMarker.
func ExtractMatureContent(doc *goquery.Document, ageGateBypassed bool) *string {
	container := doc.Find("div#game_area_content_descriptors").First()
	if container.Length() == 0 {
		container = doc.Find("div.content_descriptors").First()
	}

	text := strings.TrimSpace(container.Text())

	if ageGateBypassed {
		marker := AgeGatedMarker
		if text != "" {
			marker += " - " + text
		}

		return &marker
	}

	if text == "" {
		return nil
	}

	return &text
}

// ExtractRawRequirements returns the unparsed requirement text of every OS tab.
func ExtractRawRequirements(doc *goquery.Document) []models.RawRequirement {
	requirements := []models.RawRequirement{}

	doc.Find("div.sysreq_content").Each(func(_ int, s *goquery.Selection) {
		osKey, _ := s.Attr("data-os")
		if osKey == "" {
			return
		}

		full := s.Find("div.game_area_sys_req_full").First()
		if full.Length() == 0 {
			return
		}

		if text := strings.TrimSpace(full.Text()); text != "" {
			requirements = append(requirements, models.RawRequirement{OS: osKey, Requirements: text})
		}
	})

	return requirements
}

func firstText(sel *goquery.Selection) *string {
	first := sel.First()
	if first.Length() == 0 {
		return nil
	}

	text := strings.TrimSpace(first.Text())

	return &text
}

func linkTexts(sel *goquery.Selection) []string {
	links := sel.Find("a")
	texts := make([]string, 0, links.Length())

	links.Each(func(_ int, a *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(a.Text()))
	})

	return texts
}
