package parsers

import (
	"fmt"
	"maps"
	"slices"

	"github.com/PuerkitoBio/goquery"

	"steamscraper/internal/models"
	"steamscraper/internal/normalizer"
)

// ParsePageRequirements parses every OS tab of the requirements area, keyed
// by normalized OS name. A later tab for the same OS replaces an earlier one.
// Pages without OS tabs fall back to the generic block, filed under windows.
func (p *Parser) ParsePageRequirements(doc *goquery.Document) (map[string]models.OSRequirements, []string) {
	parsed := map[string]models.OSRequirements{}

	var notes []string

	doc.Find("div.sysreq_content").Each(func(_ int, s *goquery.Selection) {
		osKey, _ := s.Attr("data-os")
		if osKey == "" {
			return
		}

		section := s.Find("div.game_area_sys_req_full").First()
		if section.Length() == 0 {
			section = s
		}

		reqs, sectionNotes := p.ParseRequirements(section)
		parsed[normalizer.NormalizeOS(osKey)] = reqs
		notes = append(notes, sectionNotes...)
	})

	if len(parsed) > 0 {
		return parsed, notes
	}

	generic := doc.Find("div.sys_req").First()
	if generic.Length() == 0 {
		return parsed, notes
	}

	reqs, sectionNotes := p.ParseRequirements(generic)
	parsed[models.OSWindows] = reqs
	notes = append(notes, NoteAssumedWindows)

	return parsed, append(notes, sectionNotes...)
}

// BuildStructured assembles the v3 requirements object. raw is kept as
// raw_data; parsed entries for OS names outside windows, mac and linux are
// dropped with a note.
func BuildStructured(raw []models.RawRequirement, parsed map[string]models.OSRequirements) (*models.StructuredRequirements, []string) {
	structured := models.NewStructuredRequirements(raw)

	var notes []string

	for _, name := range slices.Sorted(maps.Keys(parsed)) {
		reqs := parsed[name]

		target := structured.ForOS(name)
		if target == nil {
			notes = append(notes, fmt.Sprintf("Ignored requirements for unsupported OS '%s'", name))

			continue
		}

		if reqs.Minimum == nil {
			reqs.Minimum = models.FieldMap{}
		}

		if reqs.Recommended == nil {
			reqs.Recommended = models.FieldMap{}
		}

		*target = reqs
	}

	return structured, notes
}
