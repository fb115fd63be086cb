package parsers

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"steamscraper/internal/models"
	"steamscraper/internal/normalizer"
	"steamscraper/pkg/utils"
)

// Parsing notes.
const (
	NoteEntireTextAsMinimum = "Treated entire text as minimum requirements"
	NoteEmptySection        = "Empty section text"
	NoteSplitSingleLine     = "Split single line using pattern matching"
	NoteUnparsedText        = "Stored unparsed text in additional_notes"
	NoteAssumedWindows      = "Used fallback sys_req selector - assumed Windows"
)

var tiers = []string{models.TierMinimum, models.TierRecommended}

// maxLabelWords bounds how many capitalized words a flattened label may span.
const maxLabelWords = 3

// ParseRequirements extracts the minimum and recommended field maps of one
// OS section. Bold labels are read first; only when they yield nothing is the
// flattened text split into sections and fields. Notes describe every
// fallback taken and every field that could not be mapped.
func (p *Parser) ParseRequirements(sel *goquery.Selection) (models.OSRequirements, []string) {
	reqs := models.NewOSRequirements()
	if sel == nil || sel.Length() == 0 {
		return reqs, nil
	}

	sections, notes := p.parseStructure(sel)

	for _, tier := range tiers {
		if len(sections[tier]) == 0 {
			continue
		}

		maps.Copy(reqs.Tier(tier), sections[tier])
		notes = append(notes, fmt.Sprintf("Parsed %d %s requirements", len(sections[tier]), tier))
	}

	if !reqs.IsEmpty() {
		return reqs, notes
	}

	text := utils.CollapseWhitespace(blockText(sel))
	if text == "" {
		return reqs, notes
	}

	spans := p.splitSections(text)

	for _, tier := range tiers {
		if spans[tier] == "" {
			continue
		}

		fields, sectionNotes := p.parseSection(spans[tier])
		maps.Copy(reqs.Tier(tier), fields)
		notes = append(notes, prefixNotes(tier+": ", sectionNotes)...)
	}

	if reqs.IsEmpty() {
		fields, sectionNotes := p.parseSection(text)
		reqs.Minimum = fields
		notes = append(notes, prefixNotes("fallback: ", sectionNotes)...)
		notes = append(notes, NoteEntireTextAsMinimum)
	}

	return reqs, notes
}

// parseStructure reads <strong> labels. "Minimum:" and "Recommended:" open a
// section; without any such header every label belongs to minimum. A label
// containing a colon takes its value from the rest of its list item.
func (p *Parser) parseStructure(sel *goquery.Selection) (map[string]models.FieldMap, []string) {
	sections := map[string]models.FieldMap{
		models.TierMinimum:     {},
		models.TierRecommended: {},
	}

	var notes []string

	strongs := sel.Find("strong")

	current := models.TierMinimum

	strongs.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, ok := sectionHeader(s.Text()); ok {
			current = ""

			return false
		}

		return true
	})

	strongs.Each(func(_ int, s *goquery.Selection) {
		raw := s.Text()

		if tier, ok := sectionHeader(raw); ok {
			current = tier

			return
		}

		if current == "" || !strings.Contains(raw, ":") {
			return
		}

		item := s.Closest("li")
		if item.Length() == 0 {
			return
		}

		value := strings.TrimSpace(siblingText(item.Nodes[0], s.Nodes[0]))
		if value == "" {
			return
		}

		label := strings.TrimRight(strings.TrimSpace(raw), ":")

		key, cleaned, ok := p.processor.Process(label, value)
		if !ok {
			notes = append(notes, p.unmappedNote(label, cleaned))

			return
		}

		sections[current][key] = cleaned
	})

	return sections, notes
}

// splitSections cuts collapsed text into minimum and recommended spans.
func (p *Parser) splitSections(text string) map[string]string {
	spans := map[string]string{
		models.TierMinimum:     sectionSpan(text, p.minimumPattern, p.minimumStop),
		models.TierRecommended: sectionSpan(text, p.recommendedPattern, p.recommendedStop),
	}

	if spans[models.TierMinimum] != "" || spans[models.TierRecommended] != "" {
		return spans
	}

	words := p.sectionWordPattern.FindAllStringIndex(text, -1)
	seen := map[string]bool{}

	for _, loc := range words {
		seen[strings.ToLower(text[loc[0]:loc[1]])] = true
	}

	if !seen[models.TierMinimum] || !seen[models.TierRecommended] {
		return spans
	}

	for i, loc := range words {
		end := len(text)
		if i+1 < len(words) {
			end = words[i+1][0]
		}

		if segment := strings.TrimSpace(text[loc[1]:end]); segment != "" {
			spans[strings.ToLower(text[loc[0]:loc[1]])] = segment
		}
	}

	return spans
}

func sectionSpan(text string, start, stop *regexp.Regexp) string {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	if end := stop.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}

	return strings.TrimSpace(rest)
}

// parseSection reads "Label: value" pairs from one section span. When nothing
// maps, an OS token and the first characters of the text are kept instead.
func (p *Parser) parseSection(text string) (models.FieldMap, []string) {
	fields := models.FieldMap{}

	if strings.TrimSpace(text) == "" {
		return fields, []string{NoteEmptySection}
	}

	var notes []string

	// Section text arrives whitespace-collapsed, so fields are recovered
	// from label positions rather than line breaks.
	lines := []string{text}

	if strings.Contains(text, ":") {
		if split := p.splitFlattened(strings.TrimSpace(text)); len(split) > 1 {
			lines = split
			notes = append(notes, NoteSplitSingleLine)
		}
	}

	for _, line := range lines {
		label, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}

		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)

		if label == "" || value == "" {
			continue
		}

		key, cleaned, ok := p.processor.Process(label, value)
		if !ok {
			notes = append(notes, p.unmappedNote(label, cleaned))

			continue
		}

		fields[key] = cleaned
	}

	if len(fields) > 0 {
		return fields, notes
	}

	if token := p.osTokenPattern.FindString(text); token != "" {
		fields[normalizer.FieldOS] = strings.TrimSpace(token)
	}

	fields[normalizer.FieldAdditionalNotes] = utils.TruncateRunes(text, p.residualNoteLimit)
	notes = append(notes, NoteUnparsedText)

	return fields, notes
}

// splitFlattened recovers "Label: value" lines that were run together, e.g.
// "OS: Windows 10 Processor: i5 Memory: 8 GB RAM". A cut is made before the
// capitalized words that precede each colon, unless the words directly follow
// the previous colon.
func (p *Parser) splitFlattened(text string) []string {
	var cuts []int

	segStart := 0

	for {
		idx := strings.IndexByte(text[segStart:], ':')
		if idx < 0 {
			break
		}

		colon := segStart + idx

		if start, ok := p.labelStart(text[segStart:colon]); ok {
			cuts = append(cuts, segStart+start)
		}

		segStart = colon + 1
	}

	if len(cuts) == 0 {
		return []string{text}
	}

	lines := make([]string, 0, len(cuts)+1)
	prev := 0

	for _, cut := range cuts {
		lines = append(lines, strings.TrimSpace(text[prev:cut]))
		prev = cut
	}

	return append(lines, strings.TrimSpace(text[prev:]))
}

// labelStart finds where the label ending segment begins. Up to three
// trailing capitalized words are considered; the longest one the mapper
// knows wins, otherwise the last word alone is the label.
func (p *Parser) labelStart(segment string) (int, bool) {
	pos := len(strings.TrimRight(segment, " *"))

	var candidates []int

	for len(candidates) < maxLabelWords {
		start := pos
		for start > 0 {
			r, size := utf8.DecodeLastRuneInString(segment[:start])
			if unicode.IsSpace(r) {
				break
			}

			start -= size
		}

		if start == pos {
			break
		}

		if r, _ := utf8.DecodeRuneInString(segment[start:pos]); !unicode.IsUpper(r) {
			break
		}

		gap := start
		for gap > 0 {
			r, size := utf8.DecodeLastRuneInString(segment[:gap])
			if !unicode.IsSpace(r) {
				break
			}

			gap -= size
		}

		if gap == 0 {
			break
		}

		candidates = append(candidates, start)
		pos = gap
	}

	if len(candidates) == 0 {
		return 0, false
	}

	best := candidates[0]

	for _, start := range candidates {
		if _, ok := p.processor.Mapper().Canonical(segment[start:]); ok {
			best = start
		}
	}

	return best, true
}

func (p *Parser) unmappedNote(label, value string) string {
	return fmt.Sprintf("Could not map field: '%s' = '%s'", label, utils.TruncateRunes(value, p.unmappedValueLimit))
}

func sectionHeader(text string) (string, bool) {
	t := strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ":")
	if t == models.TierMinimum || t == models.TierRecommended {
		return t, true
	}

	return "", false
}

func prefixNotes(prefix string, notes []string) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, prefix+n)
	}

	return out
}

// siblingText concatenates the text of item's direct children, skipping the
// label node itself and line breaks.
func siblingText(item, label *html.Node) string {
	var b strings.Builder

	for c := item.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if c == label || c.Data == "br" {
				continue
			}

			writeText(&b, c, false)
		}
	}

	return b.String()
}

var blockElements = map[string]bool{
	"br": true, "li": true, "ul": true, "ol": true, "p": true, "div": true,
	"tr": true, "td": true, "h1": true, "h2": true, "h3": true, "h4": true,
}

// blockText returns the text of sel with a line break at every block boundary
// so words from adjacent rows do not run together.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder

	for _, n := range sel.Nodes {
		writeText(&b, n, true)
	}

	return b.String()
}

func writeText(b *strings.Builder, n *html.Node, breakBlocks bool) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)

		return
	case html.CommentNode:
		return
	}

	block := breakBlocks && n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c, breakBlocks)
	}

	if block {
		b.WriteByte('\n')
	}
}
