package parsers

import (
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steamscraper/internal/models"
)

func loadFixture(t *testing.T) (string, *goquery.Document) {
	t.Helper()

	data, err := os.ReadFile("testdata/app_620.html")
	require.NoError(t, err)

	doc, err := NewDocument(string(data))
	require.NoError(t, err)

	return string(data), doc
}

func mustDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := NewDocument(html)
	require.NoError(t, err)

	return doc
}

func TestClassifyPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want PageStatus
	}{
		{"ok", `<div class="apphub_AppName">Game</div>`, PageOK},
		{"blocked", `<div class="error">This item is currently unavailable in your region</div>`, PageBlocked},
		{"age gate selector", `<div class="agegate_birthday_selector"></div>`, PageAgeGated},
		{"age gate container", `<div id="app_agegate"></div>`, PageAgeGated},
		{"blocked wins", `<div class="error"></div><div class="agegate_birthday_selector"></div>`, PageBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPage(mustDocument(t, tt.html)))
		})
	}
}

func TestExtractRecord_V1(t *testing.T) {
	html, doc := loadFixture(t)
	p := NewParser()

	record, notes := p.ExtractRecord(doc, ExtractOptions{
		AppID:   620,
		URL:     "https://store.steampowered.com/app/620/",
		Version: models.SchemaV1,
		HTML:    html,
	})

	assert.Empty(t, notes)
	assert.Equal(t, 620, record.AppID)
	assert.Equal(t, "Portal 2", *record.Title)
	assert.Equal(t, "$9.99", *record.Price)
	assert.Equal(t, "18 Apr, 2011", *record.ReleaseDate)
	assert.Equal(t, []string{"Valve"}, record.Developer)
	assert.Equal(t, []string{"Valve", "Electronic Arts"}, record.Publisher)
	assert.Equal(t, []string{"Puzzle", "Co-op", "Puzzle"}, record.Tags)
	assert.Equal(t, "A puzzle game.", *record.Description)
	assert.Equal(t, "Mild violence", *record.MatureContent)
	assert.Contains(t, *record.AboutThisGame, "Portal 2 draws from")
	assert.Nil(t, record.ReviewCount)
	assert.Nil(t, record.ReviewScore)
	assert.False(t, record.ScrapedAt.IsZero())
	assert.Equal(t, html, record.HTML)

	raw := record.SystemRequirements.Raw
	require.Len(t, raw, 3)
	assert.Equal(t, "win", raw[0].OS)
	assert.True(t, strings.HasPrefix(raw[0].Requirements, "Minimum:"))
	assert.Equal(t, "linux", raw[2].OS)
	assert.Equal(t, "Runs on SteamOS and Ubuntu 22.04 with modern drivers", raw[2].Requirements)
}

func TestExtractRecord_V2Reviews(t *testing.T) {
	html, doc := loadFixture(t)

	record, _ := NewParser().ExtractRecord(doc, ExtractOptions{AppID: 620, Version: models.SchemaV2, HTML: html})

	require.NotNil(t, record.ReviewCount)
	require.NotNil(t, record.ReviewScore)
	assert.Equal(t, 1234, *record.ReviewCount)
	assert.InDelta(t, 96.0, *record.ReviewScore, 0.001)
	assert.False(t, record.SystemRequirements.IsStructured())
}

func TestExtractRecord_V3Structured(t *testing.T) {
	html, doc := loadFixture(t)

	record, notes := NewParser().ExtractRecord(doc, ExtractOptions{AppID: 620, Version: models.SchemaV3, HTML: html})

	require.True(t, record.SystemRequirements.IsStructured())
	structured := record.SystemRequirements.Structured
	assert.Len(t, structured.RawData, 3)
	assert.Equal(t, "Windows 10", structured.Windows.Recommended["os"])
	assert.Equal(t, "macOS 13", structured.Mac.Recommended["os"])
	assert.Equal(t, "Ubuntu", structured.Linux.Minimum["os"])
	assert.NotEmpty(t, notes)
}

func TestExtractMatureContent_AgeGateBypass(t *testing.T) {
	_, doc := loadFixture(t)

	assert.Equal(t, "Age gated (18+) - Mild violence", *ExtractMatureContent(doc, true))

	bare := mustDocument(t, `<div class="apphub_AppName">Game</div>`)
	assert.Equal(t, AgeGatedMarker, *ExtractMatureContent(bare, true))
	assert.Nil(t, ExtractMatureContent(bare, false))

	fallback := mustDocument(t, `<div class="content_descriptors"> Frequent Violence </div>`)
	assert.Equal(t, "Frequent Violence", *ExtractMatureContent(fallback, false))
}

func TestExtractors_MissingElements(t *testing.T) {
	doc := mustDocument(t, `<div class="release_date"></div><div class="discount_final_price">$4.99</div>`)

	assert.Nil(t, ExtractTitle(doc))
	assert.Nil(t, ExtractReleaseDate(doc))
	assert.Equal(t, "$4.99", *ExtractPrice(doc))
	assert.Empty(t, ExtractDeveloper(doc))
	assert.NotNil(t, ExtractPublisher(doc))
	assert.Empty(t, ExtractPublisher(doc))
	assert.Empty(t, ExtractTags(doc))
	assert.Empty(t, ExtractRawRequirements(doc))
}

func TestExtractReviews_Unparseable(t *testing.T) {
	html := `<meta itemprop="reviewCount" content="1,234"><p>Mostly Positive</p>`

	count, score := NewParser().ExtractReviews(mustDocument(t, html), html)

	assert.Nil(t, count)
	assert.Nil(t, score)
}

func TestParseRequirements_StructuredSections(t *testing.T) {
	_, doc := loadFixture(t)

	reqs, notes := NewParser().ParseRequirements(doc.Find(`div[data-os="win"] div.game_area_sys_req_full`))

	want := models.OSRequirements{
		Minimum: models.FieldMap{
			"os":        "Windows 7",
			"processor": "3.0 GHz P4, Dual Core 2.0 or better",
			"memory":    "2 GB RAM",
		},
		Recommended: models.FieldMap{
			"os":         "Windows 10",
			"processor":  "a 64-bit processor",
			"memory":     "8 GB RAM",
			"vr_support": "Optional",
		},
	}

	if diff := cmp.Diff(want, reqs); diff != "" {
		t.Errorf("ParseRequirements mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"Parsed 3 minimum requirements", "Parsed 4 recommended requirements"}, notes)
}

func TestParseRequirements_NoSectionHeaders(t *testing.T) {
	doc := mustDocument(t, `<div class="req"><ul>
		<li><strong>OS:</strong> Windows 10</li>
		<li><strong>Memory:</strong> 4 GB RAM</li>
	</ul></div>`)

	reqs, _ := NewParser().ParseRequirements(doc.Find("div.req"))

	assert.Equal(t, models.FieldMap{"os": "Windows 10", "memory": "4 GB RAM"}, reqs.Minimum)
	assert.Empty(t, reqs.Recommended)
	assert.NotNil(t, reqs.Recommended)
}

func TestParseRequirements_FlattenedText(t *testing.T) {
	_, doc := loadFixture(t)

	reqs, notes := NewParser().ParseRequirements(doc.Find(`div[data-os="mac"] div.game_area_sys_req_full`))

	assert.Equal(t, models.FieldMap{"os": "macOS 10.15", "processor": "Apple M1", "memory": "8 GB RAM"}, reqs.Minimum)
	assert.Equal(t, models.FieldMap{"os": "macOS 13", "memory": "16 GB RAM"}, reqs.Recommended)
	assert.Contains(t, notes, "minimum: "+NoteSplitSingleLine)
	assert.Contains(t, notes, "recommended: "+NoteSplitSingleLine)
}

func TestParseRequirements_AdjacentItemsStaySeparate(t *testing.T) {
	doc := mustDocument(t, `<div class="req">Minimum:<ul><li>Memory: 8 GB RAM</li><li>Graphics: GTX 970</li></ul></div>`)

	reqs, notes := NewParser().ParseRequirements(doc.Find("div.req"))

	assert.Equal(t, models.FieldMap{"memory": "8 GB RAM", "graphics": "GTX 970"}, reqs.Minimum)
	assert.Contains(t, notes, "minimum: "+NoteSplitSingleLine)
}

func TestParseRequirements_FlattenedMultiWordLabels(t *testing.T) {
	doc := mustDocument(t, `<div class="req">Minimum: OS *: Windows 10 Processor: Intel Core i5 or AMD Ryzen Memory: 8 GB RAM `+
		`Hard Drive: 20 GB Sound Card: DirectX compatible Additional Notes: Requires Steam</div>`)

	reqs, _ := NewParser().ParseRequirements(doc.Find("div.req"))

	want := models.FieldMap{
		"os":               "Windows 10",
		"processor":        "Intel Core i5 or AMD Ryzen",
		"memory":           "8 GB RAM",
		"storage":          "20 GB",
		"sound_card":       "DirectX compatible",
		"additional_notes": "Steam",
	}

	if diff := cmp.Diff(want, reqs.Minimum); diff != "" {
		t.Errorf("minimum mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRequirements_NoColonResidual(t *testing.T) {
	text := strings.Repeat("Windows 10 compatible machine ", 12)
	doc := mustDocument(t, `<div class="req">`+text+`</div>`)

	reqs, notes := NewParser().ParseRequirements(doc.Find("div.req"))

	trimmed := strings.TrimSpace(text)
	assert.Equal(t, "Windows 10", reqs.Minimum["os"])
	assert.Equal(t, trimmed[:200], reqs.Minimum["additional_notes"])
	assert.Empty(t, reqs.Recommended)
	assert.Equal(t, []string{"fallback: " + NoteUnparsedText, NoteEntireTextAsMinimum}, notes)
}

func TestParseRequirements_NoOSToken(t *testing.T) {
	doc := mustDocument(t, `<div class="req">Any modern computer will do</div>`)

	reqs, _ := NewParser().ParseRequirements(doc.Find("div.req"))

	assert.Equal(t, models.FieldMap{"additional_notes": "Any modern computer will do"}, reqs.Minimum)
}

func TestParseRequirements_StructuredNeverInventsResidual(t *testing.T) {
	doc := mustDocument(t, `<div class="req"><strong>Minimum:</strong><ul>
		<li><strong>Processor:</strong> 2 GHz</li>
	</ul><p>Runs on Ubuntu too</p></div>`)

	reqs, _ := NewParser().ParseRequirements(doc.Find("div.req"))

	assert.Equal(t, models.FieldMap{"processor": "2 GHz"}, reqs.Minimum)
}

func TestParseRequirements_SectionsInAnyOrder(t *testing.T) {
	doc := mustDocument(t, `<div class="req">RECOMMENDED: Memory: 16 GB MINIMUM: Memory: 8 GB</div>`)

	reqs, notes := NewParser().ParseRequirements(doc.Find("div.req"))

	assert.Equal(t, models.FieldMap{"memory": "8 GB"}, reqs.Minimum)
	assert.Equal(t, models.FieldMap{"memory": "16 GB"}, reqs.Recommended)
	assert.NotContains(t, notes, NoteEntireTextAsMinimum)
}

func TestSplitSections_BareKeywords(t *testing.T) {
	spans := NewParser().splitSections("minimum recommended: minimum:")

	assert.Equal(t, map[string]string{"minimum": ":", "recommended": ":"}, spans)
}

func TestParseRequirements_Empty(t *testing.T) {
	doc := mustDocument(t, `<div class="req">   </div>`)

	reqs, notes := NewParser().ParseRequirements(doc.Find("div.req"))

	assert.True(t, reqs.IsEmpty())
	assert.Empty(t, notes)
}

func TestParsePageRequirements(t *testing.T) {
	_, doc := loadFixture(t)

	parsed, _ := NewParser().ParsePageRequirements(doc)

	assert.Len(t, parsed, 3)
	assert.Contains(t, parsed, models.OSWindows)
	assert.Contains(t, parsed, models.OSMac)
	assert.Contains(t, parsed, models.OSLinux)
}

func TestParsePageRequirements_AssumedWindows(t *testing.T) {
	doc := mustDocument(t, `<div class="sys_req"><strong>Minimum:</strong><ul>
		<li><strong>OS:</strong> Windows XP</li>
	</ul></div>`)

	parsed, notes := NewParser().ParsePageRequirements(doc)

	require.Contains(t, parsed, models.OSWindows)
	assert.Equal(t, "Windows XP", parsed[models.OSWindows].Minimum["os"])
	require.NotEmpty(t, notes)
	assert.Equal(t, NoteAssumedWindows, notes[0])
}

func TestBuildStructured_DropsUnknownOS(t *testing.T) {
	raw := []models.RawRequirement{{OS: "win", Requirements: "x"}}
	parsed := map[string]models.OSRequirements{
		models.OSWindows: {Minimum: models.FieldMap{"os": "Windows 11"}},
		"freebsd":        {Minimum: models.FieldMap{"os": "FreeBSD"}},
	}

	structured, notes := BuildStructured(raw, parsed)

	assert.Equal(t, "Windows 11", structured.Windows.Minimum["os"])
	assert.NotNil(t, structured.Windows.Recommended)
	assert.True(t, structured.Mac.IsEmpty())
	assert.Equal(t, raw, structured.RawData)
	assert.Equal(t, []string{"Ignored requirements for unsupported OS 'freebsd'"}, notes)
}
