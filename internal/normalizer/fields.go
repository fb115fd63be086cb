package normalizer

import (
	"regexp"
	"strings"
)

// Canonical requirement field keys.
const (
	FieldOS              = "os"
	FieldProcessor       = "processor"
	FieldMemory          = "memory"
	FieldGraphics        = "graphics"
	FieldDirectX         = "directx"
	FieldNetwork         = "network"
	FieldStorage         = "storage"
	FieldSoundCard       = "sound_card"
	FieldAdditionalNotes = "additional_notes"
)

// FieldRule maps labels matching Pattern to Key.
type FieldRule struct {
	Pattern string
	Key     string
}

// DefaultFieldRules returns the label rules in match order.
func DefaultFieldRules() []FieldRule {
	return []FieldRule{
		{`os\s*\*?|operating\s+system`, FieldOS},
		{`processor|cpu`, FieldProcessor},
		{`memory|ram`, FieldMemory},
		{`graphics|gpu|video\s+card`, FieldGraphics},
		{`directx|dx`, FieldDirectX},
		{`network|internet`, FieldNetwork},
		{`storage|hard\s+drive|hard\s+disk\s+space|disk\s+space|available\s+space`, FieldStorage},
		{`video\s+card`, FieldGraphics},
		{`sound\s+card|sound|audio`, FieldSoundCard},
		{`additional\s+notes?|notes?|other`, FieldAdditionalNotes},
	}
}

type compiledRule struct {
	search *regexp.Regexp
	whole  *regexp.Regexp
	key    string
}

// FieldMapper resolves raw requirement labels to canonical keys.
type FieldMapper struct {
	rules []compiledRule
}

var (
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	labelNoise        = regexp.MustCompile(`[^\p{L}\p{N}\s*]`)
)

// NewFieldMapper compiles rules. It panics on an invalid pattern, like regexp.MustCompile.
func NewFieldMapper(rules []FieldRule) *FieldMapper {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		compiled = append(compiled, compiledRule{
			search: regexp.MustCompile(r.Pattern),
			whole:  regexp.MustCompile(`^(?:` + r.Pattern + `)$`),
			key:    r.Key,
		})
	}

	return &FieldMapper{rules: compiled}
}

// Map returns the canonical key for label. The first rule found anywhere in
// the lower-cased label wins; otherwise a safe key is derived from the label.
// ok is false when nothing usable remains.
func (m *FieldMapper) Map(label string) (string, bool) {
	lower := strings.ToLower(label)

	for _, r := range m.rules {
		if r.search.MatchString(lower) {
			return r.key, true
		}
	}

	key := SafeKey(lower)

	return key, key != ""
}

// Canonical reports whether the whole label, ignoring case and punctuation,
// is one of the known label forms.
func (m *FieldMapper) Canonical(label string) (string, bool) {
	lower := strings.ToLower(labelNoise.ReplaceAllString(label, ""))
	lower = strings.TrimSpace(whitespacePattern.ReplaceAllString(lower, " "))

	for _, r := range m.rules {
		if r.whole.MatchString(lower) {
			return r.key, true
		}
	}

	return "", false
}

// SafeKey lower-cases label, removes punctuation and joins words with underscores.
func SafeKey(label string) string {
	key := nonWordPattern.ReplaceAllString(strings.ToLower(label), "")

	return whitespacePattern.ReplaceAllString(strings.TrimSpace(key), "_")
}
