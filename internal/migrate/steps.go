// Package migrate re-derives newer record versions from the markup retained
// in older ones, without fetching anything.
package migrate

import (
	"errors"
	"fmt"

	"steamscraper/internal/crawler/parsers"
	"steamscraper/internal/models"
)

// Step statistic names.
const (
	StatReviewCountFound   = "review_count_found"
	StatMissingReviewCount = "missing_review_count"
	StatReviewScoreFound   = "review_score_found"
	StatMissingReviewScore = "missing_review_score"

	StatParsingSuccessful = "parsing_successful"
	StatParsingFailed     = "parsing_failed"
	StatTotalParsingNotes = "total_parsing_notes"
	StatFilesWithWindows  = "files_with_windows"
	StatFilesWithMac      = "files_with_mac"
	StatFilesWithLinux    = "files_with_linux"
)

// Migration errors.
var (
	ErrVersionMismatch = errors.New("record version does not match migration source")
	ErrNoPath          = errors.New("no migration path")
)

// Counters are per-record statistic increments.
type Counters map[string]int

// Add merges other into c.
func (c Counters) Add(other Counters) {
	for k, v := range other {
		c[k] += v
	}
}

// Step upgrades a record by exactly one schema version, in place.
type Step interface {
	From() models.SchemaVersion
	To() models.SchemaVersion
	Apply(record *models.GameRecord) (Counters, error)
}

// ReviewsStep adds review_count and review_score (1.0 → 2.0).
type ReviewsStep struct {
	parser *parsers.Parser
}

// NewReviewsStep creates the 1.0 → 2.0 step.
func NewReviewsStep(parser *parsers.Parser) *ReviewsStep {
	return &ReviewsStep{parser: parser}
}

// From implements Step.
func (s *ReviewsStep) From() models.SchemaVersion { return models.SchemaV1 }

// To implements Step.
func (s *ReviewsStep) To() models.SchemaVersion { return models.SchemaV2 }

// Apply implements Step.
func (s *ReviewsStep) Apply(record *models.GameRecord) (Counters, error) {
	doc, err := parsers.NewDocument(record.HTML)
	if err != nil {
		return nil, err
	}

	record.ReviewCount, record.ReviewScore = s.parser.ExtractReviews(doc, record.HTML)
	record.Version = s.To()

	counters := Counters{}

	if record.ReviewCount != nil {
		counters[StatReviewCountFound]++
	} else {
		counters[StatMissingReviewCount]++
	}

	if record.ReviewScore != nil {
		counters[StatReviewScoreFound]++
	} else {
		counters[StatMissingReviewScore]++
	}

	return counters, nil
}

// RequirementsStep replaces the raw requirements list with the structured
// per-OS form, keeping the list as raw_data (2.0 → 3.0).
type RequirementsStep struct {
	parser *parsers.Parser
	notes  func(appID int, notes []string)
}

// NewRequirementsStep creates the 2.0 → 3.0 step. onNotes, when set,
// receives the parsing notes of every record.
func NewRequirementsStep(parser *parsers.Parser, onNotes func(appID int, notes []string)) *RequirementsStep {
	return &RequirementsStep{parser: parser, notes: onNotes}
}

// From implements Step.
func (s *RequirementsStep) From() models.SchemaVersion { return models.SchemaV2 }

// To implements Step.
func (s *RequirementsStep) To() models.SchemaVersion { return models.SchemaV3 }

// Apply implements Step.
func (s *RequirementsStep) Apply(record *models.GameRecord) (Counters, error) {
	doc, err := parsers.NewDocument(record.HTML)
	if err != nil {
		return nil, err
	}

	parsed, notes := s.parser.ParsePageRequirements(doc)
	structured, dropped := parsers.BuildStructured(record.SystemRequirements.RawList(), parsed)
	notes = append(notes, dropped...)

	record.SystemRequirements = models.SystemRequirements{Structured: structured}
	record.Version = s.To()

	if s.notes != nil && len(notes) > 0 {
		s.notes(record.AppID, notes)
	}

	counters := Counters{StatTotalParsingNotes: len(notes)}

	if len(parsed) == 0 {
		counters[StatParsingFailed]++

		return counters, nil
	}

	counters[StatParsingSuccessful]++

	for name, stat := range map[string]string{
		models.OSWindows: StatFilesWithWindows,
		models.OSMac:     StatFilesWithMac,
		models.OSLinux:   StatFilesWithLinux,
	} {
		if !structured.ForOS(name).IsEmpty() {
			counters[stat]++
		}
	}

	return counters, nil
}

// Plan returns the steps leading from one version to another, oldest first.
func Plan(from, to models.SchemaVersion, parser *parsers.Parser, onNotes func(int, []string)) ([]Step, error) {
	if !from.Valid() || !to.Valid() || from.AtLeast(to) {
		return nil, fmt.Errorf("%w: %s → %s", ErrNoPath, from, to)
	}

	all := []Step{
		NewReviewsStep(parser),
		NewRequirementsStep(parser, onNotes),
	}

	var steps []Step

	for _, step := range all {
		if step.From().AtLeast(from) && to.AtLeast(step.To()) {
			steps = append(steps, step)
		}
	}

	return steps, nil
}

// StatNames returns the statistic names a plan can produce, in report order.
func StatNames(steps []Step) []string {
	var names []string

	for _, step := range steps {
		switch step.(type) {
		case *ReviewsStep:
			names = append(names, StatReviewCountFound, StatMissingReviewCount, StatReviewScoreFound, StatMissingReviewScore)
		case *RequirementsStep:
			names = append(names, StatParsingSuccessful, StatParsingFailed, StatTotalParsingNotes,
				StatFilesWithWindows, StatFilesWithMac, StatFilesWithLinux)
		}
	}

	return names
}
