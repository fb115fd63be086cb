package validator

import (
	"errors"
	"testing"

	"steamscraper/internal/models"
)

func completeRecord(version models.SchemaVersion) *models.GameRecord {
	return &models.GameRecord{
		Version:       version,
		AppID:         620,
		Title:         models.StringPtr("Portal 2"),
		Price:         models.StringPtr("$9.99"),
		ReleaseDate:   models.StringPtr("18 Apr, 2011"),
		Tags:          []string{"Puzzle"},
		Description:   models.StringPtr("A puzzle game."),
		MatureContent: models.StringPtr("Mild violence"),
		AboutThisGame: models.StringPtr("About"),
		SystemRequirements: models.SystemRequirements{
			Raw: []models.RawRequirement{{OS: "win", Requirements: "OS: Windows 10"}},
		},
	}
}

func TestCheck_CompleteRecordIsValid(t *testing.T) {
	for _, policy := range []Policy{StrictPolicy(), RelaxedPolicy()} {
		result := Check(completeRecord(models.SchemaV1), policy)
		if !result.Valid || len(result.Missing) != 0 {
			t.Errorf("%s: got %+v, want valid", policy.Name, result)
		}
	}
}

func TestCheck_ReportsExactlyTheMissingField(t *testing.T) {
	tests := []struct {
		field string
		clear func(r *models.GameRecord)
	}{
		{models.FieldTitle, func(r *models.GameRecord) { r.Title = nil }},
		{models.FieldPrice, func(r *models.GameRecord) { r.Price = models.StringPtr("") }},
		{models.FieldReleaseDate, func(r *models.GameRecord) { r.ReleaseDate = nil }},
		{models.FieldDescription, func(r *models.GameRecord) { r.Description = models.StringPtr("") }},
		{models.FieldAboutThisGame, func(r *models.GameRecord) { r.AboutThisGame = nil }},
		{models.FieldTags, func(r *models.GameRecord) { r.Tags = []string{} }},
		{models.FieldMatureContent, func(r *models.GameRecord) { r.MatureContent = nil }},
		{models.FieldSystemRequirements, func(r *models.GameRecord) { r.SystemRequirements = models.SystemRequirements{} }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			record := completeRecord(models.SchemaV1)
			tt.clear(record)

			result := Check(record, StrictPolicy())
			if result.Valid {
				t.Fatal("expected trash")
			}

			if len(result.Missing) != 1 || result.Missing[0] != tt.field {
				t.Errorf("Missing = %v, want [%s]", result.Missing, tt.field)
			}
		})
	}
}

func TestRelaxedPolicy_IgnoresPriceAndMatureContent(t *testing.T) {
	record := completeRecord(models.SchemaV2)
	record.Price = nil
	record.MatureContent = nil

	if result := Check(record, RelaxedPolicy()); !result.Valid {
		t.Errorf("relaxed policy: got %+v, want valid", result)
	}

	if result := Check(record, StrictPolicy()); result.Valid {
		t.Error("strict policy should reject a record without price")
	}
}

func TestCheck_StructuredRequirementsEmpty(t *testing.T) {
	record := completeRecord(models.SchemaV3)
	record.SystemRequirements = models.SystemRequirements{Structured: models.NewStructuredRequirements(nil)}

	result := Check(record, RelaxedPolicy())
	if result.Valid {
		t.Error("structured requirements without data or raw fallback should be missing")
	}
}

func TestClassifier_PolicyPerVersion(t *testing.T) {
	c := NewClassifier(nil)

	if got := c.PolicyFor(models.SchemaV1).Name; got != PolicyStrict {
		t.Errorf("v1 policy = %s, want strict", got)
	}

	if got := c.PolicyFor(models.SchemaV3).Name; got != PolicyRelaxed {
		t.Errorf("v3 policy = %s, want relaxed", got)
	}

	custom, err := NewPolicy("titles-only", []string{models.FieldTitle})
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	c = NewClassifier(map[models.SchemaVersion]Policy{models.SchemaV1: custom})

	record := &models.GameRecord{Version: models.SchemaV1, Title: models.StringPtr("Game")}
	if result := c.Classify(record); !result.Valid {
		t.Errorf("custom policy: got %+v, want valid", result)
	}
}

func TestNewPolicy_UnknownField(t *testing.T) {
	_, err := NewPolicy("bad", []string{"title", "publisher_logo"})
	if !errors.Is(err, models.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestPolicyByName(t *testing.T) {
	if _, err := PolicyByName("lenient"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("err = %v, want ErrUnknownPolicy", err)
	}

	p, err := PolicyByName(PolicyRelaxed)
	if err != nil {
		t.Fatalf("PolicyByName: %v", err)
	}

	if len(p.Required) != 6 {
		t.Errorf("relaxed policy has %d fields, want 6", len(p.Required))
	}
}

func TestStats(t *testing.T) {
	var s Stats

	s.Add(Result{Valid: true})
	s.Add(Result{Missing: []string{models.FieldPrice, models.FieldTags}})
	s.Add(Result{Missing: []string{models.FieldPrice}})

	snap := s.Snapshot()
	if snap.Total != 3 || snap.Valid != 1 || snap.Trash != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	fields := snap.MissingFields()
	if len(fields) != 2 || fields[0] != models.FieldPrice {
		t.Errorf("MissingFields = %v, want price first", fields)
	}
}
