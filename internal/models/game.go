// Package models defines the persisted record shapes of the store-page archive.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Record field names, as they appear in the JSON archive.
const (
	FieldTitle              = "title"
	FieldPrice              = "price"
	FieldReleaseDate        = "release_date"
	FieldDeveloper          = "developer"
	FieldPublisher          = "publisher"
	FieldTags               = "tags"
	FieldDescription        = "description"
	FieldMatureContent      = "mature_content"
	FieldAboutThisGame      = "about_this_game"
	FieldSystemRequirements = "system_requirements"
	FieldReviewCount        = "review_count"
	FieldReviewScore        = "review_score"
)

// CheckableFields lists every field name FieldIsEmpty understands.
var CheckableFields = []string{
	FieldTitle,
	FieldPrice,
	FieldReleaseDate,
	FieldDeveloper,
	FieldPublisher,
	FieldTags,
	FieldDescription,
	FieldMatureContent,
	FieldAboutThisGame,
	FieldSystemRequirements,
	FieldReviewCount,
	FieldReviewScore,
}

// TrashStatus is the status value of a trash marker.
const TrashStatus = "trash"

// ErrUnknownField is returned by FieldIsEmpty for a name outside CheckableFields.
var ErrUnknownField = errors.New("unknown record field")

// GameRecord is one extracted store page. HTML is the durable source every
// later version is derived from.
type GameRecord struct {
	Version            SchemaVersion      `json:"version"`
	AppID              int                `json:"app_id"`
	URL                string             `json:"url"`
	Title              *string            `json:"title"`
	Price              *string            `json:"price"`
	ReleaseDate        *string            `json:"release_date"`
	Developer          []string           `json:"developer"`
	Publisher          []string           `json:"publisher"`
	Tags               []string           `json:"tags"`
	Description        *string            `json:"description"`
	MatureContent      *string            `json:"mature_content"`
	AboutThisGame      *string            `json:"about_this_game"`
	SystemRequirements SystemRequirements `json:"system_requirements"`
	ScrapedAt          Timestamp          `json:"scraped_at"`
	ReviewCount        *int               `json:"review_count,omitempty"`
	ReviewScore        *float64           `json:"review_score,omitempty"`
	HTML               string             `json:"html"`
}

// recordWire fixes the key order and keeps review keys as explicit nulls from v2 on.
type recordWire struct {
	Version            SchemaVersion      `json:"version"`
	AppID              int                `json:"app_id"`
	URL                string             `json:"url"`
	Title              *string            `json:"title"`
	Price              *string            `json:"price"`
	ReleaseDate        *string            `json:"release_date"`
	Developer          []string           `json:"developer"`
	Publisher          []string           `json:"publisher"`
	Tags               []string           `json:"tags"`
	Description        *string            `json:"description"`
	MatureContent      *string            `json:"mature_content"`
	AboutThisGame      *string            `json:"about_this_game"`
	SystemRequirements SystemRequirements `json:"system_requirements"`
	ScrapedAt          Timestamp          `json:"scraped_at"`
	ReviewCount        json.RawMessage    `json:"review_count,omitempty"`
	ReviewScore        json.RawMessage    `json:"review_score,omitempty"`
	HTML               string             `json:"html"`
}

// MarshalJSON implements json.Marshaler.
func (r GameRecord) MarshalJSON() ([]byte, error) {
	w := recordWire{
		Version:            r.Version,
		AppID:              r.AppID,
		URL:                r.URL,
		Title:              r.Title,
		Price:              r.Price,
		ReleaseDate:        r.ReleaseDate,
		Developer:          nonNil(r.Developer),
		Publisher:          nonNil(r.Publisher),
		Tags:               nonNil(r.Tags),
		Description:        r.Description,
		MatureContent:      r.MatureContent,
		AboutThisGame:      r.AboutThisGame,
		SystemRequirements: r.SystemRequirements,
		ScrapedAt:          r.ScrapedAt,
		HTML:               r.HTML,
	}

	if r.Version.HasReviews() {
		var err error

		if w.ReviewCount, err = marshalPlain(r.ReviewCount); err != nil {
			return nil, fmt.Errorf("encode review_count: %w", err)
		}

		if w.ReviewScore, err = marshalPlain(r.ReviewScore); err != nil {
			return nil, fmt.Errorf("encode review_score: %w", err)
		}
	}

	return marshalPlain(w)
}

// FieldIsEmpty reports whether the named field is absent, an empty string or an empty sequence.
func (r *GameRecord) FieldIsEmpty(name string) (bool, error) {
	switch name {
	case FieldTitle:
		return emptyString(r.Title), nil
	case FieldPrice:
		return emptyString(r.Price), nil
	case FieldReleaseDate:
		return emptyString(r.ReleaseDate), nil
	case FieldDeveloper:
		return len(r.Developer) == 0, nil
	case FieldPublisher:
		return len(r.Publisher) == 0, nil
	case FieldTags:
		return len(r.Tags) == 0, nil
	case FieldDescription:
		return emptyString(r.Description), nil
	case FieldMatureContent:
		return emptyString(r.MatureContent), nil
	case FieldAboutThisGame:
		return emptyString(r.AboutThisGame), nil
	case FieldSystemRequirements:
		return r.SystemRequirements.IsEmpty(), nil
	case FieldReviewCount:
		return r.ReviewCount == nil, nil
	case FieldReviewScore:
		return r.ReviewScore == nil, nil
	}

	return false, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// TrashMarker stands in for a record that failed validity classification.
type TrashMarker struct {
	Version   SchemaVersion `json:"version"`
	AppID     int           `json:"app_id"`
	Status    string        `json:"status"`
	ScrapedAt Timestamp     `json:"scraped_at"`
}

// NewTrashMarker builds a marker for appID stamped with the current time.
func NewTrashMarker(version SchemaVersion, appID int) TrashMarker {
	return TrashMarker{
		Version:   version,
		AppID:     appID,
		Status:    TrashStatus,
		ScrapedAt: Now(),
	}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func emptyString(s *string) bool {
	return s == nil || *s == ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
