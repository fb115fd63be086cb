package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Normalized OS names kept in the structured requirements shape.
const (
	OSWindows = "windows"
	OSMac     = "mac"
	OSLinux   = "linux"
)

// Requirement tiers.
const (
	TierMinimum     = "minimum"
	TierRecommended = "recommended"
)

// StructuredOSNames lists the OS keys of a structured requirements object, in output order.
var StructuredOSNames = []string{OSWindows, OSMac, OSLinux}

// ErrInvalidRequirements is returned when system_requirements is neither an array nor an object.
var ErrInvalidRequirements = errors.New("system_requirements must be an array or an object")

// RawRequirement is one OS section of the requirements area as unparsed text.
type RawRequirement struct {
	OS           string `json:"os"`
	Requirements string `json:"requirements"`
}

// FieldMap maps a canonical requirement field key to its cleaned value.
type FieldMap map[string]string

// MarshalJSON encodes a nil map as {}.
func (m FieldMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	return marshalPlain(map[string]string(m))
}

// OSRequirements holds the minimum and recommended field maps of one OS.
type OSRequirements struct {
	Minimum     FieldMap `json:"minimum"`
	Recommended FieldMap `json:"recommended"`
}

// NewOSRequirements returns empty, non-nil tier maps.
func NewOSRequirements() OSRequirements {
	return OSRequirements{Minimum: FieldMap{}, Recommended: FieldMap{}}
}

// Tier returns the map for "minimum" or "recommended", creating it on demand.
func (o *OSRequirements) Tier(name string) FieldMap {
	switch name {
	case TierMinimum:
		if o.Minimum == nil {
			o.Minimum = FieldMap{}
		}

		return o.Minimum
	case TierRecommended:
		if o.Recommended == nil {
			o.Recommended = FieldMap{}
		}

		return o.Recommended
	}

	return nil
}

// IsEmpty reports whether neither tier holds a field.
func (o OSRequirements) IsEmpty() bool {
	return len(o.Minimum) == 0 && len(o.Recommended) == 0
}

// StructuredRequirements is the v3 shape. RawData keeps the previous
// unparsed list as a fallback of last resort.
type StructuredRequirements struct {
	Windows OSRequirements   `json:"windows"`
	Mac     OSRequirements   `json:"mac"`
	Linux   OSRequirements   `json:"linux"`
	RawData []RawRequirement `json:"raw_data"`
}

// NewStructuredRequirements returns an object with every OS present and empty.
func NewStructuredRequirements(raw []RawRequirement) *StructuredRequirements {
	if raw == nil {
		raw = []RawRequirement{}
	}

	return &StructuredRequirements{
		Windows: NewOSRequirements(),
		Mac:     NewOSRequirements(),
		Linux:   NewOSRequirements(),
		RawData: raw,
	}
}

// ForOS returns the entry for a normalized OS name, or nil when the name is not kept.
func (s *StructuredRequirements) ForOS(name string) *OSRequirements {
	switch name {
	case OSWindows:
		return &s.Windows
	case OSMac:
		return &s.Mac
	case OSLinux:
		return &s.Linux
	}

	return nil
}

// SystemRequirements is either the raw list (v1, v2) or the structured object (v3).
type SystemRequirements struct {
	Raw        []RawRequirement
	Structured *StructuredRequirements
}

// IsStructured reports whether the v3 object is set.
func (r SystemRequirements) IsStructured() bool {
	return r.Structured != nil
}

// RawList returns the unparsed list, whichever shape is set.
func (r SystemRequirements) RawList() []RawRequirement {
	if r.Structured != nil {
		return r.Structured.RawData
	}

	return r.Raw
}

// IsEmpty reports whether the value carries no information at all.
func (r SystemRequirements) IsEmpty() bool {
	if r.Structured == nil {
		return len(r.Raw) == 0
	}

	for _, name := range StructuredOSNames {
		if !r.Structured.ForOS(name).IsEmpty() {
			return false
		}
	}

	return len(r.Structured.RawData) == 0
}

// MarshalJSON implements json.Marshaler.
func (r SystemRequirements) MarshalJSON() ([]byte, error) {
	if r.Structured != nil {
		out := *r.Structured
		if out.RawData == nil {
			out.RawData = []RawRequirement{}
		}

		return marshalPlain(out)
	}

	raw := r.Raw
	if raw == nil {
		raw = []RawRequirement{}
	}

	return marshalPlain(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SystemRequirements) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = SystemRequirements{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &r.Raw); err != nil {
			return fmt.Errorf("decode raw requirements: %w", err)
		}

		return nil
	case '{':
		structured := NewStructuredRequirements(nil)
		if err := json.Unmarshal(data, structured); err != nil {
			return fmt.Errorf("decode structured requirements: %w", err)
		}

		r.Structured = structured

		return nil
	}

	return ErrInvalidRequirements
}
