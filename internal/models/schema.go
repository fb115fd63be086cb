package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion tags the shape of a persisted record.
type SchemaVersion string

// Known schema versions, oldest first.
const (
	SchemaV1 SchemaVersion = "1.0"
	SchemaV2 SchemaVersion = "2.0"
	SchemaV3 SchemaVersion = "3.0"
)

// ErrUnknownSchemaVersion is returned for a version tag outside the known set.
var ErrUnknownSchemaVersion = errors.New("unknown schema version")

var schemaOrder = []SchemaVersion{SchemaV1, SchemaV2, SchemaV3}

// ParseSchemaVersion accepts "1.0", "2.0", "3.0" and the short forms "1", "2", "3".
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	switch s {
	case "1", "1.0", "v1":
		return SchemaV1, nil
	case "2", "2.0", "v2":
		return SchemaV2, nil
	case "3", "3.0", "v3":
		return SchemaV3, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownSchemaVersion, s)
}

func (v SchemaVersion) rank() int {
	for i, known := range schemaOrder {
		if known == v {
			return i
		}
	}

	return -1
}

// Valid reports whether v is a known version.
func (v SchemaVersion) Valid() bool {
	return v.rank() >= 0
}

// AtLeast reports whether v is the same as or newer than other.
func (v SchemaVersion) AtLeast(other SchemaVersion) bool {
	return v.Valid() && other.Valid() && v.rank() >= other.rank()
}

// HasReviews reports whether records of this version carry review fields.
func (v SchemaVersion) HasReviews() bool {
	return v.AtLeast(SchemaV2)
}

// HasStructuredRequirements reports whether system requirements are stored per OS and tier.
func (v SchemaVersion) HasStructuredRequirements() bool {
	return v.AtLeast(SchemaV3)
}

// Latest returns the newest known schema version.
func Latest() SchemaVersion {
	return schemaOrder[len(schemaOrder)-1]
}

// marshalPlain encodes v without escaping <, > and &. Records carry raw page
// markup and the archive keeps it readable.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
