// Package validator decides whether an extracted game record is usable or trash.
package validator

import (
	"errors"
	"fmt"
	"slices"

	"steamscraper/internal/models"
)

// Preset policy names.
const (
	PolicyStrict  = "strict"
	PolicyRelaxed = "relaxed"
)

// ErrUnknownPolicy is returned for a preset name other than strict or relaxed.
var ErrUnknownPolicy = errors.New("unknown validity policy")

var strictFields = []string{
	models.FieldTitle,
	models.FieldPrice,
	models.FieldReleaseDate,
	models.FieldDescription,
	models.FieldAboutThisGame,
	models.FieldTags,
	models.FieldMatureContent,
	models.FieldSystemRequirements,
}

// Policy is the set of fields a record must carry to be kept.
type Policy struct {
	Name     string
	Required []string
}

// StrictPolicy requires every descriptive field, price and mature content included.
func StrictPolicy() Policy {
	return Policy{Name: PolicyStrict, Required: slices.Clone(strictFields)}
}

// RelaxedPolicy drops price and mature_content, which are often legitimately
// empty for free or unrated titles.
func RelaxedPolicy() Policy {
	required := slices.DeleteFunc(slices.Clone(strictFields), func(f string) bool {
		return f == models.FieldPrice || f == models.FieldMatureContent
	})

	return Policy{Name: PolicyRelaxed, Required: required}
}

// PolicyByName returns a preset policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case PolicyStrict:
		return StrictPolicy(), nil
	case PolicyRelaxed:
		return RelaxedPolicy(), nil
	}

	return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// NewPolicy builds a custom policy, rejecting field names records do not have.
func NewPolicy(name string, required []string) (Policy, error) {
	for _, field := range required {
		if !slices.Contains(models.CheckableFields, field) {
			return Policy{}, fmt.Errorf("policy %q: %w: %q", name, models.ErrUnknownField, field)
		}
	}

	return Policy{Name: name, Required: slices.Clone(required)}, nil
}

// DefaultPolicies maps each schema version to its built-in policy.
func DefaultPolicies() map[models.SchemaVersion]Policy {
	return map[models.SchemaVersion]Policy{
		models.SchemaV1: StrictPolicy(),
		models.SchemaV2: RelaxedPolicy(),
		models.SchemaV3: RelaxedPolicy(),
	}
}

// Result is the outcome of classifying one record.
type Result struct {
	Valid   bool
	Missing []string
}

// Check applies policy to record. A field is missing when it is absent, an
// empty string or an empty sequence.
func Check(record *models.GameRecord, policy Policy) Result {
	result := Result{Valid: true}

	for _, field := range policy.Required {
		empty, err := record.FieldIsEmpty(field)
		if err != nil || empty {
			result.Missing = append(result.Missing, field)
		}
	}

	result.Valid = len(result.Missing) == 0

	return result
}

// Classifier picks the policy for a record's schema version.
type Classifier struct {
	policies map[models.SchemaVersion]Policy
}

// NewClassifier creates a classifier. Versions missing from policies use DefaultPolicies.
func NewClassifier(policies map[models.SchemaVersion]Policy) *Classifier {
	merged := DefaultPolicies()
	for version, policy := range policies {
		merged[version] = policy
	}

	return &Classifier{policies: merged}
}

// PolicyFor returns the policy applied to version. Unknown versions get the strict preset.
func (c *Classifier) PolicyFor(version models.SchemaVersion) Policy {
	if policy, ok := c.policies[version]; ok {
		return policy
	}

	return StrictPolicy()
}

// Classify checks record against the policy of its version.
func (c *Classifier) Classify(record *models.GameRecord) Result {
	return Check(record, c.PolicyFor(record.Version))
}
