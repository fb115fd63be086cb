// Package checksum hashes retained page markup and signs generated reports.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Checksum verification errors.
var (
	ErrMarkupMismatch = errors.New("retained markup does not match source")
	ErrNoMarkup       = errors.New("record has no html field")
	ErrNoSignature    = errors.New("no checksum block found")
	ErrHashMismatch   = errors.New("hash mismatch")
)

const (
	// TagStart opens the checksum block appended by Sign.
	TagStart = "<!-- CHECKSUM_START"
	// TagEnd closes the checksum block.
	TagEnd = "CHECKSUM_END -->"
)

var signatureRegex = regexp.MustCompile(`(?s)\n*<!--\s*CHECKSUM_START\s*\n(.*?)\n\s*CHECKSUM_END\s*-->\s*$`)

// CalculateHash computes the hex SHA-256 of content.
func CalculateHash(content string) string {
	hash := sha256.Sum256([]byte(content))

	return hex.EncodeToString(hash[:])
}

// VerifyFile checks that the record written at path still carries markup
// hashing to expected.
func VerifyFile(path, expected string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var record struct {
		HTML *string `json:"html"`
	}

	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if record.HTML == nil {
		return fmt.Errorf("%s: %w", path, ErrNoMarkup)
	}

	if got := CalculateHash(*record.HTML); got != expected {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrMarkupMismatch, path, expected, got)
	}

	return nil
}

// Sign strips any previous checksum block from content and appends a fresh one.
func Sign(content string) string {
	clean := Strip(content)

	return fmt.Sprintf("%s\n\n%s\nSHA256: %s\n%s\n", clean, TagStart, CalculateHash(clean), TagEnd)
}

// Strip removes the checksum block and trailing newlines.
func Strip(content string) string {
	return strings.TrimRight(signatureRegex.ReplaceAllString(content, ""), "\n")
}

// Verify checks a signed document against its checksum block.
func Verify(content string) error {
	match := signatureRegex.FindStringSubmatch(content)
	if match == nil {
		return ErrNoSignature
	}

	want := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(match[1]), "SHA256:"))

	if got := CalculateHash(Strip(content)); got != want {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, want, got)
	}

	return nil
}
