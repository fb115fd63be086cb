// Package parsers extracts game records and structured system requirements
// from store page markup.
package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"steamscraper/internal/normalizer"
)

// Parser holds the compiled patterns used by the extractors and the
// requirements parser. It is safe for concurrent use.
type Parser struct {
	processor *normalizer.Processor

	reviewScorePattern *regexp.Regexp
	osTokenPattern     *regexp.Regexp
	minimumPattern     *regexp.Regexp
	minimumStop        *regexp.Regexp
	recommendedPattern *regexp.Regexp
	recommendedStop    *regexp.Regexp
	sectionWordPattern *regexp.Regexp
	residualNoteLimit  int
	unmappedValueLimit int
}

// NewParser creates a new parser with the default field rules.
func NewParser() *Parser {
	return NewParserWithProcessor(normalizer.NewProcessor())
}

// NewParserWithProcessor creates a parser around a custom label processor.
func NewParserWithProcessor(processor *normalizer.Processor) *Parser {
	return &Parser{
		processor: processor,
		// "87% of the 1,234 user reviews for this game are positive"
		reviewScorePattern: regexp.MustCompile(`(?is)(\d+)%\s+of\s+the.*?reviews.*?are\s+positive`),
		osTokenPattern:     regexp.MustCompile(`(?i)windows?\s+\d+|macos?\s+[\d.]+|linux|ubuntu`),
		minimumPattern:     regexp.MustCompile(`(?i)minimum:?`),
		minimumStop:        regexp.MustCompile(`(?i)recommended:`),
		recommendedPattern: regexp.MustCompile(`(?i)recommended:?`),
		recommendedStop:    regexp.MustCompile(`(?i)minimum:`),
		sectionWordPattern: regexp.MustCompile(`(?i)minimum|recommended`),
		residualNoteLimit:  200,
		unmappedValueLimit: 50,
	}
}

// NewDocument parses raw page markup.
func NewDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	return doc, nil
}
