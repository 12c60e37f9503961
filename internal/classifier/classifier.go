// Package classifier maps an uploaded file name to a dog breed label.
//
// The classifier is a stand-in for a real model: it looks for known breed
// names inside the lower-cased file name and reports the first one found in
// pattern order with a fixed confidence.
package classifier

import "strings"

// DefaultConfidence is the score reported for every identified breed.
const DefaultConfidence = 0.95

// Classifier derives a breed from a file name.
type Classifier interface {
	Classify(fileName string) Result
}

// Result is the outcome of a classification. OK is false when no breed
// pattern matched, in which case BreedLabel and Confidence are zero.
type Result struct {
	BreedLabel string  `json:"breed"`
	Confidence float64 `json:"confidence"`
	OK         bool    `json:"identified"`
}

// Unrecognized is the result returned when nothing matched.
var Unrecognized = Result{}

// Pattern pairs a lower-case substring with the breed label it identifies.
type Pattern struct {
	Substring string
	Breed     string
}

// DefaultPatterns is the curated breed list. Order matters: the first
// pattern found in a name wins.
var DefaultPatterns = []Pattern{
	{Substring: "labrador", Breed: "Labrador Retriever"},
	{Substring: "poodle", Breed: "Poodle"},
	{Substring: "beagle", Breed: "Beagle"},
	{Substring: "bulldog", Breed: "Bulldog"},
	{Substring: "german shepherd", Breed: "German Shepherd"},
	{Substring: "rottweiler", Breed: "Rottweiler"},
	{Substring: "husky", Breed: "Siberian Husky"},
	{Substring: "dachshund", Breed: "Dachshund"},
	{Substring: "boxer", Breed: "Boxer"},
	{Substring: "yorkshire", Breed: "Yorkshire Terrier"},
}

// PatternClassifier matches file names against an ordered pattern list.
// It holds no mutable state and is safe for concurrent use.
type PatternClassifier struct {
	patterns   []Pattern
	confidence float64
}

// NewPatternClassifier returns a classifier over the given patterns, or over
// DefaultPatterns when none are passed.
func NewPatternClassifier(patterns ...Pattern) *PatternClassifier {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	ps := make([]Pattern, len(patterns))
	for i, p := range patterns {
		ps[i] = Pattern{Substring: strings.ToLower(p.Substring), Breed: p.Breed}
	}

	return &PatternClassifier{
		patterns:   ps,
		confidence: DefaultConfidence,
	}
}

// Classify returns the breed of the first pattern, in list order, contained
// in the lower-cased file name.
func (c *PatternClassifier) Classify(fileName string) Result {
	name := strings.ToLower(fileName)

	for _, p := range c.patterns {
		if p.Substring == "" {
			continue
		}
		if strings.Contains(name, p.Substring) {
			return Result{BreedLabel: p.Breed, Confidence: c.confidence, OK: true}
		}
	}

	return Unrecognized
}

// Breeds lists the breed labels the classifier can report, in pattern order.
func (c *PatternClassifier) Breeds() []string {
	breeds := make([]string, 0, len(c.patterns))
	for _, p := range c.patterns {
		breeds = append(breeds, p.Breed)
	}
	return breeds
}
