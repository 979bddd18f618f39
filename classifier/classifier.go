// Package classifier guesses an issue category and a one-line summary from
// the free-text description using fixed keyword groups.
package classifier

import (
	"strings"

	"gramaalert-be/models"
)

const DefaultSummary = "Community infrastructure issue reported requiring assessment"

type categoryRule struct {
	category models.IssueCategory
	keywords []string
}

type summaryRule struct {
	summary  string
	keywords []string
}

// Order matters: the first group with a matching keyword wins.
var categoryRules = []categoryRule{
	{models.Water, []string{"water", "supply", "pipe", "tap"}},
	{models.Road, []string{"road", "pothole", "street", "path"}},
	{models.Electricity, []string{"light", "electricity", "power", "wire"}},
	{models.Garbage, []string{"garbage", "waste", "trash", "dump"}},
}

var summaryRules = []summaryRule{
	{"Water supply disruption reported affecting local infrastructure", []string{"water", "supply", "pipe"}},
	{"Road infrastructure maintenance required for public safety", []string{"road", "pothole", "street"}},
	{"Electrical infrastructure issue affecting community services", []string{"light", "electricity", "power"}},
	{"Waste management issue requiring municipal attention", []string{"garbage", "waste", "trash"}},
	{"Drainage system issue affecting area sanitation", []string{"drainage", "flood", "sewer"}},
}

// Classify returns the category and summary for a description.
func Classify(description string) (models.IssueCategory, string) {
	return Category(description), Summary(description)
}

// Category returns models.Other when no keyword group matches.
func Category(description string) models.IssueCategory {
	words := strings.ToLower(description)
	for _, rule := range categoryRules {
		if containsAny(words, rule.keywords) {
			return rule.category
		}
	}
	return models.Other
}

// Summary returns DefaultSummary when no keyword group matches.
func Summary(description string) string {
	words := strings.ToLower(description)
	for _, rule := range summaryRules {
		if containsAny(words, rule.keywords) {
			return rule.summary
		}
	}
	return DefaultSummary
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
