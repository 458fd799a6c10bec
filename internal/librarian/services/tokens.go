// Package services implements the librarian engine: indexing, cascading
// retrieval, focus inference, inventory responses, source cards and the
// chat orchestrator.
package services

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// Stopwords dropped when scoring inventory queries.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "about": true,
	"any": true, "have": true, "has": true, "are": true, "was": true,
	"you": true, "your": true, "what": true, "which": true, "that": true,
	"this": true, "there": true, "how": true, "many": true, "list": true,
	"show": true, "all": true, "saved": true, "video": true, "videos": true,
	"library": true, "highlight": true, "highlights": true, "note": true,
	"notes": true, "can": true, "could": true, "please": true, "tell": true,
}

// Generic words stripped from titles before focus scoring; they match
// almost any query about the library.
var genericTitleWords = map[string]bool{
	"video": true, "videos": true, "tutorial": true, "course": true,
	"lecture": true, "guide": true, "episode": true, "part": true,
}

// tokenize lowercases the text and returns alphanumeric runs longer
// than two characters.
func tokenize(text string) []string {
	var tokens []string
	for _, token := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if len(token) > 2 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// tokenSet is tokenize with duplicates removed.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range tokenize(text) {
		set[token] = true
	}
	return set
}

// contentTokens drops stopwords from the token list.
func contentTokens(text string) []string {
	var tokens []string
	for _, token := range tokenize(text) {
		if !stopwords[token] {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// titleTokens returns a title's token set with generic words removed.
func titleTokens(title string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range tokenize(title) {
		if !genericTitleWords[token] {
			set[token] = true
		}
	}
	return set
}

// containsAny reports whether text contains one of the phrases.
func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// getIntSetting returns an integer setting from the environment or its
// default.
func getIntSetting(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
