package videoid

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		description string
	}{
		{
			name:        "bare id",
			input:       "abc123abcde",
			expected:    "abc123abcde",
			description: "should return bare ids unchanged",
		},
		{
			name:        "saved prefix",
			input:       "saved_abc123",
			expected:    "abc123",
			description: "should strip the saved_ storage prefix",
		},
		{
			name:        "saved link prefix",
			input:       "saved_link_abc123",
			expected:    "abc123",
			description: "should strip saved_link_ before the shorter saved_",
		},
		{
			name:        "summary prefix with date suffix",
			input:       "summary_abc123_20240101",
			expected:    "abc123_20240101",
			description: "should strip only the summary_ prefix",
		},
		{
			name:        "highlight suffix",
			input:       "abc123_highlight_17",
			expected:    "abc123",
			description: "should drop a trailing highlight segment",
		},
		{
			name:        "prefix and highlight suffix",
			input:       "saved_abc123_highlight_17",
			expected:    "abc123",
			description: "should strip both prefix and highlight suffix",
		},
		{
			name:        "watch url",
			input:       "https://www.youtube.com/watch?v=abc123abcde",
			expected:    "abc123abcde",
			description: "should extract the id from a watch URL",
		},
		{
			name:        "watch url with extra params",
			input:       "https://www.youtube.com/watch?t=42&v=abc123abcde&list=PL1",
			expected:    "abc123abcde",
			description: "should extract v= regardless of parameter order",
		},
		{
			name:        "short url",
			input:       "https://youtu.be/abc123abcde",
			expected:    "abc123abcde",
			description: "should extract the id from youtu.be URLs",
		},
		{
			name:        "embed url",
			input:       "https://www.youtube.com/embed/abc123abcde",
			expected:    "abc123abcde",
			description: "should extract the id from embed URLs",
		},
		{
			name:        "shorts url",
			input:       "https://www.youtube.com/shorts/abc123abcde",
			expected:    "abc123abcde",
			description: "should extract the id from shorts URLs",
		},
		{
			name:        "empty string",
			input:       "",
			expected:    "",
			description: "should return empty for empty input",
		},
		{
			name:        "whitespace",
			input:       "  saved_abc123  ",
			expected:    "abc123",
			description: "should trim surrounding whitespace",
		},
		{
			name:        "only one prefix removed",
			input:       "saved_saved_abc123",
			expected:    "saved_abc123",
			description: "should remove exactly one prefix per pass",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q (%s)", tt.input, got, tt.expected, tt.description)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"saved_abc123",
		"saved_link_abc123",
		"summary_abc123_20240101",
		"https://youtu.be/abc123abcde",
		"https://www.youtube.com/watch?v=abc123abcde",
		"abc123abcde",
		"saved_abc123_highlight_5",
		"",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestStorageID(t *testing.T) {
	if got := StorageID("abc123"); got != "saved_abc123" {
		t.Errorf("StorageID(abc123) = %q, want saved_abc123", got)
	}
	if Normalize(StorageID("abc123")) != "abc123" {
		t.Error("Normalize should invert StorageID")
	}
}
