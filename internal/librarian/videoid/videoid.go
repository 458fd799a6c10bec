// Package videoid canonicalizes the many video id spellings used across
// the librarian: raw ids, storage-prefixed ids, highlight-suffixed ids
// and full YouTube URLs. Every cross-store join goes through Normalize.
package videoid

import (
	"regexp"
	"strings"
)

// Storage prefixes, longest first so saved_link_ wins over saved_.
var storagePrefixes = []string{"saved_link_", "saved_", "summary_"}

var (
	highlightSuffixRe = regexp.MustCompile(`_highlight_.*$`)

	// YouTube URL id patterns, checked in order.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`/v/([A-Za-z0-9_-]{11})`),
	}
)

// Normalize returns the canonical video id for any known id spelling.
// Exactly one storage prefix is removed (first match wins), a trailing
// _highlight_<suffix> segment is dropped, and YouTube URLs are reduced
// to their 11-character id. Normalize is idempotent.
func Normalize(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}

	for _, prefix := range storagePrefixes {
		if strings.HasPrefix(id, prefix) {
			id = strings.TrimPrefix(id, prefix)
			break
		}
	}

	id = highlightSuffixRe.ReplaceAllString(id, "")

	if strings.Contains(id, "youtube.com") || strings.Contains(id, "youtu.be") {
		for _, pattern := range urlPatterns {
			if m := pattern.FindStringSubmatch(id); m != nil {
				return m[1]
			}
		}
	}

	return id
}

// StorageID returns the chunk-store level id for a canonical video id.
func StorageID(canonical string) string {
	return "saved_" + canonical
}
