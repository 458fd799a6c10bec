package services

import (
	"sort"
	"strings"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

const (
	focusPointsPerToken   = 3
	focusThresholdDefault = 6
	focusMarginDefault    = 3
)

// FocusInferencer guesses which saved video a query is about from token
// overlap with saved titles. It only commits when one candidate clearly
// wins; anything ambiguous returns no focus and the caller stays in
// broad mode.
type FocusInferencer struct {
	threshold int
	margin    int
	logger    zerolog.Logger
}

// NewFocusInferencer creates an inferencer with the score threshold and
// margin taken from the environment or their defaults.
func NewFocusInferencer() *FocusInferencer {
	return &FocusInferencer{
		threshold: getIntSetting("LIBRARIAN_FOCUS_THRESHOLD", focusThresholdDefault),
		margin:    getIntSetting("LIBRARIAN_FOCUS_MARGIN", focusMarginDefault),
		logger:    util.NewLogger(zerolog.ErrorLevel),
	}
}

// InferFocus returns the video id the query is most plausibly about, or
// "" when no candidate wins decisively. Inventory-style queries never
// infer a focus; they are answered by the inventory responders instead.
func (f *FocusInferencer) InferFocus(query string, videos []*models.SavedVideo) string {
	if len(videos) == 0 || isInventoryQuery(query) {
		return ""
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return ""
	}

	candidates := make([]focusCandidate, 0, len(videos))
	for _, video := range videos {
		overlap := make(map[string]bool)
		for token := range titleTokens(video.Title) {
			if queryTokens[token] {
				overlap[token] = true
			}
		}
		candidates = append(candidates, focusCandidate{
			videoID: video.VideoID,
			overlap: overlap,
			score:   len(overlap) * focusPointsPerToken,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	best := candidates[0]
	secondScore := 0
	if len(candidates) > 1 {
		secondScore = candidates[1].score
	}
	if best.score >= f.threshold && best.score-secondScore >= f.margin {
		f.logger.Debug().
			Str("video_id", best.videoID).
			Int("score", best.score).
			Int("runner_up", secondScore).
			Msg("focus inferred from title overlap")
		return best.videoID
	}

	// Narrow fallback: "the <X> video" style queries where exactly one
	// title shares exactly one token with the query, and that token
	// appears in no other saved title.
	if strings.Contains(strings.ToLower(query), "video") {
		if id := f.singleUniqueTokenMatch(candidates, videos); id != "" {
			return id
		}
	}

	return ""
}

type focusCandidate struct {
	videoID string
	overlap map[string]bool
	score   int
}

func (f *FocusInferencer) singleUniqueTokenMatch(
	candidates []focusCandidate,
	videos []*models.SavedVideo,
) string {
	titleTokenCounts := make(map[string]int)
	for _, video := range videos {
		for token := range titleTokens(video.Title) {
			titleTokenCounts[token]++
		}
	}

	matchID := ""
	for _, c := range candidates {
		if len(c.overlap) != 1 {
			continue
		}
		var token string
		for t := range c.overlap {
			token = t
		}
		if titleTokenCounts[token] != 1 {
			continue
		}
		if matchID != "" {
			return ""
		}
		matchID = c.videoID
	}
	if matchID != "" {
		f.logger.Debug().Str("video_id", matchID).Msg("focus inferred from unique token fallback")
	}
	return matchID
}
