package cache

import (
	"os"
	"strconv"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/util"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const cardTTLDefault = 300 * time.Second

// SourceCardCache memoizes assembled source cards per canonical video
// id. Entries expire after the TTL; writers of chunks or highlights must
// call Invalidate for the affected video so readers see their own writes
// before the TTL elapses.
type SourceCardCache struct {
	store  *gocache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSourceCardCache creates a card cache with the TTL taken from the
// environment or its 300 s default.
func NewSourceCardCache() *SourceCardCache {
	return NewSourceCardCacheWithTTL(getTTLFromEnv())
}

// NewSourceCardCacheWithTTL creates a card cache with an explicit TTL.
func NewSourceCardCacheWithTTL(ttl time.Duration) *SourceCardCache {
	return &SourceCardCache{
		store:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
		logger: util.NewLogger(zerolog.ErrorLevel),
	}
}

// Get returns the cached card for a video id or nil when absent or
// expired.
func (c *SourceCardCache) Get(videoID string) *models.SourceCard {
	cached, found := c.store.Get(videoid.Normalize(videoID))
	if !found {
		return nil
	}
	card, _ := cached.(*models.SourceCard)
	return card
}

// Set stores a card under the canonical video id.
func (c *SourceCardCache) Set(videoID string, card *models.SourceCard) {
	if card == nil {
		return
	}
	c.store.Set(videoid.Normalize(videoID), card, c.ttl)
}

// Invalidate drops the cached card for a video id.
func (c *SourceCardCache) Invalidate(videoID string) {
	canonical := videoid.Normalize(videoID)
	c.store.Delete(canonical)
	c.logger.Debug().Str("video_id", canonical).Msg("source card invalidated")
}

// getTTLFromEnv returns the card TTL from environment or default.
func getTTLFromEnv() time.Duration {
	value := os.Getenv("LIBRARIAN_CARD_TTL_SECONDS")
	if value == "" {
		return cardTTLDefault
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return cardTTLDefault
}
