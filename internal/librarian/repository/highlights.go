package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/internal/librarian/videoid"
	"github.com/tubefocus/librarian-go/pkg/db"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

var ErrHighlightInvalid = errors.New("video_id and timestamp are required")

// HighlightRepository persists user highlights in libsql. Highlights
// live in their own collection with an independent lifecycle from
// chunks; the two are joined by normalized video id when cards are
// built.
type HighlightRepository struct {
	db     *db.DB
	logger zerolog.Logger
}

// NewHighlightRepository creates a highlight repository on an open
// connection.
func NewHighlightRepository(database *db.DB) *HighlightRepository {
	return &HighlightRepository{
		db:     database,
		logger: util.NewLogger(zerolog.ErrorLevel),
	}
}

// SaveHighlight upserts a highlight. The document id is derived from
// the video id and timestamp so re-saving the same moment overwrites.
func (r *HighlightRepository) SaveHighlight(ctx context.Context, highlight *models.Highlight) (string, error) {
	if highlight == nil || highlight.VideoID == "" {
		return "", ErrHighlightInvalid
	}

	id := highlight.ID
	if id == "" {
		id = fmt.Sprintf("%s_%d", highlight.VideoID, int64(highlight.Timestamp))
	}
	now := time.Now()
	createdAt := highlight.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `INSERT INTO highlights (id, video_id, video_title, timestamp, end_timestamp,
			range_label, note, transcript, video_url, goal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			video_title = excluded.video_title,
			end_timestamp = excluded.end_timestamp,
			range_label = excluded.range_label,
			note = excluded.note,
			transcript = excluded.transcript,
			video_url = excluded.video_url,
			goal = excluded.goal,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		id, highlight.VideoID, highlight.VideoTitle, highlight.Timestamp, highlight.EndTimestamp,
		highlight.RangeLabel, highlight.Note, highlight.Transcript, highlight.VideoURL, highlight.Goal,
		createdAt.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		r.logger.Error().Err(err).Str("highlight_id", id).Msg("Failed to save highlight")
		return "", err
	}

	return id, nil
}

// GetHighlightsForVideo returns a video's highlights ordered by
// timestamp. The given id may be any known spelling.
func (r *HighlightRepository) GetHighlightsForVideo(
	ctx context.Context,
	videoID string,
) ([]*models.Highlight, error) {
	canonical := videoid.Normalize(videoID)
	query := `SELECT id, video_id, video_title, timestamp, end_timestamp, range_label,
			note, transcript, video_url, goal, created_at, updated_at
		FROM highlights WHERE video_id = ? OR video_id = ? ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, canonical, videoid.StorageID(canonical))
	if err != nil {
		r.logger.Error().Err(err).Str("video_id", canonical).Msg("Failed to query highlights")
		return nil, err
	}
	defer rows.Close()

	return r.scanHighlights(rows)
}

// ListHighlights returns highlights, newest first.
func (r *HighlightRepository) ListHighlights(ctx context.Context, limit int) ([]*models.Highlight, error) {
	query := `SELECT id, video_id, video_title, timestamp, end_timestamp, range_label,
			note, transcript, video_url, goal, created_at, updated_at
		FROM highlights ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list highlights")
		return nil, err
	}
	defer rows.Close()

	return r.scanHighlights(rows)
}

// DeleteHighlight removes a highlight by document id.
func (r *HighlightRepository) DeleteHighlight(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("highlight_id", id).Msg("Failed to delete highlight")
	}
	return err
}

func (r *HighlightRepository) scanHighlights(rows *sql.Rows) ([]*models.Highlight, error) {
	var highlights []*models.Highlight
	for rows.Next() {
		var h models.Highlight
		var videoTitle, rangeLabel, note, transcript, videoURL, goal sql.NullString
		var endTimestamp sql.NullFloat64
		var createdAt, updatedAt string

		err := rows.Scan(&h.ID, &h.VideoID, &videoTitle, &h.Timestamp, &endTimestamp,
			&rangeLabel, &note, &transcript, &videoURL, &goal, &createdAt, &updatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to scan highlight")
			return nil, err
		}

		h.VideoTitle = videoTitle.String
		h.RangeLabel = rangeLabel.String
		h.Note = note.String
		h.Transcript = transcript.String
		h.VideoURL = videoURL.String
		h.Goal = goal.String
		if endTimestamp.Valid {
			h.EndTimestamp = &endTimestamp.Float64
		}
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			h.CreatedAt = parsed
		}
		if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			h.UpdatedAt = parsed
		}

		highlights = append(highlights, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return highlights, nil
}
