// Package repository implements the chunk and highlight stores on
// Turso/libsql, plus in-memory twins for local mode and tests.
// Embeddings are stored as JSON text; nearest-neighbor search is cosine
// ranking over the embedded candidate rows.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/tubefocus/librarian-go/internal/librarian/interfaces"
	"github.com/tubefocus/librarian-go/internal/librarian/models"
	"github.com/tubefocus/librarian-go/pkg/db"
	"github.com/tubefocus/librarian-go/pkg/util"

	"github.com/rs/zerolog"
)

// Batch writes are split to respect typical transactional write-size
// limits of a document store.
const insertBatchSize = 400

const chunkColumns = `id, video_id, original_video_id, kind, title, goal, relevance_score,
	tier, chunk_index, total_chunks, start_time, end_time, body, embedding,
	parent_doc_id, description, video_url, save_mode, manual, indexed_at`

// ChunkRepository persists chunk records in libsql.
type ChunkRepository struct {
	db     *db.DB
	logger zerolog.Logger
}

// NewChunkRepository creates a chunk repository on an open connection.
func NewChunkRepository(database *db.DB) *ChunkRepository {
	return &ChunkRepository{
		db:     database,
		logger: util.NewLogger(zerolog.ErrorLevel),
	}
}

// InsertChunks persists chunks in sub-batches of at most 400 rows. A
// failed sub-batch is logged and skipped; later sub-batches continue.
// Returns the number of rows stored.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []*models.Chunk) (int, error) {
	stored := 0
	var lastErr error

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := r.insertBatch(ctx, chunks[start:end]); err != nil {
			r.logger.Error().Err(err).
				Int("batch_start", start).
				Int("batch_size", end-start).
				Msg("Failed to insert chunk batch")
			lastErr = err
			continue
		}
		stored += end - start
	}

	if stored == 0 && lastErr != nil {
		return 0, lastErr
	}
	return stored, nil
}

func (r *ChunkRepository) insertBatch(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Error().Err(err).Msg("Failed to rollback transaction")
		}
	}(tx)

	query := `INSERT INTO chunks (` + chunkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, chunk := range chunks {
		var embeddingStr *string
		if chunk.Embedding != nil {
			encoded, err := json.Marshal(chunk.Embedding)
			if err != nil {
				r.logger.Error().Err(err).Str("chunk_id", chunk.ID).Msg("Failed to encode embedding")
				return err
			}
			s := string(encoded)
			embeddingStr = &s
		}

		_, err = tx.ExecContext(ctx, query,
			chunk.ID, chunk.VideoID, chunk.OriginalVideoID, string(chunk.Kind),
			chunk.Title, chunk.Goal, chunk.RelevanceScore,
			chunk.Tier, chunk.ChunkIndex, chunk.TotalChunks,
			chunk.StartTime, chunk.EndTime, chunk.Text, embeddingStr,
			chunk.ParentDocID, chunk.Description, chunk.VideoURL, chunk.SaveMode,
			chunk.Manual, chunk.IndexedAt.Format(time.RFC3339))
		if err != nil {
			r.logger.Error().Err(err).Str("chunk_id", chunk.ID).Msg("Failed to insert chunk")
			return err
		}
	}

	return tx.Commit()
}

// GetChunksByOriginalVideoID returns every chunk for a canonical video
// id, ordered by tier then chunk index.
func (r *ChunkRepository) GetChunksByOriginalVideoID(
	ctx context.Context,
	originalVideoID string,
) ([]*models.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks
		WHERE original_video_id = ? ORDER BY tier, chunk_index`

	rows, err := r.db.QueryContext(ctx, query, originalVideoID)
	if err != nil {
		r.logger.Error().Err(err).Str("video_id", originalVideoID).Msg("Failed to query chunks")
		return nil, err
	}
	defer rows.Close()

	return r.scanChunks(rows)
}

// GetChunkByID returns one chunk record, or nil when absent.
func (r *ChunkRepository) GetChunkByID(ctx context.Context, id string) (*models.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ?`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks, err := r.scanChunks(rows)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return chunks[0], nil
}

// ListByKind returns chunks of one kind, newest first.
func (r *ChunkRepository) ListByKind(
	ctx context.Context,
	kind models.ChunkKind,
	limit int,
) ([]*models.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks
		WHERE kind = ? ORDER BY indexed_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(kind), limit)
	if err != nil {
		r.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to list chunks by kind")
		return nil, err
	}
	defer rows.Close()

	return r.scanChunks(rows)
}

// ListChunks returns up to limit chunk records, newest first.
func (r *ChunkRepository) ListChunks(ctx context.Context, limit int) ([]*models.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks ORDER BY indexed_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list chunks")
		return nil, err
	}
	defer rows.Close()

	return r.scanChunks(rows)
}

// VectorSearch ranks embedded chunks by cosine distance to the query
// vector and returns the nearest limit chunks matching the filter.
func (r *ChunkRepository) VectorSearch(
	ctx context.Context,
	embedding []float32,
	limit int,
	filter interfaces.ChunkFilter,
) ([]*interfaces.ScoredChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE embedding IS NOT NULL`
	args := []interface{}{}

	if filter.VideoID != "" {
		query += ` AND video_id = ?`
		args = append(args, filter.VideoID)
	}
	if filter.OriginalVideoID != "" {
		query += ` AND original_video_id = ?`
		args = append(args, filter.OriginalVideoID)
	}
	if filter.Tier != 0 {
		query += ` AND tier = ?`
		args = append(args, filter.Tier)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to query candidates for vector search")
		return nil, err
	}
	defer rows.Close()

	candidates, err := r.scanChunks(rows)
	if err != nil {
		return nil, err
	}

	scored := make([]*interfaces.ScoredChunk, 0, len(candidates))
	for _, chunk := range candidates {
		scored = append(scored, &interfaces.ScoredChunk{
			Chunk:    chunk,
			Distance: cosineDistance(embedding, chunk.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// DeleteChunksByVideoID removes every chunk for a canonical video id.
func (r *ChunkRepository) DeleteChunksByVideoID(ctx context.Context, originalVideoID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE original_video_id = ?`, originalVideoID)
	if err != nil {
		r.logger.Error().Err(err).Str("video_id", originalVideoID).Msg("Failed to delete chunks")
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Count returns the total number of chunk records.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to count chunks")
		return 0, err
	}
	return count, nil
}

func (r *ChunkRepository) scanChunks(rows *sql.Rows) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		var kind string
		var title, goal, body, embeddingStr, parentDocID sql.NullString
		var description, videoURL, saveMode sql.NullString
		var relevance sql.NullFloat64
		var startTime, endTime sql.NullFloat64
		var manual sql.NullBool
		var indexedAt string

		err := rows.Scan(&chunk.ID, &chunk.VideoID, &chunk.OriginalVideoID, &kind,
			&title, &goal, &relevance,
			&chunk.Tier, &chunk.ChunkIndex, &chunk.TotalChunks,
			&startTime, &endTime, &body, &embeddingStr,
			&parentDocID, &description, &videoURL, &saveMode,
			&manual, &indexedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to scan chunk")
			return nil, err
		}

		chunk.Kind = models.ChunkKind(kind)
		chunk.Title = title.String
		chunk.Goal = goal.String
		chunk.RelevanceScore = relevance.Float64
		chunk.Text = body.String
		chunk.Description = description.String
		chunk.VideoURL = videoURL.String
		chunk.SaveMode = saveMode.String
		chunk.Manual = manual.Bool
		if startTime.Valid {
			chunk.StartTime = &startTime.Float64
		}
		if endTime.Valid {
			chunk.EndTime = &endTime.Float64
		}
		if parentDocID.Valid {
			chunk.ParentDocID = &parentDocID.String
		}
		if embeddingStr.Valid && embeddingStr.String != "" {
			if err := json.Unmarshal([]byte(embeddingStr.String), &chunk.Embedding); err != nil {
				r.logger.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("Failed to decode embedding")
			}
		}
		if parsed, err := time.Parse(time.RFC3339, indexedAt); err == nil {
			chunk.IndexedAt = parsed
		}

		chunks = append(chunks, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}
