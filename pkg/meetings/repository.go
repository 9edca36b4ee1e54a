package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/mejba13/meetverse-ai-sub000/pkg/errors"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
)

// Repository provides database operations for meetings and their children.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new meetings repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "meetings_repository")),
	}
}

// GetMeeting loads a meeting with its host details and participant roster.
// Returns ErrNotFound when the id does not resolve.
func (r *Repository) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	query := `
		SELECT m.id, m.title, m.status, m.host_id,
		       COALESCE(u.name, ''), COALESCE(u.email, ''),
		       m.actual_start, m.actual_end,
		       m.ai_summary, m.ai_summary_format,
		       m.processing_state,
		       m.created_at, m.updated_at
		FROM meetings m
		LEFT JOIN users u ON u.id = m.host_id
		WHERE m.id = $1
	`

	m := &Meeting{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Title,
		&m.Status,
		&m.HostID,
		&m.HostName,
		&m.HostEmail,
		&m.ActualStart,
		&m.ActualEnd,
		&m.AISummary,
		&m.AISummaryFormat,
		&m.ProcessingState,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("meeting %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}

	participants, err := r.listParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Participants = participants

	return m, nil
}

func (r *Repository) listParticipants(ctx context.Context, meetingID string) ([]Participant, error) {
	query := `
		SELECT p.user_id, COALESCE(u.name, ''), COALESCE(u.email, p.email, '')
		FROM meeting_participants p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.meeting_id = $1
		ORDER BY p.joined_at
	`

	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// UpdateMeetingStatus sets the meeting lifecycle status and, when non-nil,
// the actual end timestamp.
func (r *Repository) UpdateMeetingStatus(ctx context.Context, id string, status MeetingStatus, actualEnd *time.Time) error {
	query := `
		UPDATE meetings
		SET status = $2,
		    actual_end = COALESCE($3, actual_end),
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, status, actualEnd)
	if err != nil {
		return fmt.Errorf("failed to update meeting status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// SetProcessingState records the pipeline job state for a meeting.
func (r *Repository) SetProcessingState(ctx context.Context, id string, state ProcessingState) error {
	query := `
		UPDATE meetings
		SET processing_state = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, state)
	if err != nil {
		return fmt.Errorf("failed to set processing state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// ListTranscriptSegments returns all segments for a meeting in ascending
// start time order. Chronological order is required by downstream analysis.
func (r *Repository) ListTranscriptSegments(ctx context.Context, meetingID string) ([]TranscriptSegment, error) {
	query := `
		SELECT id, meeting_id, speaker, content, start_time, end_time,
		       confidence, language, created_at
		FROM transcript_segments
		WHERE meeting_id = $1
		ORDER BY start_time ASC
	`

	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript segments: %w", err)
	}
	defer rows.Close()

	var segments []TranscriptSegment
	for rows.Next() {
		var s TranscriptSegment
		if err := rows.Scan(
			&s.ID, &s.MeetingID, &s.Speaker, &s.Content,
			&s.StartTime, &s.EndTime, &s.Confidence, &s.Language, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcript segment: %w", err)
		}
		segments = append(segments, s)
	}

	return segments, rows.Err()
}

// CreateTranscriptSegments inserts segments in a single batch. Segment IDs
// are assigned here if unset.
func (r *Repository) CreateTranscriptSegments(ctx context.Context, meetingID string, segments []TranscriptSegment) error {
	if len(segments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range segments {
		s := &segments[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		batch.Queue(`
			INSERT INTO transcript_segments
				(id, meeting_id, speaker, content, start_time, end_time, confidence, language, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		`, s.ID, meetingID, s.Speaker, s.Content, s.StartTime, s.EndTime, s.Confidence, s.Language)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range segments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert transcript segment: %w", err)
		}
	}

	r.logger.Debug("Inserted transcript segments",
		logging.F("meeting_id", meetingID),
		logging.F("count", len(segments)),
	)

	return nil
}

// SaveAnalysis writes the summary and action items in one transaction.
// When replaceItems is true, existing action items are deleted first so the
// persisted set exactly matches the new extraction.
func (r *Repository) SaveAnalysis(ctx context.Context, meetingID string, summary *StoredSummary, items []ActionItem, replaceItems bool) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint: errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE meetings
		SET ai_summary = $2, ai_summary_format = $3, updated_at = NOW()
		WHERE id = $1
	`, meetingID, string(summaryJSON), SummaryFormatJSON)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %s: %w", meetingID, apperrors.ErrNotFound)
	}

	if replaceItems {
		if _, err := tx.Exec(ctx, "DELETE FROM action_items WHERE meeting_id = $1", meetingID); err != nil {
			return fmt.Errorf("failed to delete action items: %w", err)
		}
	}

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO action_items
				(id, meeting_id, title, description, assignee_id, due_date,
				 priority, status, ai_generated, ai_confidence, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		`,
			item.ID, meetingID, item.Title, item.Description,
			item.AssigneeID, item.DueDate, item.Priority, item.Status,
			item.AIGenerated, item.AIConfidence,
		); err != nil {
			return fmt.Errorf("failed to insert action item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}

	r.logger.Info("Persisted analysis results",
		logging.F("meeting_id", meetingID),
		logging.F("action_items", len(items)),
		logging.F("replaced", replaceItems),
	)

	return nil
}

// StatusSnapshot reads the persisted state the status tracker derives from.
// Returns ErrNotFound when the meeting does not exist.
func (r *Repository) StatusSnapshot(ctx context.Context, meetingID string) (*StatusSnapshot, error) {
	query := `
		SELECT m.status,
		       m.processing_state,
		       EXISTS (SELECT 1 FROM transcript_segments t WHERE t.meeting_id = m.id),
		       m.ai_summary IS NOT NULL,
		       (SELECT COUNT(*) FROM action_items a WHERE a.meeting_id = m.id)
		FROM meetings m
		WHERE m.id = $1
	`

	snap := &StatusSnapshot{}
	err := r.pool.QueryRow(ctx, query, meetingID).Scan(
		&snap.MeetingStatus,
		&snap.ProcessingState,
		&snap.HasTranscript,
		&snap.HasSummary,
		&snap.ActionItemCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status snapshot: %w", err)
	}

	return snap, nil
}
