package processing

import (
	"context"

	apperrors "github.com/mejba13/meetverse-ai-sub000/pkg/errors"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
)

// GetProcessingStatus derives the coarse processing status of a meeting.
// It is a pure read: the explicit job state is consulted first, and meetings
// the pipeline never touched fall back to a heuristic over persisted data.
// An unknown meeting id reports pending with zero counts rather than an
// error.
func (p *Pipeline) GetProcessingStatus(ctx context.Context, meetingID string) (*StatusReport, error) {
	snap, err := p.store.StatusSnapshot(ctx, meetingID)
	if apperrors.IsNotFound(err) {
		return &StatusReport{Status: StatusPending}, nil
	}
	if err != nil {
		return nil, err
	}

	return &StatusReport{
		Status:          deriveStatus(snap),
		HasTranscript:   snap.HasTranscript,
		HasSummary:      snap.HasSummary,
		ActionItemCount: snap.ActionItemCount,
	}, nil
}

func deriveStatus(snap *meetings.StatusSnapshot) string {
	switch snap.ProcessingState {
	case meetings.ProcessingRunning:
		return StatusProcessing
	case meetings.ProcessingSucceeded:
		return StatusCompleted
	case meetings.ProcessingFailed:
		return StatusFailed
	}

	// No recorded job state: infer from what is persisted.
	switch {
	case snap.MeetingStatus == meetings.StatusEnded && (snap.HasTranscript || snap.HasSummary):
		return StatusCompleted
	case snap.MeetingStatus == meetings.StatusLive:
		return StatusProcessing
	case snap.MeetingStatus == meetings.StatusCancelled:
		return StatusFailed
	default:
		return StatusPending
	}
}
