package processing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mejba13/meetverse-ai-sub000/pkg/asr"
	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
)

// transcriptResolution is the outcome of the transcript resolver stage.
type transcriptResolution struct {
	Text            string
	SegmentsCreated int
	Errors          []string
	Failed          bool
}

// resolveTranscript obtains the meeting transcript, in order of preference:
// caller-supplied text, persisted segments, a fresh ASR call against the
// audio source. A provider or store failure marks the run failed but does
// not abort it; the text stays empty, which disables the analysis stage.
func (p *Pipeline) resolveTranscript(ctx context.Context, meetingID string, opts Options) transcriptResolution {
	var res transcriptResolution

	if opts.ExistingTranscript != "" {
		res.Text = opts.ExistingTranscript
		return res
	}

	segments, err := p.store.ListTranscriptSegments(ctx, meetingID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Transcription failed: %v", err))
		res.Failed = true
		return res
	}
	if len(segments) > 0 {
		res.Text = formatSegments(segments)
		return res
	}

	if opts.SkipTranscription {
		res.Errors = append(res.Errors, "transcription skipped: disabled by options")
		return res
	}
	if opts.AudioURL == "" {
		res.Errors = append(res.Errors, "transcription skipped: no audio source")
		return res
	}
	if p.transcriber == nil {
		res.Errors = append(res.Errors, "transcription skipped: provider not configured")
		return res
	}

	result, err := p.transcriber.Transcribe(ctx, opts.AudioURL, asr.TranscriptionConfig{
		Punctuate:   true,
		Diarize:     true,
		SmartFormat: true,
	})
	if err != nil {
		// A provider failure is a real failure, unlike the skip notices
		// above; the run continues but reports it.
		res.Errors = append(res.Errors, fmt.Sprintf("Transcription failed: %v", err))
		res.Failed = true
		return res
	}

	lang := result.Language
	if lang == "" {
		lang = "en"
	}

	persisted := make([]meetings.TranscriptSegment, 0, len(result.Segments))
	for _, s := range result.Segments {
		persisted = append(persisted, meetings.TranscriptSegment{
			MeetingID:  meetingID,
			Speaker:    asrSpeakerLabel(s),
			Content:    s.Text,
			StartTime:  secondsToMillis(s.Start),
			EndTime:    secondsToMillis(s.End),
			Confidence: s.Confidence,
			Language:   lang,
		})
	}

	if err := p.store.CreateTranscriptSegments(ctx, meetingID, persisted); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to persist transcript segments: %v", err))
		res.Failed = true
		return res
	}
	res.SegmentsCreated = len(persisted)

	// Format from the provider's results directly rather than re-reading
	// the rows we just wrote.
	res.Text = formatASRSegments(result.Segments)

	p.logger.Info("Transcribed audio source",
		logging.F("meeting_id", meetingID),
		logging.F("segments", len(persisted)),
	)

	return res
}

// formatSegments renders persisted segments as "[mm:ss] speaker: text"
// lines. Segments are expected in ascending start time order; formatting is
// a pure function of its input.
func formatSegments(segments []meetings.TranscriptSegment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", formatTimestamp(s.StartTime), s.Speaker, s.Content))
	}
	return strings.Join(lines, "\n")
}

// formatASRSegments renders provider segments the same way as persisted ones.
func formatASRSegments(segments []asr.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", formatTimestamp(secondsToMillis(s.Start)), asrSpeakerLabel(s), s.Text))
	}
	return strings.Join(lines, "\n")
}

// formatTimestamp renders a millisecond offset as mm:ss, floor divided.
func formatTimestamp(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}

// secondsToMillis converts provider second offsets to integer milliseconds
// via floor truncation.
func secondsToMillis(seconds float64) int64 {
	return int64(math.Floor(seconds * 1000))
}

func asrSpeakerLabel(s asr.Segment) string {
	if s.Speaker != nil {
		return fmt.Sprintf("Speaker %d", *s.Speaker)
	}
	return "Speaker"
}
