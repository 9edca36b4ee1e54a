package processing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mejba13/meetverse-ai-sub000/pkg/asr"
	"github.com/mejba13/meetverse-ai-sub000/pkg/meetings"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00"},
		{999, "00:00"},
		{1000, "00:01"},
		{65000, "01:05"},
		{125900, "02:05"},
		{3600000, "60:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTimestamp(tt.ms))
	}
}

func TestSecondsToMillisFloorTruncation(t *testing.T) {
	assert.Equal(t, int64(0), secondsToMillis(0))
	assert.Equal(t, int64(15500), secondsToMillis(15.5))
	assert.Equal(t, int64(1999), secondsToMillis(1.9999))
	assert.Equal(t, int64(30900), secondsToMillis(30.9))
}

func TestFormatSegments(t *testing.T) {
	segments := []meetings.TranscriptSegment{
		{Speaker: "Ada", Content: "Hello.", StartTime: 0},
		{Speaker: "Grace", Content: "Morning.", StartTime: 65000},
		{Speaker: "Ada", Content: "Let's start.", StartTime: 125900},
	}

	got := formatSegments(segments)
	want := "[00:00] Ada: Hello.\n[01:05] Grace: Morning.\n[02:05] Ada: Let's start."
	assert.Equal(t, want, got)

	// Formatting is a pure function of its input.
	assert.Equal(t, got, formatSegments(segments))

	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 3)
	for _, line := range lines {
		assert.Regexp(t, `^\[\d{2}:\d{2}\] `, line)
	}
}

func TestFormatASRSegmentsMatchesPersistedFormat(t *testing.T) {
	speaker := 1
	asrSegments := []asr.Segment{
		{Text: "Hello.", Start: 0, Speaker: &speaker},
		{Text: "Morning.", Start: 65.0, Speaker: &speaker},
	}
	persisted := []meetings.TranscriptSegment{
		{Speaker: "Speaker 1", Content: "Hello.", StartTime: 0},
		{Speaker: "Speaker 1", Content: "Morning.", StartTime: 65000},
	}

	assert.Equal(t, formatSegments(persisted), formatASRSegments(asrSegments))
}

func TestFormatSegmentsEmpty(t *testing.T) {
	assert.Equal(t, "", formatSegments(nil))
}
