// Package asr provides a client for the hosted speech-to-text provider
// (Deepgram pre-recorded API).
package asr

// TranscriptionConfig controls a single transcription request.
type TranscriptionConfig struct {
	Language    string
	Model       string
	Punctuate   bool
	Diarize     bool
	SmartFormat bool
}

// Word is a single recognized word with timing.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
}

// Segment is one diarized utterance. Offsets are in seconds (float) as
// returned by the provider; callers convert to milliseconds for storage.
type Segment struct {
	Text       string  `json:"transcript"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    *int    `json:"speaker,omitempty"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Result is the full transcription output for one audio source.
type Result struct {
	Segments []Segment
	FullText string
	Duration float64 // seconds
	Speakers []int
	Language string // normalized BCP 47 base tag the audio was transcribed as
}
