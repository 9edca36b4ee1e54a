package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
	"github.com/mejba13/meetverse-ai-sub000/pkg/processing"
)

// ProcessingHandler serves the pipeline operations.
type ProcessingHandler struct {
	pipeline *processing.Pipeline
	logger   logging.Logger
}

// NewProcessingHandler creates a handler around the pipeline.
func NewProcessingHandler(pipeline *processing.Pipeline, logger logging.Logger) *ProcessingHandler {
	return &ProcessingHandler{
		pipeline: pipeline,
		logger:   logger.With(logging.F("component", "processing_handler")),
	}
}

// processRequest is the optional JSON body for process and queue requests.
// An empty body runs the full pipeline with defaults.
type processRequest struct {
	SkipTranscription  bool   `json:"skipTranscription"`
	SkipAnalysis       bool   `json:"skipAnalysis"`
	AudioURL           string `json:"audioUrl"`
	ExistingTranscript string `json:"existingTranscript"`
	NotifyParticipants bool   `json:"notifyParticipants"`
}

func (r *processRequest) options() processing.Options {
	return processing.Options{
		SkipTranscription:  r.SkipTranscription,
		SkipAnalysis:       r.SkipAnalysis,
		AudioURL:           r.AudioURL,
		ExistingTranscript: r.ExistingTranscript,
		NotifyParticipants: r.NotifyParticipants,
	}
}

// ProcessMeeting runs the pipeline synchronously and returns the full result.
func (h *ProcessingHandler) ProcessMeeting(w http.ResponseWriter, req *http.Request) {
	meetingID := req.PathValue("id")

	var body processRequest
	if err := decodeOptionalJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.pipeline.ProcessMeeting(req.Context(), meetingID, body.options())
	writeJSON(w, resultStatus(result), result)
}

// QueueMeetingForProcessing enqueues the meeting and returns an acknowledgement.
func (h *ProcessingHandler) QueueMeetingForProcessing(w http.ResponseWriter, req *http.Request) {
	meetingID := req.PathValue("id")

	var body processRequest
	if err := decodeOptionalJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ack := h.pipeline.QueueMeetingForProcessing(req.Context(), meetingID, body.options())
	status := http.StatusAccepted
	if !ack.Queued {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ack)
}

// ReprocessMeeting reruns analysis over the stored transcript.
func (h *ProcessingHandler) ReprocessMeeting(w http.ResponseWriter, req *http.Request) {
	meetingID := req.PathValue("id")

	result := h.pipeline.ReprocessMeeting(req.Context(), meetingID)
	writeJSON(w, resultStatus(result), result)
}

// GetProcessingStatus reports the derived processing status of a meeting.
func (h *ProcessingHandler) GetProcessingStatus(w http.ResponseWriter, req *http.Request) {
	meetingID := req.PathValue("id")

	report, err := h.pipeline.GetProcessingStatus(req.Context(), meetingID)
	if err != nil {
		h.logger.Error("Status lookup failed", logging.F("meeting_id", meetingID), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// resultStatus maps a pipeline result onto an HTTP status code. The result
// body is returned either way so callers see the collected errors.
func resultStatus(result *processing.Result) int {
	if result.Success {
		return http.StatusOK
	}
	for _, msg := range result.Errors {
		if msg == "Meeting not found" {
			return http.StatusNotFound
		}
		if strings.Contains(msg, "No transcript available") {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// decodeOptionalJSON decodes a JSON body into dst, treating an empty body as
// the zero value.
func decodeOptionalJSON(req *http.Request, dst any) error {
	err := json.NewDecoder(req.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
