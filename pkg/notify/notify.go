// Package notify delivers best-effort post-meeting notifications.
// Delivery failure must never affect the pipeline's reported outcome.
package notify

import (
	"context"

	"github.com/mejba13/meetverse-ai-sub000/pkg/logging"
)

// Notification describes a post-meeting summary notification.
type Notification struct {
	MeetingID    string
	MeetingTitle string
	Recipients   []string
	SummaryTitle string
	Overview     string
}

// Notifier sends a notification to meeting participants.
type Notifier interface {
	NotifyParticipants(ctx context.Context, n Notification) error
}

// LogNotifier records notifications in the service log without real
// delivery. It is the default sink until a delivery channel is wired up.
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With(logging.F("component", "notifier")),
	}
}

// NotifyParticipants logs the notification. Never returns an error.
func (n *LogNotifier) NotifyParticipants(_ context.Context, notification Notification) error {
	n.logger.Info("Meeting summary ready",
		logging.F("meeting_id", notification.MeetingID),
		logging.F("meeting_title", notification.MeetingTitle),
		logging.F("recipients", len(notification.Recipients)),
		logging.F("summary_title", notification.SummaryTitle),
	)
	return nil
}
