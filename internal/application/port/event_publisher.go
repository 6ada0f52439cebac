package port

import (
	"context"
)

// Subjects событий трекера сессий
const (
	SubjectSessionReport = "sessions.report"
	SubjectSessionsIdle  = "sessions.idle"
	SubjectSessionsBusy  = "sessions.busy"
	SubjectDeployCheck   = "sessions.deploy_check"
)

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
