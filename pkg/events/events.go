// Package events defines event types for release lifecycle notifications.
package events

import (
	"time"
)

type EventType string

// Topic carries all release lifecycle events.
const Topic = "shipit.releases"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ReleaseCreatedEvent EventType = "release.created"
	PhaseSubmittedEvent EventType = "release.phase.submitted"
	ReleaseShippedEvent EventType = "release.shipped"
	ReleaseAbortedEvent EventType = "release.aborted"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Release   string    `json:"release"`
}

type ReleaseCreated struct {
	BaseEvent

	Product     string   `json:"product"`
	Version     string   `json:"version"`
	BuildNumber int      `json:"build_number"`
	Phases      []string `json:"phases"`
}

func (e ReleaseCreated) GetType() EventType {
	return ReleaseCreatedEvent
}

type PhaseSubmitted struct {
	BaseEvent

	Phase       string `json:"phase"`
	TaskID      string `json:"task_id"`
	CompletedBy string `json:"completed_by"`
}

func (e PhaseSubmitted) GetType() EventType {
	return PhaseSubmittedEvent
}

type ReleaseShipped struct {
	BaseEvent
}

func (e ReleaseShipped) GetType() EventType {
	return ReleaseShippedEvent
}

type ReleaseAborted struct {
	BaseEvent

	// CancelTaskIDs are the action tasks submitted to cancel the release's
	// in-flight phases.
	CancelTaskIDs []string `json:"cancel_task_ids,omitempty"`
}

func (e ReleaseAborted) GetType() EventType {
	return ReleaseAbortedEvent
}
