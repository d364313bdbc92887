// Package shared provides types used across all layers of addis-trans.
package shared

import "time"

// ============================================================================
// Event Types
// ============================================================================

// EventType represents the type of an event.
type EventType string

const (
	EventTrainingStarted   EventType = "training:started"
	EventTrainingCompleted EventType = "training:completed"
	EventTrainingFailed    EventType = "training:failed"
	EventEpisodeCompleted  EventType = "episode:completed"
	EventCheckpointSaved   EventType = "checkpoint:saved"
	EventDispatchFailed    EventType = "dispatch:failed"
)

// EventWildcard subscribes to every event type.
const EventWildcard EventType = "*"

// Event represents a generic event in the system.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// ============================================================================
// Log Types
// ============================================================================

// LogLevel represents a log severity.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ============================================================================
// Utility Functions
// ============================================================================

// Now returns the current time in milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}
