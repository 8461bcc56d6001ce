// Package models defines the data structures shared across the pipeline.
package models

import "time"

// Parent is a guardian account. Owned by the external account service;
// the pipeline only references parent IDs.
type Parent struct {
	ID   int64
	Name string
}

// Child is a child account resolved by the external session collaborator.
type Child struct {
	ID   int64
	Name string
}

// KeywordRecord is a parent-registered trigger phrase with a prerecorded
// response clip. Created and deleted by the parent-facing management
// surface; read-only from the pipeline's perspective.
type KeywordRecord struct {
	ID        int64
	ParentID  int64
	Keyword   string
	AudioPath string
}

// Recording is one ingested utterance. It is only persisted with a
// non-empty transcript; silent uploads never reach the store.
type Recording struct {
	ID          int64
	ChildID     int64
	Transcript  string
	StoragePath string
	RecordedAt  time.Time
}

// RecordingEvent is published after a recording has been persisted.
type RecordingEvent struct {
	EventType   string `json:"eventType"`
	RecordingID int64  `json:"recordingId"`
	ChildID     int64  `json:"childId"`
	KeywordID   int64  `json:"keywordId,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}
