package events

import (
	"context"
	"testing"

	"child-speech-pipeline-service/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"nil brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writer != nil {
				t.Error("expected nil writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:   false,
		Brokers:   []string{"localhost:9092"},
		Topic:     "recordings.events",
		Principal: "svc-child-speech",
	})

	if p.topic != "recordings.events" {
		t.Errorf("expected topic 'recordings.events', got %s", p.topic)
	}
	if p.principal != "svc-child-speech" {
		t.Errorf("expected principal 'svc-child-speech', got %s", p.principal)
	}
}

func TestPublish_DisabledIsLogOnly(t *testing.T) {
	p := New(&Config{Enabled: false, Topic: "recordings.events"})

	err := p.Publish(context.Background(), "42", models.RecordingEvent{
		EventType:   "recording.persisted",
		RecordingID: 7,
		ChildID:     42,
		Timestamp:   1700000000000,
	})
	if err != nil {
		t.Fatalf("disabled publish should succeed, got %v", err)
	}
}

func TestPublish_UnmarshalableEvent(t *testing.T) {
	p := New(&Config{Enabled: false, Topic: "recordings.events"})

	if err := p.Publish(context.Background(), "k", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestClose_DisabledPublisher(t *testing.T) {
	p := New(nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close on disabled publisher: %v", err)
	}
}
