package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event announces a completed pipeline run.
type Event struct {
	ID        string    `json:"id"`
	Flow      string    `json:"flow"` // "audio" or "text"
	Bucket    string    `json:"bucket"`
	Filename  string    `json:"filename"`
	Report    string    `json:"report"`
	Label     string    `json:"label"`
	Score     float64   `json:"score"`
	Magnitude float64   `json:"magnitude"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent stamps an event with a fresh ID and time.
func NewEvent(flow, bucket, filename, report string) Event {
	return Event{
		ID:        uuid.NewString(),
		Flow:      flow,
		Bucket:    bucket,
		Filename:  filename,
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (e Event) payload() ([]byte, error) {
	return json.Marshal(e)
}
