// FILE: logpulse/src/internal/store/store.go
package store

import (
	"context"
	"fmt"
	"time"

	"logpulse/src/internal/config"
	"logpulse/src/internal/core"

	"github.com/google/uuid"
)

// Store is a best-effort write-through persistence target
type Store interface {
	Save(ctx context.Context, entry core.LogEntry) error
	Close() error
	Name() string
}

// Record is the persisted form of an entry
type Record struct {
	ID               string    `json:"id" bson:"_id"`
	Level            string    `json:"level" bson:"level"`
	Timestamp        string    `json:"timestamp" bson:"timestamp"`
	Message          string    `json:"message" bson:"message"`
	FormattedMessage string    `json:"formattedMessage" bson:"formatted_message"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`
}

// NewRecord assigns a time ordered identifier to entry
func NewRecord(entry core.LogEntry) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate record id: %w", err)
	}
	return Record{
		ID:               id.String(),
		Level:            entry.Level,
		Timestamp:        entry.Timestamp,
		Message:          entry.Message,
		FormattedMessage: entry.FormattedMessage,
		CreatedAt:        time.Now(),
	}, nil
}

// New opens the store selected by cfg.Type. An empty type disables persistence
// and returns a nil Store.
func New(ctx context.Context, cfg config.DBConfig) (Store, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "bolt":
		return NewBoltStore(cfg.Path)
	case "mongodb":
		return NewMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
