package storage

import (
	"context"
	"fmt"

	"github.com/auction-indexer/internal/models"
)

// EventTopicRepository reads the seeded event signature catalog
type EventTopicRepository struct {
	db *PostgresDB
}

// NewEventTopicRepository creates a new event topic repository
func NewEventTopicRepository(db *PostgresDB) *EventTopicRepository {
	return &EventTopicRepository{db: db}
}

// ListAll returns the full event topic catalog. The scanner fetches the set
// once per run rather than per-log.
func (r *EventTopicRepository) ListAll(ctx context.Context) ([]*models.EventTopic, error) {
	query := `
		SELECT id, event_name, topic0, COALESCE(signature, ''), COALESCE(params, '')
		FROM event_topics
		ORDER BY event_name
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list event topics: %w", err)
	}
	defer rows.Close()

	var topics []*models.EventTopic
	for rows.Next() {
		var t models.EventTopic
		if err := rows.Scan(&t.ID, &t.EventName, &t.Topic0, &t.Signature, &t.Params); err != nil {
			return nil, fmt.Errorf("failed to scan event topic: %w", err)
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}
