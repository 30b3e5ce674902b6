package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// eventMetadata describes how to route an outbox event.
type eventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]eventMetadata{
	"import.record_upserted": {
		Topic:         "reconcile_events",
		SchemaSubject: "reconcile_events-value",
	},
	"import.record_updated": {
		Topic:         "reconcile_events",
		SchemaSubject: "reconcile_events-value",
	},
}

// insertOutbox records one event row in the caller's transaction. The
// partition key is the user id so one athlete's mutations stay ordered.
func insertOutbox(ctx context.Context, tx pgx.Tx, userID, aggregateID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	// Unlike create-once aggregates, a record can be upserted repeatedly
	// across imports, so the dedupe key carries a timestamp component.
	dedupeKey := fmt.Sprintf("%s:%s:%d", aggregateID, eventType, time.Now().UnixNano())

	const stmt = `INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		userID,
		"activity_record",
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		userID,
		body,
		dedupeKey,
	)
	return err
}
