// Package events declares the payloads published for applied store
// mutations. Downstream consumers (stats, notifications) subscribe to
// these; the reconciliation engine itself never reads them back.
package events

import "time"

// RecordUpserted is emitted once per record landed by a batched upsert.
type RecordUpserted struct {
	RecordID     string    `json:"record_id"`
	UserID       string    `json:"user_id"`
	ActivityDate string    `json:"activity_date"`
	ExternalID   string    `json:"external_id,omitempty"`
	Source       string    `json:"source,omitempty"`
	DistanceKM   *float64  `json:"distance_km,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RecordUpdated is emitted for each replace or combine update.
type RecordUpdated struct {
	RecordID   string    `json:"record_id"`
	UserID     string    `json:"user_id"`
	Fields     []string  `json:"fields"`
	OccurredAt time.Time `json:"occurred_at"`
}
