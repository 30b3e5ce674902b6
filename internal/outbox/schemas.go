package outbox

const recordUpsertedSchema = `{
  "type": "object",
  "title": "RecordUpserted",
  "properties": {
    "record_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_date": {"type": "string", "format": "date"},
    "external_id": {"type": "string"},
    "source": {"type": "string"},
    "distance_km": {"type": "number"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "user_id", "activity_date", "occurred_at"],
  "additionalProperties": false
}`

const recordUpdatedSchema = `{
  "type": "object",
  "title": "RecordUpdated",
  "properties": {
    "record_id": {"type": "string"},
    "user_id": {"type": "string"},
    "fields": {"type": "array", "items": {"type": "string"}},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "user_id", "fields", "occurred_at"],
  "additionalProperties": false
}`
