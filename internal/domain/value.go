package domain

import "time"

// FieldType enumerates the coercion target for a canonical field.
type FieldType string

const (
	TypeBool      FieldType = "bool"
	TypeInteger   FieldType = "integer"
	TypeFloat     FieldType = "float"
	TypePace      FieldType = "pace"
	TypeTimeOfDay FieldType = "time_of_day"
	TypeTimestamp FieldType = "timestamp"
	TypeText      FieldType = "text"
)

// Value is a coerced cell value carried in a record's secondary field bag.
// A missing map entry represents null; a Value never holds NaN or an
// infinite float.
type Value struct {
	Type  FieldType `json:"type"`
	Bool  bool      `json:"bool,omitempty"`
	Int   int64     `json:"int,omitempty"`
	Float float64   `json:"float,omitempty"`
	Text  string    `json:"text,omitempty"`
	Time  time.Time `json:"time,omitzero"`
}

// BoolValue builds a boolean Value.
func BoolValue(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// IntValue builds an integer Value.
func IntValue(i int64) Value { return Value{Type: TypeInteger, Int: i} }

// FloatValue builds a float Value.
func FloatValue(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// TextValue builds a text Value.
func TextValue(s string) Value { return Value{Type: TypeText, Text: s} }

// TimeValue builds a timestamp Value.
func TimeValue(t time.Time) Value { return Value{Type: TypeTimestamp, Time: t} }
