// Package schema holds the canonical field table, the header alias table
// and the cell coercion rules used to turn vendor exports into canonical
// activity records.
package schema

import (
	"example.com/reconcile/internal/domain"
)

// Field describes one canonical column of the import schema.
type Field struct {
	Name string
	Type domain.FieldType

	// Required fields reject the whole row when they cannot be coerced.
	// Only the activity date is required: without it a record can neither
	// be matched nor filed.
	Required bool

	// DistanceLike fields are subject to the vendor profile's distance
	// unit handling (meters vs kilometers).
	DistanceLike bool

	// DurationLike fields read colon-less cells per the vendor profile's
	// duration unit. Paces are excluded: a plain-number pace is always
	// decimal minutes per kilometer.
	DurationLike bool

	// Primary fields map onto named Record attributes; everything else
	// lands in the record's Extra bag.
	Primary bool
}

// Schema is the resolved field table plus the alias lookup built from the
// base table and an optional vendor profile.
type Schema struct {
	fields  []Field
	byName  map[string]Field
	aliases map[string]string // normalized header -> canonical field name
}

// Fields returns the canonical fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// FieldByName looks up a canonical field definition.
func (s *Schema) FieldByName(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Resolve maps a raw header cell to its canonical field. Unknown headers
// resolve to false and are dropped by the normalizer, not errored: vendor
// exports routinely carry extra columns.
func (s *Schema) Resolve(rawHeader string) (Field, bool) {
	name, ok := s.aliases[NormalizeHeader(rawHeader)]
	if !ok {
		return Field{}, false
	}
	return s.byName[name], true
}

var baseFields = []Field{
	{Name: domain.FieldActivityDate, Type: domain.TypeTimestamp, Required: true, Primary: true},
	{Name: domain.FieldExternalID, Type: domain.TypeText, Primary: true},
	{Name: domain.FieldKind, Type: domain.TypeText, Primary: true},
	{Name: domain.FieldTitle, Type: domain.TypeText, Primary: true},
	{Name: domain.FieldDistanceKM, Type: domain.TypeFloat, DistanceLike: true, Primary: true},
	{Name: domain.FieldElevationGainM, Type: domain.TypeFloat, Primary: true},
	{Name: domain.FieldElevationLossM, Type: domain.TypeFloat, Primary: true},
	{Name: domain.FieldDurationMin, Type: domain.TypePace, DurationLike: true, Primary: true},
	{Name: domain.FieldPaceMinPerKM, Type: domain.TypePace, Primary: true},
	{Name: domain.FieldHeartRateAvg, Type: domain.TypeInteger, Primary: true},
	{Name: domain.FieldHeartRateMax, Type: domain.TypeInteger, Primary: true},

	{Name: "calories", Type: domain.TypeInteger},
	{Name: "cadence_avg", Type: domain.TypeInteger},
	{Name: "power_avg_w", Type: domain.TypeInteger},
	{Name: "steps", Type: domain.TypeInteger},
	{Name: "temperature_c", Type: domain.TypeFloat},
	{Name: "humidity_pct", Type: domain.TypeInteger},
	{Name: "grade_avg_pct", Type: domain.TypeFloat},
	{Name: "weather", Type: domain.TypeText},
	{Name: "gear", Type: domain.TypeText},
	{Name: "is_race", Type: domain.TypeBool},
}

// baseAliases maps known header spellings, across vendors and languages,
// to canonical field names. Keys are already in NormalizeHeader form.
var baseAliases = map[string]string{
	// activity date
	"date":             domain.FieldActivityDate,
	"activity_date":    domain.FieldActivityDate,
	"start_date":       domain.FieldActivityDate,
	"start_date_local": domain.FieldActivityDate,
	"start_time":       domain.FieldActivityDate,
	"datum":            domain.FieldActivityDate,
	"fecha":            domain.FieldActivityDate,

	// external id
	"activity_id": domain.FieldExternalID,
	"external_id": domain.FieldExternalID,
	"id":          domain.FieldExternalID,

	// activity kind
	"activity_type":     domain.FieldKind,
	"type":              domain.FieldKind,
	"sport":             domain.FieldKind,
	"type_d_activite":   domain.FieldKind,
	"aktivitatstyp":     domain.FieldKind,
	"tipo_de_actividad": domain.FieldKind,

	// title
	"activity_title": domain.FieldTitle,
	"activity_name":  domain.FieldTitle,
	"title":          domain.FieldTitle,
	"name":           domain.FieldTitle,
	"titre":          domain.FieldTitle,
	"nom":            domain.FieldTitle,
	"titel":          domain.FieldTitle,
	"nombre":         domain.FieldTitle,

	// distance
	"distance":    domain.FieldDistanceKM,
	"distance_km": domain.FieldDistanceKM,
	"distanz":     domain.FieldDistanceKM,
	"distancia":   domain.FieldDistanceKM,

	// elevation gain
	"elevation_gain":    domain.FieldElevationGainM,
	"elev_gain":         domain.FieldElevationGainM,
	"total_ascent":      domain.FieldElevationGainM,
	"d_plus_m":          domain.FieldElevationGainM,
	"d_plus":            domain.FieldElevationGainM,
	"denivele_positif":  domain.FieldElevationGainM,
	"anstieg_gesamt":    domain.FieldElevationGainM,
	"desnivel_positivo": domain.FieldElevationGainM,

	// elevation loss
	"elevation_loss":    domain.FieldElevationLossM,
	"elev_loss":         domain.FieldElevationLossM,
	"total_descent":     domain.FieldElevationLossM,
	"d_minus_m":         domain.FieldElevationLossM,
	"d_minus":           domain.FieldElevationLossM,
	"denivele_negatif":  domain.FieldElevationLossM,
	"abstieg_gesamt":    domain.FieldElevationLossM,
	"desnivel_negativo": domain.FieldElevationLossM,

	// duration
	"elapsed_time": domain.FieldDurationMin,
	"moving_time":  domain.FieldDurationMin,
	"duration":     domain.FieldDurationMin,
	"time":         domain.FieldDurationMin,
	"temps":        domain.FieldDurationMin,
	"temps_ecoule": domain.FieldDurationMin,
	"duree":        domain.FieldDurationMin,
	"zeit":         domain.FieldDurationMin,
	"tiempo":       domain.FieldDurationMin,

	// pace
	"avg_pace":                 domain.FieldPaceMinPerKM,
	"average_pace":             domain.FieldPaceMinPerKM,
	"pace":                     domain.FieldPaceMinPerKM,
	"allure":                   domain.FieldPaceMinPerKM,
	"allure_moyenne":           domain.FieldPaceMinPerKM,
	"durchschnittliches_tempo": domain.FieldPaceMinPerKM,
	"ritmo_medio":              domain.FieldPaceMinPerKM,

	// heart rate
	"avg_hr":                         domain.FieldHeartRateAvg,
	"avg_heart_rate":                 domain.FieldHeartRateAvg,
	"average_heart_rate":             domain.FieldHeartRateAvg,
	"fc_moyenne":                     domain.FieldHeartRateAvg,
	"frequence_cardiaque_moyenne":    domain.FieldHeartRateAvg,
	"durchschnittliche_herzfrequenz": domain.FieldHeartRateAvg,
	"frecuencia_cardiaca_media":      domain.FieldHeartRateAvg,
	"max_hr":                         domain.FieldHeartRateMax,
	"max_heart_rate":                 domain.FieldHeartRateMax,
	"fc_max":                         domain.FieldHeartRateMax,
	"frequence_cardiaque_maximale":   domain.FieldHeartRateMax,
	"maximale_herzfrequenz":          domain.FieldHeartRateMax,
	"frecuencia_cardiaca_maxima":     domain.FieldHeartRateMax,

	// secondary bag
	"calories":          "calories",
	"kalorien":          "calories",
	"calorias":          "calories",
	"avg_cadence":       "cadence_avg",
	"average_cadence":   "cadence_avg",
	"cadence":           "cadence_avg",
	"cadence_moyenne":   "cadence_avg",
	"kadenz":            "cadence_avg",
	"avg_power":         "power_avg_w",
	"average_watts":     "power_avg_w",
	"puissance_moyenne": "power_avg_w",
	"steps":             "steps",
	"total_steps":       "steps",
	"pas":               "steps",
	"temperature":       "temperature_c",
	"avg_temperature":   "temperature_c",
	"temperatur":        "temperature_c",
	"humidity":          "humidity_pct",
	"humidite":          "humidity_pct",
	"avg_grade":         "grade_avg_pct",
	"average_grade":     "grade_avg_pct",
	"pente_moyenne":     "grade_avg_pct",
	"weather":           "weather",
	"weather_condition": "weather",
	"meteo":             "weather",
	"gear":              "gear",
	"shoes":             "gear",
	"equipment":         "gear",
	"chaussures":        "gear",
	"race":              "is_race",
	"is_race":           "is_race",
	"competition":       "is_race",
}

// Default builds the canonical schema with the base alias table.
func Default() *Schema {
	return build(nil)
}

// WithProfile builds the schema with the vendor profile's extra aliases
// layered over the base table. Profile aliases win on collision.
func WithProfile(p *Profile) *Schema {
	if p == nil {
		return Default()
	}
	return build(p.Aliases)
}

func build(extra map[string]string) *Schema {
	s := &Schema{
		fields:  baseFields,
		byName:  make(map[string]Field, len(baseFields)),
		aliases: make(map[string]string, len(baseAliases)+len(extra)),
	}
	for _, f := range baseFields {
		s.byName[f.Name] = f
	}
	for alias, name := range baseAliases {
		if _, ok := s.byName[name]; ok {
			s.aliases[alias] = name
		}
	}
	for alias, name := range extra {
		if _, ok := s.byName[name]; ok {
			s.aliases[NormalizeHeader(alias)] = name
		}
	}
	return s
}
