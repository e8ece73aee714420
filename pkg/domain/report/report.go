package report

import (
	"errors"
	"time"
)

// ErrMalformed marks input that fails validation. Callers count and skip;
// it never aborts a batch.
var ErrMalformed = errors.New("malformed report")

// Position bounds. A report outside these is malformed; an optional field
// outside its range is dropped rather than failing the report.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0

	MaxAccuracy         = 1_000_000.0 // meters
	MinAltitude         = -10_000.0
	MaxAltitude         = 100_000.0
	MaxAltitudeAccuracy = 500_000.0
	MaxHeading          = 360.0
	MinPressure         = 100.0 // hPa
	MaxPressure         = 1_100.0
	MaxSpeed            = 1_020.0      // m/s
	MaxAge              = 86_400_000.0 // ms, one day either side
)

// Known position sources; anything else is dropped and the default applies.
const (
	SourceFixed = "fixed"
	SourceGNSS  = "gnss"
	SourceFused = "fused"
	SourceQuery = "query"
)

// Position is the validated location block shared by every observation a
// report produces.
type Position struct {
	Lat              float64   `json:"lat"`
	Lon              float64   `json:"lon"`
	Accuracy         *float64  `json:"accuracy,omitempty"`
	Altitude         *float64  `json:"altitude,omitempty"`
	AltitudeAccuracy *float64  `json:"altitude_accuracy,omitempty"`
	Heading          *float64  `json:"heading,omitempty"`
	Pressure         *float64  `json:"pressure,omitempty"`
	Speed            *float64  `json:"speed,omitempty"`
	Source           string    `json:"source"`
	Time             time.Time `json:"time"`
}

// Report is a validated canonical report root: a position plus the age of
// the position fix relative to the beacon scans.
type Report struct {
	Position
	Age *float64 `json:"age,omitempty"`
}

// NewReport validates the root canonical fields. It returns ErrMalformed for
// a missing or out-of-bounds position; invalid optional fields are dropped.
// Time defaults to the current UTC time truncated to whole seconds when the
// submission carried no timestamp.
func NewReport(fields map[string]any) (*Report, error) {
	lat, ok := floatField(fields, "lat")
	if !ok || lat < MinLat || lat > MaxLat {
		return nil, ErrMalformed
	}
	lon, ok := floatField(fields, "lon")
	if !ok || lon < MinLon || lon > MaxLon {
		return nil, ErrMalformed
	}

	r := &Report{Position: Position{Lat: lat, Lon: lon, Source: SourceGNSS}}

	r.Accuracy = optRange(fields, "accuracy", 0, MaxAccuracy)
	r.Altitude = optRange(fields, "altitude", MinAltitude, MaxAltitude)
	r.AltitudeAccuracy = optRange(fields, "altitude_accuracy", 0, MaxAltitudeAccuracy)
	r.Heading = optRange(fields, "heading", 0, MaxHeading)
	r.Pressure = optRange(fields, "pressure", MinPressure, MaxPressure)
	r.Speed = optRange(fields, "speed", 0, MaxSpeed)
	r.Age = optRange(fields, "age", -MaxAge, MaxAge)

	if s, ok := fields["source"].(string); ok {
		switch s {
		case SourceFixed, SourceGNSS, SourceFused, SourceQuery:
			r.Source = s
		}
	}

	if t, ok := fields["time"].(time.Time); ok && !t.IsZero() {
		r.Time = t.UTC().Truncate(time.Second)
	} else {
		r.Time = time.Now().UTC().Truncate(time.Second)
	}

	return r, nil
}

// floatField reads a numeric field. JSON decoding yields float64, but the
// mapper also passes through untouched ints from hand-built payloads.
func floatField(fields map[string]any, name string) (float64, bool) {
	switch v := fields[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// optRange returns the field value when present and inside [min, max], nil
// otherwise.
func optRange(fields map[string]any, name string, min, max float64) *float64 {
	v, ok := floatField(fields, name)
	if !ok || v < min || v > max {
		return nil
	}
	return &v
}

// intField reads an integral field, rejecting fractional values.
func intField(fields map[string]any, name string) (int, bool) {
	v, ok := floatField(fields, name)
	if !ok || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// optIntRange is optRange for integral fields.
func optIntRange(fields map[string]any, name string, min, max int) *int {
	v, ok := intField(fields, name)
	if !ok || v < min || v > max {
		return nil
	}
	return &v
}
