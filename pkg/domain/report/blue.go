package report

// Bluetooth beacon signal bounds, dBm.
const (
	MinBlueSignal = -127.0
	MaxBlueSignal = -1.0
)

// BlueReport holds the validated technology fields of one Bluetooth entry.
type BlueReport struct {
	MAC    string
	Age    *float64
	Signal *float64
}

// NewBlueReport validates one canonical Bluetooth entry. A missing or
// invalid MAC is malformed; out-of-range optional fields are dropped.
func NewBlueReport(fields map[string]any) (*BlueReport, error) {
	raw, ok := fields["key"].(string)
	if !ok {
		return nil, ErrMalformed
	}
	mac, ok := NormalizeMAC(raw)
	if !ok {
		return nil, ErrMalformed
	}
	return &BlueReport{
		MAC:    mac,
		Age:    optRange(fields, "age", -MaxAge, MaxAge),
		Signal: optRange(fields, "signal", MinBlueSignal, MaxBlueSignal),
	}, nil
}

// BlueObservation is one canonical sighting of a Bluetooth beacon.
type BlueObservation struct {
	Position
	MAC    string   `json:"mac"`
	Age    *float64 `json:"age,omitempty"`
	Signal *float64 `json:"signal,omitempty"`
}

// CombineBlue merges a validated report with a validated Bluetooth entry.
// Pure; the entry's age wins over the report's.
func CombineBlue(r *Report, b *BlueReport) *BlueObservation {
	return &BlueObservation{
		Position: r.Position,
		MAC:      b.MAC,
		Age:      obsAge(b.Age, r.Age),
		Signal:   b.Signal,
	}
}

// UniqueKey identifies the station: the normalized MAC address.
func (o *BlueObservation) UniqueKey() string { return o.MAC }

// ShardID is stable for the lifetime of the system.
func (o *BlueObservation) ShardID() string { return MACShardID(o.MAC) }

// Better reports whether o strictly improves on other.
func (o *BlueObservation) Better(other *BlueObservation) bool {
	return better(o.Signal, other.Signal, o.Accuracy, other.Accuracy, o.Age, other.Age)
}
