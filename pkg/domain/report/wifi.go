package report

// WiFi field bounds.
const (
	MinWifiSignal = -100.0
	MaxWifiSignal = -1.0
	MinChannel    = 1
	MaxChannel    = 196
	MinFrequency  = 2_400
	MaxFrequency  = 5_999
)

// WifiReport holds the validated technology fields of one WiFi entry.
type WifiReport struct {
	MAC       string
	Radio     string
	Age       *float64
	Signal    *float64
	SNR       *float64
	Channel   *int
	Frequency *int
}

// NewWifiReport validates one canonical WiFi entry. A missing or invalid
// MAC is malformed; out-of-range optional fields are dropped.
func NewWifiReport(fields map[string]any) (*WifiReport, error) {
	raw, ok := fields["key"].(string)
	if !ok {
		return nil, ErrMalformed
	}
	mac, ok := NormalizeMAC(raw)
	if !ok {
		return nil, ErrMalformed
	}

	w := &WifiReport{
		MAC:       mac,
		Age:       optRange(fields, "age", -MaxAge, MaxAge),
		Signal:    optRange(fields, "signal", MinWifiSignal, MaxWifiSignal),
		SNR:       optRange(fields, "signalToNoiseRatio", 0, 100),
		Channel:   optIntRange(fields, "channel", MinChannel, MaxChannel),
		Frequency: optIntRange(fields, "frequency", MinFrequency, MaxFrequency),
	}
	if radio, ok := fields["radio"].(string); ok {
		w.Radio = radio
	}
	return w, nil
}

// WifiObservation is one canonical sighting of a WiFi access point.
type WifiObservation struct {
	Position
	MAC       string   `json:"mac"`
	Radio     string   `json:"radio,omitempty"`
	Age       *float64 `json:"age,omitempty"`
	Signal    *float64 `json:"signal,omitempty"`
	SNR       *float64 `json:"snr,omitempty"`
	Channel   *int     `json:"channel,omitempty"`
	Frequency *int     `json:"frequency,omitempty"`
}

// CombineWifi merges a validated report with a validated WiFi entry. Pure.
func CombineWifi(r *Report, w *WifiReport) *WifiObservation {
	return &WifiObservation{
		Position:  r.Position,
		MAC:       w.MAC,
		Radio:     w.Radio,
		Age:       obsAge(w.Age, r.Age),
		Signal:    w.Signal,
		SNR:       w.SNR,
		Channel:   w.Channel,
		Frequency: w.Frequency,
	}
}

// UniqueKey identifies the station: the normalized MAC address.
func (o *WifiObservation) UniqueKey() string { return o.MAC }

// ShardID is stable for the lifetime of the system.
func (o *WifiObservation) ShardID() string { return MACShardID(o.MAC) }

// Better reports whether o strictly improves on other.
func (o *WifiObservation) Better(other *WifiObservation) bool {
	return better(o.Signal, other.Signal, o.Accuracy, other.Accuracy, o.Age, other.Age)
}
