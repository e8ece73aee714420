package report

import "fmt"

// Cell field bounds.
const (
	MinMCC = 1
	MaxMCC = 999
	MinMNC = 0
	MaxMNC = 999
	MinLAC = 1
	MaxLAC = 65_533
	MinCID = 1
	MaxCID = 268_435_455

	MinCellSignal = -150.0
	MaxCellSignal = -1.0
	MaxASU        = 97
	MaxPSC        = 511
	MaxTA         = 63
)

// Known radio types; each radio is its own storage and queue shard.
const (
	RadioGSM   = "gsm"
	RadioWCDMA = "wcdma"
	RadioLTE   = "lte"
)

// CellReport holds the validated technology fields of one cell entry. The
// five identifying fields are required; everything else is optional.
type CellReport struct {
	Radio   string
	MCC     int
	MNC     int
	LAC     int
	CID     int
	Age     *float64
	Signal  *float64
	ASU     *int
	PSC     *int
	TA      *int
	Serving *int
}

// NewCellReport validates one canonical cell entry. Missing or out-of-range
// identifying fields are malformed; out-of-range optional fields are
// dropped.
func NewCellReport(fields map[string]any) (*CellReport, error) {
	radio, ok := fields["radio"].(string)
	if !ok {
		return nil, ErrMalformed
	}
	switch radio {
	case RadioGSM, RadioWCDMA, RadioLTE:
	default:
		return nil, ErrMalformed
	}

	mcc, ok := intField(fields, "mcc")
	if !ok || mcc < MinMCC || mcc > MaxMCC {
		return nil, ErrMalformed
	}
	mnc, ok := intField(fields, "mnc")
	if !ok || mnc < MinMNC || mnc > MaxMNC {
		return nil, ErrMalformed
	}
	lac, ok := intField(fields, "lac")
	if !ok || lac < MinLAC || lac > MaxLAC {
		return nil, ErrMalformed
	}
	cid, ok := intField(fields, "cid")
	if !ok || cid < MinCID || cid > MaxCID {
		return nil, ErrMalformed
	}

	return &CellReport{
		Radio:   radio,
		MCC:     mcc,
		MNC:     mnc,
		LAC:     lac,
		CID:     cid,
		Age:     optRange(fields, "age", -MaxAge, MaxAge),
		Signal:  optRange(fields, "signal", MinCellSignal, MaxCellSignal),
		ASU:     optIntRange(fields, "asu", 0, MaxASU),
		PSC:     optIntRange(fields, "psc", 0, MaxPSC),
		TA:      optIntRange(fields, "ta", 0, MaxTA),
		Serving: optIntRange(fields, "serving", 0, 1),
	}, nil
}

// CellObservation is one canonical sighting of a cell tower.
type CellObservation struct {
	Position
	Radio   string   `json:"radio"`
	MCC     int      `json:"mcc"`
	MNC     int      `json:"mnc"`
	LAC     int      `json:"lac"`
	CID     int      `json:"cid"`
	Age     *float64 `json:"age,omitempty"`
	Signal  *float64 `json:"signal,omitempty"`
	ASU     *int     `json:"asu,omitempty"`
	PSC     *int     `json:"psc,omitempty"`
	TA      *int     `json:"ta,omitempty"`
	Serving *int     `json:"serving,omitempty"`
}

// CombineCell merges a validated report with a validated cell entry. Pure.
func CombineCell(r *Report, c *CellReport) *CellObservation {
	return &CellObservation{
		Position: r.Position,
		Radio:    c.Radio,
		MCC:      c.MCC,
		MNC:      c.MNC,
		LAC:      c.LAC,
		CID:      c.CID,
		Age:      obsAge(c.Age, r.Age),
		Signal:   c.Signal,
		ASU:      c.ASU,
		PSC:      c.PSC,
		TA:       c.TA,
		Serving:  c.Serving,
	}
}

// UniqueKey identifies the station: the composite radio_mcc_mnc_lac_cid.
func (o *CellObservation) UniqueKey() string {
	return fmt.Sprintf("%s_%d_%d_%d_%d", o.Radio, o.MCC, o.MNC, o.LAC, o.CID)
}

// ShardID routes cells by radio type.
func (o *CellObservation) ShardID() string { return o.Radio }

// Better reports whether o strictly improves on other.
func (o *CellObservation) Better(other *CellObservation) bool {
	return better(o.Signal, other.Signal, o.Accuracy, other.Accuracy, o.Age, other.Age)
}
