package pipeline

import (
	shared "github.com/geohive/server/pkg"
)

// Metric names for the stats sink.
const (
	metricReportUpload      = "data.report.upload"
	metricReportDrop        = "data.report.drop"
	metricObservationUpload = "data.observation.upload"
	metricObservationDrop   = "data.observation.drop"
)

// TechCounts tracks accepted and dropped observations for one technology.
type TechCounts struct {
	Upload int `json:"upload"`
	Drop   int `json:"drop"`
}

// UploadStats are the exact per-batch counters kept for observability.
type UploadStats struct {
	Reports      int                    `json:"reports"`
	Malformed    int                    `json:"malformed"`
	Observations map[string]*TechCounts `json:"observations"`
	NewStations  map[string]int         `json:"new_stations"`
}

func newUploadStats() *UploadStats {
	s := &UploadStats{
		Observations: make(map[string]*TechCounts, len(shared.Technologies)),
		NewStations:  make(map[string]int, len(shared.Technologies)),
	}
	for _, tech := range shared.Technologies {
		s.Observations[tech] = &TechCounts{}
	}
	return s
}

// add folds another group's counters into this one.
func (s *UploadStats) add(other *UploadStats) {
	s.Reports += other.Reports
	s.Malformed += other.Malformed
	for tech, counts := range other.Observations {
		s.Observations[tech].Upload += counts.Upload
		s.Observations[tech].Drop += counts.Drop
	}
	for tech, n := range other.NewStations {
		s.NewStations[tech] += n
	}
}

// Accepted is the number of reports that produced at least one observation.
func (s *UploadStats) Accepted() int {
	return s.Reports - s.Malformed
}

// emitStats sends the group's counters to the stats sink. The api-key tag
// is only attached when the key is known and has opted into submit logging.
func (u *Uploader) emitStats(stats *UploadStats, apiKey *shared.APIKey) {
	var apiTag []string
	if apiKey != nil && apiKey.LogSubmit {
		apiTag = []string{"key:" + apiKey.Key}
	}

	if n := stats.Accepted(); n > 0 {
		u.Stats.Count(metricReportUpload, int64(n), apiTag...)
	}
	if stats.Malformed > 0 {
		tags := append([]string{"reason:malformed"}, apiTag...)
		u.Stats.Count(metricReportDrop, int64(stats.Malformed), tags...)
	}

	for _, tech := range shared.Technologies {
		counts := stats.Observations[tech]
		if counts.Upload > 0 {
			tags := append([]string{"type:" + tech}, apiTag...)
			u.Stats.Count(metricObservationUpload, int64(counts.Upload), tags...)
		}
		if counts.Drop > 0 {
			tags := append([]string{"type:" + tech, "reason:malformed"}, apiTag...)
			u.Stats.Count(metricObservationDrop, int64(counts.Drop), tags...)
		}
	}
}
