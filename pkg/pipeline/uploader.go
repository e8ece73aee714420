// Package pipeline turns upload payloads into deduplicated observations,
// heatmap updates and score deltas fanned out to sharded data queues.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	shared "github.com/geohive/server/pkg"
	"github.com/geohive/server/pkg/domain/report"
	"github.com/geohive/server/pkg/queue"
)

// Submission is one payload item as delivered by the transport.
type Submission struct {
	APIKey   *string        `json:"api_key"`
	Nickname *string        `json:"nickname"`
	Report   map[string]any `json:"report"`
}

// Uploader processes one upload payload end to end. It owns its queue
// buffer for the duration of a payload; the caller flushes after Send
// succeeds so the fan-out commits together with user persistence.
type Uploader struct {
	DB     shared.Database
	Queues *queue.Buffer
	Stats  shared.StatsClient
	Logger *slog.Logger
}

// Send normalizes, validates, deduplicates and dispatches every item of the
// payload. Item-level failures are counted and skipped; only persistence
// failures surface as errors, leaving the whole payload to the caller's
// retry policy.
func (u *Uploader) Send(ctx context.Context, payload []byte) (*UploadStats, error) {
	var items []Submission
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	type groupKey struct {
		apiKey   string
		nickname string
	}
	groups := make(map[groupKey][]map[string]any)
	var order []groupKey
	for _, item := range items {
		k := groupKey{strOrEmpty(item.APIKey), strOrEmpty(item.Nickname)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], formatReport(item.Report))
	}

	total := newUploadStats()
	for _, k := range order {
		var apiKey *shared.APIKey
		if k.apiKey != "" {
			var err error
			if apiKey, err = u.DB.GetAPIKey(ctx, k.apiKey); err != nil {
				return nil, fmt.Errorf("api key lookup: %w", err)
			}
		}

		userID, err := u.resolveUser(ctx, k.nickname)
		if err != nil {
			return nil, err
		}

		stats, err := u.processReports(ctx, groups[k], apiKey, userID)
		if err != nil {
			return nil, err
		}
		total.add(stats)
	}

	u.Logger.Info("Payload processed",
		"reports", total.Reports,
		"malformed", total.Malformed,
		"pending_records", u.Queues.Len())
	return total, nil
}

// formatReport normalizes one raw report and converts the millisecond
// timestamp into an absolute UTC time truncated to whole seconds.
func formatReport(item map[string]any) map[string]any {
	rep := report.Transform(item)

	ts, ok := rep["timestamp"]
	if ok {
		delete(rep, "timestamp")
	}
	if ms, isNum := asFloat(ts); ok && isNum && ms > 0 {
		rep["time"] = time.UnixMilli(int64(ms)).UTC().Truncate(time.Second)
	}
	return rep
}

// processReports handles one (api_key, nickname) group: per-report
// validation and dedup, novelty counting, sharded fan-out, heatmap and
// score enqueueing, stats emission.
func (u *Uploader) processReports(ctx context.Context, reports []map[string]any, apiKey *shared.APIKey, userID string) (*UploadStats, error) {
	stats := newUploadStats()
	stats.Reports = len(reports)

	positions := make(map[[2]float64]struct{})
	var blues []*report.BlueObservation
	var cells []*report.CellObservation
	var wifis []*report.WifiObservation

	for _, data := range reports {
		rep, b, c, w, dropped := processReport(data)
		blues = append(blues, b...)
		cells = append(cells, c...)
		wifis = append(wifis, w...)
		stats.Observations[shared.TechBlue].Upload += len(b)
		stats.Observations[shared.TechCell].Upload += len(c)
		stats.Observations[shared.TechWifi].Upload += len(w)
		for tech, n := range dropped {
			stats.Observations[tech].Drop += n
		}
		if len(b)+len(c)+len(w) > 0 {
			positions[[2]float64{rep.Lat, rep.Lon}] = struct{}{}
		} else {
			stats.Malformed++
		}
	}

	var err error
	if stats.NewStations[shared.TechBlue], err = u.countNew(ctx, shared.TechBlue, stationKeys(blues)); err != nil {
		return nil, err
	}
	if stats.NewStations[shared.TechCell], err = u.countNew(ctx, shared.TechCell, stationKeys(cells)); err != nil {
		return nil, err
	}
	if stats.NewStations[shared.TechWifi], err = u.countNew(ctx, shared.TechWifi, stationKeys(wifis)); err != nil {
		return nil, err
	}

	if err := enqueueObservations(u.Queues, shared.TechBlue, blues); err != nil {
		return nil, err
	}
	if err := enqueueObservations(u.Queues, shared.TechCell, cells); err != nil {
		return nil, err
	}
	if err := enqueueObservations(u.Queues, shared.TechWifi, wifis); err != nil {
		return nil, err
	}

	u.enqueueDatamap(positions)
	if err := u.enqueueScores(userID, len(positions), stats.NewStations); err != nil {
		return nil, err
	}

	u.emitStats(stats, apiKey)
	return stats, nil
}

// processReport validates one canonical report and collapses its entries to
// one observation per unique station key. A malformed beacon entry is
// dropped and counted without affecting the rest of the report; a malformed
// or non-actionable report yields no observations at all.
func processReport(data map[string]any) (*report.Report, []*report.BlueObservation, []*report.CellObservation, []*report.WifiObservation, map[string]int) {
	dropped := map[string]int{shared.TechBlue: 0, shared.TechCell: 0, shared.TechWifi: 0}

	rep, err := report.NewReport(data)
	if err != nil {
		return nil, nil, nil, nil, dropped
	}

	blues, blueDropped := dedupe(entriesOf(data, shared.TechBlue),
		func(f map[string]any) (*report.BlueObservation, error) {
			br, err := report.NewBlueReport(f)
			if err != nil {
				return nil, err
			}
			return report.CombineBlue(rep, br), nil
		},
		(*report.BlueObservation).UniqueKey,
		(*report.BlueObservation).Better)
	dropped[shared.TechBlue] = blueDropped

	cells, cellDropped := dedupe(entriesOf(data, shared.TechCell),
		func(f map[string]any) (*report.CellObservation, error) {
			cr, err := report.NewCellReport(f)
			if err != nil {
				return nil, err
			}
			return report.CombineCell(rep, cr), nil
		},
		(*report.CellObservation).UniqueKey,
		(*report.CellObservation).Better)
	dropped[shared.TechCell] = cellDropped

	wifis, wifiDropped := dedupe(entriesOf(data, shared.TechWifi),
		func(f map[string]any) (*report.WifiObservation, error) {
			wr, err := report.NewWifiReport(f)
			if err != nil {
				return nil, err
			}
			return report.CombineWifi(rep, wr), nil
		},
		(*report.WifiObservation).UniqueKey,
		(*report.WifiObservation).Better)
	dropped[shared.TechWifi] = wifiDropped

	return rep, blues, cells, wifis, dropped
}

// dedupe maps entries to observations and keeps the best one per unique
// key in processing order. An incoming observation replaces the current
// holder only when strictly better; ties keep the existing entry, which
// makes the outcome deterministic for a fixed input order and independent
// of it whenever the comparator separates the candidates.
func dedupe[T any](entries []map[string]any, build func(map[string]any) (T, error), key func(T) string, betterFn func(T, T) bool) ([]T, int) {
	droppedCount := 0
	best := make(map[string]T)
	var order []string
	for _, e := range entries {
		o, err := build(e)
		if err != nil {
			droppedCount++
			continue
		}
		k := key(o)
		if existing, ok := best[k]; ok {
			if !betterFn(o, existing) {
				continue
			}
		} else {
			order = append(order, k)
		}
		best[k] = o
	}
	survivors := make([]T, 0, len(order))
	for _, k := range order {
		survivors = append(survivors, best[k])
	}
	return survivors, droppedCount
}

type keyedObservation interface {
	UniqueKey() string
	ShardID() string
}

// stationKeys collects the distinct unique keys of a technology's surviving
// observations.
func stationKeys[T keyedObservation](observations []T) map[string]struct{} {
	keys := make(map[string]struct{}, len(observations))
	for _, o := range observations {
		keys[o.UniqueKey()] = struct{}{}
	}
	return keys
}

// enqueueObservations groups a technology's observations by shard and
// enqueues each group onto its named queue.
func enqueueObservations[T keyedObservation](buf *queue.Buffer, technology string, observations []T) error {
	if len(observations) == 0 {
		return nil
	}
	shards := make(map[string][]any)
	var order []string
	for _, o := range observations {
		s := o.ShardID()
		if _, ok := shards[s]; !ok {
			order = append(order, s)
		}
		shards[s] = append(shards[s], o)
	}
	for _, s := range order {
		if err := buf.EnqueueJSON(queue.ObservationQueue(technology, s), shards[s]...); err != nil {
			return err
		}
	}
	return nil
}

func entriesOf(data map[string]any, name string) []map[string]any {
	entries, _ := data[name].([]map[string]any)
	return entries
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
