package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/geohive/server/pkg"
	"github.com/geohive/server/pkg/domain/datamap"
	"github.com/geohive/server/pkg/queue"
	"github.com/geohive/server/pkg/testing/mocks"
)

func newTestEnv(db *mocks.MockDatabase) (*Uploader, *mocks.CapturePublisher, *mocks.CaptureStats) {
	pub := &mocks.CapturePublisher{}
	stats := &mocks.CaptureStats{}
	u := &Uploader{
		DB:     db,
		Queues: queue.NewBuffer(pub),
		Stats:  stats,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return u, pub, stats
}

func makePayload(t *testing.T, items ...map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(items)
	require.NoError(t, err)
	return data
}

func submission(nickname string, rep map[string]any) map[string]any {
	item := map[string]any{"report": rep}
	if nickname != "" {
		item["nickname"] = nickname
	}
	return item
}

func wifiReport(macs ...string) map[string]any {
	var aps []any
	for _, mac := range macs {
		aps = append(aps, map[string]any{"macAddress": mac, "signalStrength": -70})
	}
	return map[string]any{
		"latitude":         51.5,
		"longitude":        -0.1,
		"wifiAccessPoints": aps,
	}
}

func records(t *testing.T, pub *mocks.CapturePublisher, topic string) []string {
	t.Helper()
	msgs := pub.ByTopic(topic)
	require.Len(t, msgs, 1, "expected one message on %s", topic)
	return strings.Split(string(msgs[0].Data), "\n")
}

func TestSend_WifiReportFansOut(t *testing.T) {
	u, pub, stats := newTestEnv(&mocks.MockDatabase{})

	payload := makePayload(t, submission("alice", wifiReport("11:22:33:44:55:66")))
	result, err := u.Send(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reports)
	assert.Equal(t, 0, result.Malformed)
	assert.Equal(t, 1, result.Observations[shared.TechWifi].Upload)
	assert.Equal(t, 1, result.NewStations[shared.TechWifi])

	// Nothing reaches the queues until the caller flushes.
	assert.Empty(t, pub.Messages)
	require.NoError(t, u.Queues.Flush(context.Background()))

	assert.ElementsMatch(t, []string{"update_wifi_3", "update_datamap_nw", "update_score"}, pub.Topics())

	wifiRecords := records(t, pub, "update_wifi_3")
	require.Len(t, wifiRecords, 1)
	var obs map[string]any
	require.NoError(t, json.Unmarshal([]byte(wifiRecords[0]), &obs))
	assert.Equal(t, "112233445566", obs["mac"])
	assert.Equal(t, 51.5, obs["lat"])
	assert.Equal(t, -0.1, obs["lon"])
	assert.Equal(t, -70.0, obs["signal"])

	gridRecords := records(t, pub, "update_datamap_nw")
	require.Len(t, gridRecords, 1)
	lat, lon, err := datamap.DecodeGridString(gridRecords[0])
	require.NoError(t, err)
	assert.Equal(t, int32(51500), lat)
	assert.Equal(t, int32(-100), lon)

	scoreRecords := records(t, pub, "update_score")
	require.Len(t, scoreRecords, 2)
	assert.Contains(t, scoreRecords[0], `"key":"location"`)
	assert.Contains(t, scoreRecords[0], `"userid":"user-1"`)
	assert.Contains(t, scoreRecords[0], `"value":1`)
	assert.Contains(t, scoreRecords[1], `"key":"new_wifi"`)

	assert.Equal(t, int64(1), stats.Total("data.report.upload"))
	assert.Equal(t, int64(1), stats.Total("data.observation.upload"))
}

func TestSend_TimestampConversion(t *testing.T) {
	rep := wifiReport("11:22:33:44:55:66")
	rep["timestamp"] = 1_700_000_000_123.0

	formatted := formatReport(rep)
	_, hasRaw := formatted["timestamp"]
	assert.False(t, hasRaw)

	want := time.UnixMilli(1_700_000_000_123).UTC().Truncate(time.Second)
	assert.Equal(t, want, formatted["time"])
}

func TestSend_DuplicateMACKeepsStrongestSignal(t *testing.T) {
	rep := map[string]any{
		"latitude":  51.5,
		"longitude": -0.1,
		"wifiAccessPoints": []any{
			map[string]any{"macAddress": "11:22:33:44:55:66", "signalStrength": -80},
			map[string]any{"macAddress": "11:22:33:44:55:66", "signalStrength": -60},
		},
	}

	u, pub, _ := newTestEnv(&mocks.MockDatabase{})
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Observations[shared.TechWifi].Upload)
	assert.Equal(t, 0, result.Observations[shared.TechWifi].Drop)

	require.NoError(t, u.Queues.Flush(context.Background()))
	wifiRecords := records(t, pub, "update_wifi_3")
	require.Len(t, wifiRecords, 1)
	assert.Contains(t, wifiRecords[0], `"signal":-60`)
}

func TestSend_DuplicateWinnerIndependentOfOrder(t *testing.T) {
	for name, signals := range map[string][]int{
		"strongest first": {-60, -80},
		"strongest last":  {-80, -60},
	} {
		t.Run(name, func(t *testing.T) {
			var aps []any
			for _, s := range signals {
				aps = append(aps, map[string]any{"macAddress": "11:22:33:44:55:66", "signalStrength": s})
			}
			rep := map[string]any{"latitude": 51.5, "longitude": -0.1, "wifiAccessPoints": aps}

			u, pub, _ := newTestEnv(&mocks.MockDatabase{})
			_, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
			require.NoError(t, err)
			require.NoError(t, u.Queues.Flush(context.Background()))

			wifiRecords := records(t, pub, "update_wifi_3")
			require.Len(t, wifiRecords, 1)
			assert.Contains(t, wifiRecords[0], `"signal":-60`)
		})
	}
}

func TestSend_MalformedPositionDropsReport(t *testing.T) {
	rep := wifiReport("11:22:33:44:55:66")
	rep["latitude"] = 91.0

	u, pub, stats := newTestEnv(&mocks.MockDatabase{})
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reports)
	assert.Equal(t, 1, result.Malformed)
	assert.Equal(t, 0, result.Observations[shared.TechWifi].Upload)

	require.NoError(t, u.Queues.Flush(context.Background()))
	assert.Empty(t, pub.Messages)

	assert.Equal(t, int64(0), stats.Total("data.report.upload"))
	assert.Equal(t, int64(1), stats.Total("data.report.drop"))
	dropMetric := stats.Metrics[len(stats.Metrics)-1]
	assert.Contains(t, dropMetric.Tags, "reason:malformed")
}

func TestSend_PositionOnlyReportIsMalformed(t *testing.T) {
	rep := map[string]any{"latitude": 51.5, "longitude": -0.1}

	u, _, _ := newTestEnv(&mocks.MockDatabase{})
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reports)
	assert.Equal(t, 1, result.Malformed)
}

func TestSend_MalformedEntryDoesNotDropReport(t *testing.T) {
	rep := map[string]any{
		"latitude":  51.5,
		"longitude": -0.1,
		"wifiAccessPoints": []any{
			map[string]any{"macAddress": "11:22:33:44:55:66", "signalStrength": -70},
			map[string]any{"macAddress": "not-a-mac", "signalStrength": -50},
		},
	}

	u, _, stats := newTestEnv(&mocks.MockDatabase{})
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Malformed)
	assert.Equal(t, 1, result.Observations[shared.TechWifi].Upload)
	assert.Equal(t, 1, result.Observations[shared.TechWifi].Drop)

	assert.Equal(t, int64(1), stats.Total("data.observation.drop"))
}

func TestSend_NoveltySubtractsKnownStations(t *testing.T) {
	type call struct {
		shard string
		keys  []string
	}
	var calls []call
	db := &mocks.MockDatabase{
		KnownStationKeysFunc: func(ctx context.Context, technology, shard string, keys []string) ([]string, error) {
			assert.Equal(t, shared.TechWifi, technology)
			calls = append(calls, call{shard, keys})
			if shard == "3" {
				return keys, nil // whole shard already known
			}
			return nil, nil
		},
	}

	// Shards "3" and "c" respectively.
	rep := wifiReport("11:22:33:44:55:66", "aa:bb:cc:dd:ee:ff")

	u, pub, _ := newTestEnv(db)
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewStations[shared.TechWifi])
	assert.Len(t, calls, 2, "one existence query per shard")

	require.NoError(t, u.Queues.Flush(context.Background()))
	scoreRecords := records(t, pub, "update_score")
	require.Len(t, scoreRecords, 2)
	assert.Contains(t, scoreRecords[1], `"key":"new_wifi"`)
	assert.Contains(t, scoreRecords[1], `"value":1`)
}

func TestSend_AllStationsKnownScoresLocationOnly(t *testing.T) {
	db := &mocks.MockDatabase{
		KnownStationKeysFunc: func(ctx context.Context, technology, shard string, keys []string) ([]string, error) {
			return keys, nil
		},
	}

	u, pub, _ := newTestEnv(db)
	_, err := u.Send(context.Background(), makePayload(t, submission("alice", wifiReport("11:22:33:44:55:66"))))
	require.NoError(t, err)
	require.NoError(t, u.Queues.Flush(context.Background()))

	scoreRecords := records(t, pub, "update_score")
	require.Len(t, scoreRecords, 1)
	assert.Contains(t, scoreRecords[0], `"key":"location"`)
}

func TestSend_CellReportFansOut(t *testing.T) {
	rep := map[string]any{
		"latitude":  48.1,
		"longitude": 11.5,
		"cellTowers": []any{
			map[string]any{
				"radioType":         "lte",
				"mobileCountryCode": 262,
				"mobileNetworkCode": 1,
				"locationAreaCode":  5,
				"cellId":            999,
				"signalStrength":    -95,
			},
		},
	}

	u, pub, _ := newTestEnv(&mocks.MockDatabase{})
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Observations[shared.TechCell].Upload)
	assert.Equal(t, 1, result.NewStations[shared.TechCell])

	require.NoError(t, u.Queues.Flush(context.Background()))
	cellRecords := records(t, pub, "update_cell_lte")
	require.Len(t, cellRecords, 1)
	assert.Contains(t, cellRecords[0], `"radio":"lte"`)
	assert.Contains(t, cellRecords[0], `"cid":999`)

	scoreRecords := records(t, pub, "update_score")
	require.Len(t, scoreRecords, 2)
	assert.Contains(t, scoreRecords[1], `"key":"new_cell"`)
}

func TestSend_BlueNoveltyCountedButNotScored(t *testing.T) {
	rep := map[string]any{
		"latitude":  51.5,
		"longitude": -0.1,
		"bluetoothBeacons": []any{
			map[string]any{"macAddress": "aa:bb:cc:dd:ee:ff", "signalStrength": -80},
		},
	}

	u, pub, _ := newTestEnv(&mocks.MockDatabase{})
	result, err := u.Send(context.Background(), makePayload(t, submission("alice", rep)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewStations[shared.TechBlue])

	require.NoError(t, u.Queues.Flush(context.Background()))
	scoreRecords := records(t, pub, "update_score")
	require.Len(t, scoreRecords, 1)
	assert.Contains(t, scoreRecords[0], `"key":"location"`)
}

func TestSend_NicknameRules(t *testing.T) {
	cases := []struct {
		name      string
		nickname  string
		wantScore bool
	}{
		{"two characters is enough", "ab", true},
		{"one character is too short", "a", false},
		{"empty skips scoring", "", false},
		{"128 characters is allowed", strings.Repeat("x", 128), true},
		{"129 characters is too long", strings.Repeat("x", 129), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, pub, _ := newTestEnv(&mocks.MockDatabase{})
			_, err := u.Send(context.Background(), makePayload(t, submission(tc.nickname, wifiReport("11:22:33:44:55:66"))))
			require.NoError(t, err)
			require.NoError(t, u.Queues.Flush(context.Background()))

			// Observations always flow; only scoring needs a valid user.
			assert.Len(t, pub.ByTopic("update_wifi_3"), 1)
			if tc.wantScore {
				assert.Len(t, pub.ByTopic("update_score"), 1)
			} else {
				assert.Empty(t, pub.ByTopic("update_score"))
			}
		})
	}
}

func TestSend_ExistingUserIsNotRecreated(t *testing.T) {
	created := 0
	db := &mocks.MockDatabase{
		GetUserByNicknameFunc: func(ctx context.Context, nickname string) (*shared.User, error) {
			return &shared.User{ID: "existing-user", Nickname: nickname}, nil
		},
		CreateUserFunc: func(ctx context.Context, nickname string) (*shared.User, error) {
			created++
			return &shared.User{ID: "new-user"}, nil
		},
	}

	u, pub, _ := newTestEnv(db)
	_, err := u.Send(context.Background(), makePayload(t, submission("alice", wifiReport("11:22:33:44:55:66"))))
	require.NoError(t, err)
	require.NoError(t, u.Queues.Flush(context.Background()))

	assert.Zero(t, created)
	scoreRecords := records(t, pub, "update_score")
	assert.Contains(t, scoreRecords[0], `"userid":"existing-user"`)
}

func TestSend_APIKeyTagging(t *testing.T) {
	cases := []struct {
		name    string
		key     *shared.APIKey
		wantTag bool
	}{
		{"opted in", &shared.APIKey{Key: "k1", LogSubmit: true}, true},
		{"opted out", &shared.APIKey{Key: "k1", LogSubmit: false}, false},
		{"unknown key", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := &mocks.MockDatabase{
				GetAPIKeyFunc: func(ctx context.Context, key string) (*shared.APIKey, error) {
					assert.Equal(t, "k1", key)
					return tc.key, nil
				},
			}
			u, _, stats := newTestEnv(db)

			item := submission("alice", wifiReport("11:22:33:44:55:66"))
			item["api_key"] = "k1"
			_, err := u.Send(context.Background(), makePayload(t, item))
			require.NoError(t, err)

			require.NotEmpty(t, stats.Metrics)
			for _, m := range stats.Metrics {
				if tc.wantTag {
					assert.Contains(t, m.Tags, "key:k1", "metric %s", m.Name)
				} else {
					assert.NotContains(t, m.Tags, "key:k1", "metric %s", m.Name)
				}
			}
		})
	}
}

func TestSend_GroupsShareOneAPIKeyLookup(t *testing.T) {
	lookups := 0
	db := &mocks.MockDatabase{
		GetAPIKeyFunc: func(ctx context.Context, key string) (*shared.APIKey, error) {
			lookups++
			return nil, nil
		},
	}
	u, _, _ := newTestEnv(db)

	a := submission("alice", wifiReport("11:22:33:44:55:66"))
	a["api_key"] = "k1"
	b := submission("alice", wifiReport("aa:bb:cc:dd:ee:ff"))
	b["api_key"] = "k1"

	result, err := u.Send(context.Background(), makePayload(t, a, b))
	require.NoError(t, err)

	assert.Equal(t, 1, lookups)
	assert.Equal(t, 2, result.Reports)
}

func TestSend_SamePositionYieldsOneGridCell(t *testing.T) {
	// Two reports within the same grid cell from the same contributor.
	a := wifiReport("11:22:33:44:55:66")
	b := wifiReport("aa:bb:cc:dd:ee:ff")
	b["latitude"] = 51.5001
	b["longitude"] = -0.1001

	u, pub, _ := newTestEnv(&mocks.MockDatabase{})
	_, err := u.Send(context.Background(), makePayload(t, submission("alice", a), submission("alice", b)))
	require.NoError(t, err)
	require.NoError(t, u.Queues.Flush(context.Background()))

	gridRecords := records(t, pub, "update_datamap_nw")
	assert.Len(t, gridRecords, 1)
}

func TestSend_InvalidPayload(t *testing.T) {
	u, _, _ := newTestEnv(&mocks.MockDatabase{})
	_, err := u.Send(context.Background(), []byte("not json"))
	assert.Error(t, err)
}

func TestSend_UserLookupErrorAbortsPayload(t *testing.T) {
	db := &mocks.MockDatabase{
		GetUserByNicknameFunc: func(ctx context.Context, nickname string) (*shared.User, error) {
			return nil, context.DeadlineExceeded
		},
	}
	u, pub, _ := newTestEnv(db)

	_, err := u.Send(context.Background(), makePayload(t, submission("alice", wifiReport("11:22:33:44:55:66"))))
	require.Error(t, err)
	assert.Empty(t, pub.Messages)
}

func TestResolveUser(t *testing.T) {
	u, _, _ := newTestEnv(&mocks.MockDatabase{})

	id, err := u.resolveUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	id, err = u.resolveUser(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, id)
}
