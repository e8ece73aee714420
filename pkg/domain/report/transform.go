package report

// The field tables below are data, not code: a new incoming schema version is
// supported by adding entries, the mapping logic never changes. Source names
// follow the public submission format, target names are the canonical ones.

type fieldSpec struct {
	source string
	target string
}

// same declares a field whose source and canonical names match.
func same(name string) fieldSpec { return fieldSpec{source: name, target: name} }

var positionFields = []fieldSpec{
	{"latitude", "lat"},
	{"longitude", "lon"},
	same("accuracy"),
	same("altitude"),
	{"altitudeAccuracy", "altitude_accuracy"},
	same("age"),
	same("heading"),
	same("pressure"),
	same("speed"),
	same("source"),
}

var blueFields = []fieldSpec{
	{"macAddress", "key"},
	same("age"),
	{"signalStrength", "signal"},
}

var cellFields = []fieldSpec{
	{"radioType", "radio"},
	{"mobileCountryCode", "mcc"},
	{"mobileNetworkCode", "mnc"},
	{"locationAreaCode", "lac"},
	{"cellId", "cid"},
	same("age"),
	same("asu"),
	{"primaryScramblingCode", "psc"},
	same("serving"),
	{"signalStrength", "signal"},
	{"timingAdvance", "ta"},
}

var wifiFields = []fieldSpec{
	{"macAddress", "key"},
	{"radioType", "radio"},
	same("age"),
	same("channel"),
	same("frequency"),
	same("signalToNoiseRatio"),
	{"signalStrength", "signal"},
}

type listSpec struct {
	source string
	target string
	fields []fieldSpec
}

var technologyLists = []listSpec{
	{"bluetoothBeacons", "blue", blueFields},
	{"cellTowers", "cell", cellFields},
	{"wifiAccessPoints", "wifi", wifiFields},
}

// mapFields copies present, non-null source values under their canonical
// names. Unknown fields are ignored, nulls are omitted rather than zeroed.
func mapFields(src map[string]any, fields []fieldSpec) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := src[f.source]; ok && v != nil {
			out[f.target] = v
		}
	}
	return out
}

// Transform normalizes one submitted report into the canonical shape:
// position fields merged into the root, plus one list per technology holding
// only entries that mapped at least one field. An entry that yields zero
// mapped fields is dropped silently; whether the remainder is malformed is
// decided later by validation. The raw millisecond timestamp is carried
// through untouched under "timestamp".
//
// The result is empty when no technology list produced at least one entry: a
// position-only report carries nothing actionable.
func Transform(item map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range mapFields(item, positionFields) {
		out[k] = v
	}

	if ts, ok := item["timestamp"]; ok && ts != nil {
		out["timestamp"] = ts
	}

	found := false
	for _, spec := range technologyLists {
		raw, _ := item[spec.source].([]any)
		var entries []map[string]any
		for _, e := range raw {
			src, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if mapped := mapFields(src, spec.fields); len(mapped) > 0 {
				entries = append(entries, mapped)
			}
		}
		if len(entries) > 0 {
			out[spec.target] = entries
			found = true
		}
	}

	if !found {
		return map[string]any{}
	}
	return out
}
