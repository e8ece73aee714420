package report

import "strings"

// NormalizeMAC lowercases a MAC address and strips separators. The second
// return is false for anything that is not 12 hex digits or is all zero.
func NormalizeMAC(s string) (string, bool) {
	mac := strings.ToLower(s)
	mac = strings.NewReplacer(":", "", "-", "", ".", "").Replace(mac)
	if len(mac) != 12 {
		return "", false
	}
	zero := true
	for _, c := range mac {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", false
		}
		if c != '0' {
			zero = false
		}
	}
	if zero {
		return "", false
	}
	return mac, true
}

// MACShardID partitions MAC-keyed stations into sixteen shards keyed by the
// fifth hex digit of the normalized address.
func MACShardID(mac string) string {
	return mac[4:5]
}

// ShardID maps a station's unique key to its shard id: the fifth hex digit
// for MAC-keyed technologies, the radio type for cells. The same function
// routes storage lookups and queue dispatch, so it must stay stable.
func ShardID(technology, uniqueKey string) string {
	if technology == "cell" {
		radio, _, _ := strings.Cut(uniqueKey, "_")
		return radio
	}
	return MACShardID(uniqueKey)
}

// better reports whether observation a strictly improves on b, comparing
// only informativeness: a present signal beats an absent one, then the
// stronger signal wins, then the smaller position accuracy, then the smaller
// absolute age. Full equality is not an improvement, so during dedup the
// earlier observation survives a tie.
func better(aSignal, bSignal, aAccuracy, bAccuracy, aAge, bAge *float64) bool {
	if (aSignal != nil) != (bSignal != nil) {
		return aSignal != nil
	}
	if aSignal != nil && *aSignal != *bSignal {
		return *aSignal > *bSignal
	}
	if (aAccuracy != nil) != (bAccuracy != nil) {
		return aAccuracy != nil
	}
	if aAccuracy != nil && *aAccuracy != *bAccuracy {
		return *aAccuracy < *bAccuracy
	}
	if (aAge != nil) != (bAge != nil) {
		return aAge != nil
	}
	if aAge != nil && abs(*aAge) != abs(*bAge) {
		return abs(*aAge) < abs(*bAge)
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// obsAge picks the beacon-level age when the entry carried one, falling back
// to the report's position age.
func obsAge(entryAge, reportAge *float64) *float64 {
	if entryAge != nil {
		return entryAge
	}
	return reportAge
}
