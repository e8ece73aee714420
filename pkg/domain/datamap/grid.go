// Package datamap quantizes positions into the coverage heatmap grid.
package datamap

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Precision is the grid resolution: coordinates are kept to three decimal
// places, roughly 110m of latitude per cell.
const Precision = 1000

// Scale quantizes a coordinate pair onto the grid.
func Scale(lat, lon float64) (int32, int32) {
	return int32(math.Round(lat * Precision)), int32(math.Round(lon * Precision))
}

// ShardID partitions the grid into hemisphere quadrants. Like the station
// shard functions it must stay stable: queue names and storage tables carry
// it.
func ShardID(scaledLat, scaledLon int32) string {
	ns := "n"
	if scaledLat < 0 {
		ns = "s"
	}
	ew := "e"
	if scaledLon < 0 {
		ew = "w"
	}
	return ns + ew
}

// EncodeGrid packs a scaled grid cell into 8 big-endian bytes.
func EncodeGrid(scaledLat, scaledLon int32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(scaledLat))
	binary.BigEndian.PutUint32(buf[4:8], uint32(scaledLon))
	return buf
}

// EncodeGridString is the queue representation of a cell: the packed bytes
// in standard base64, a raw encoded string rather than a JSON document.
func EncodeGridString(scaledLat, scaledLon int32) string {
	return base64.StdEncoding.EncodeToString(EncodeGrid(scaledLat, scaledLon))
}

// DecodeGrid unpacks an 8-byte encoded grid cell.
func DecodeGrid(data []byte) (int32, int32, error) {
	if len(data) != 8 {
		return 0, 0, fmt.Errorf("datamap: grid encoding must be 8 bytes, got %d", len(data))
	}
	lat := int32(binary.BigEndian.Uint32(data[0:4]))
	lon := int32(binary.BigEndian.Uint32(data[4:8]))
	return lat, lon, nil
}

// DecodeGridString reverses EncodeGridString.
func DecodeGridString(s string) (int32, int32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, 0, fmt.Errorf("datamap: %w", err)
	}
	return DecodeGrid(raw)
}
