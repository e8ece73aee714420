package datamap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	cases := []struct {
		lat, lon         float64
		wantLat, wantLon int32
	}{
		{51.5, -0.1, 51500, -100},
		{0, 0, 0, 0},
		{1.23456, 2.34567, 1235, 2346},
		{-1.23456, -2.34544, -1235, -2345},
		{90, 180, 90000, 180000},
		{-90, -180, -90000, -180000},
	}
	for _, tc := range cases {
		lat, lon := Scale(tc.lat, tc.lon)
		assert.Equal(t, tc.wantLat, lat, "lat %f", tc.lat)
		assert.Equal(t, tc.wantLon, lon, "lon %f", tc.lon)
	}
}

func TestScale_NearbyPositionsCollapse(t *testing.T) {
	lat1, lon1 := Scale(51.5001, -0.1001)
	lat2, lon2 := Scale(51.5004, -0.0996)
	assert.Equal(t, lat1, lat2)
	assert.Equal(t, lon1, lon2)
}

func TestShardID(t *testing.T) {
	assert.Equal(t, "ne", ShardID(51500, 100))
	assert.Equal(t, "nw", ShardID(51500, -100))
	assert.Equal(t, "se", ShardID(-51500, 100))
	assert.Equal(t, "sw", ShardID(-51500, -100))
	// The equator and prime meridian count as north and east.
	assert.Equal(t, "ne", ShardID(0, 0))
}

func TestGridEncoding_RoundTrip(t *testing.T) {
	cases := [][2]int32{
		{51500, -100},
		{0, 0},
		{-90000, 180000},
		{90000, -180000},
	}
	for _, c := range cases {
		encoded := EncodeGridString(c[0], c[1])
		lat, lon, err := DecodeGridString(encoded)
		require.NoError(t, err)
		assert.Equal(t, c[0], lat)
		assert.Equal(t, c[1], lon)
	}
}

func TestDecodeGrid_BadLength(t *testing.T) {
	_, _, err := DecodeGrid([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeGridString_BadBase64(t *testing.T) {
	_, _, err := DecodeGridString("not base64!!!")
	assert.Error(t, err)
}
