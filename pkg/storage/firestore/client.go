package firestore

import (
	"cloud.google.com/go/firestore"
)

// Client is the typed Firestore access layer. Station existence lives in
// one collection per (technology, shard) so an existence check is a single
// batched read against one partition.
type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// stationCollection names the partition holding one shard's station keys,
// e.g. stations_wifi_0 or stations_cell_gsm. Documents are keyed by the
// station's unique key; this pipeline only ever reads them.
func stationCollection(technology, shard string) string {
	return "stations_" + technology + "_" + shard
}
