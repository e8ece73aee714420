package database

import (
	"context"

	"cloud.google.com/go/firestore"

	shared "github.com/geohive/server/pkg"
	storage "github.com/geohive/server/pkg/storage/firestore"
)

// FirestoreAdapter implements shared.Database on Firestore by delegating to
// the typed storage client.
type FirestoreAdapter struct {
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{storage: storage.NewClient(client)}
}

func (a *FirestoreAdapter) KnownStationKeys(ctx context.Context, technology, shard string, keys []string) ([]string, error) {
	return a.storage.KnownStationKeys(ctx, technology, shard, keys)
}

func (a *FirestoreAdapter) GetUserByNickname(ctx context.Context, nickname string) (*shared.User, error) {
	return a.storage.GetUserByNickname(ctx, nickname)
}

func (a *FirestoreAdapter) CreateUser(ctx context.Context, nickname string) (*shared.User, error) {
	return a.storage.CreateUser(ctx, nickname)
}

func (a *FirestoreAdapter) GetAPIKey(ctx context.Context, key string) (*shared.APIKey, error) {
	return a.storage.GetAPIKey(ctx, key)
}
