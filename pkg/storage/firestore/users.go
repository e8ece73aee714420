package firestore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/geohive/server/pkg"
)

// GetUserByNickname looks a user up by exact nickname match. Returns nil
// without error when no user exists yet.
func (c *Client) GetUserByNickname(ctx context.Context, nickname string) (*shared.User, error) {
	iter := c.fs.Collection(shared.CollectionUsers).
		Where("nickname", "==", nickname).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user query: %w", err)
	}

	user := &shared.User{ID: doc.Ref.ID, Nickname: nickname}
	if created, ok := doc.Data()["created"].(time.Time); ok {
		user.Created = created
	}
	return user, nil
}

// CreateUser creates a user record under a fresh id. Two workers racing on
// the same new nickname may each create a record; first writer wins
// downstream and the duplicate is harmless, matching the store's
// single-document atomicity.
func (c *Client) CreateUser(ctx context.Context, nickname string) (*shared.User, error) {
	user := &shared.User{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Created:  time.Now().UTC(),
	}
	_, err := c.fs.Collection(shared.CollectionUsers).Doc(user.ID).Create(ctx, map[string]interface{}{
		"nickname": user.Nickname,
		"created":  user.Created,
	})
	if err != nil {
		return nil, fmt.Errorf("user create: %w", err)
	}
	return user, nil
}

// GetAPIKey fetches a submission key record. Unknown keys return nil
// without error: submissions without a registered key are permitted, they
// just lose per-key tagging.
func (c *Client) GetAPIKey(ctx context.Context, key string) (*shared.APIKey, error) {
	snap, err := c.fs.Collection(shared.CollectionAPIKeys).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("api key get: %w", err)
	}

	logSubmit, _ := snap.Data()["log_submit"].(bool)
	return &shared.APIKey{Key: key, LogSubmit: logSubmit}, nil
}
