package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Nickname length bounds, in characters.
const (
	MinNickname = 2
	MaxNickname = 128
)

// resolveUser maps a nickname to a stable user id, creating the user on
// first sight. An out-of-bounds nickname yields no user id: observations
// still flow, only scoring is skipped. Concurrent creation of the same new
// nickname is a benign race left to the store's uniqueness handling.
func (u *Uploader) resolveUser(ctx context.Context, nickname string) (string, error) {
	if n := utf8.RuneCountInString(nickname); n < MinNickname || n > MaxNickname {
		return "", nil
	}

	user, err := u.DB.GetUserByNickname(ctx, nickname)
	if err != nil {
		return "", fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		if user, err = u.DB.CreateUser(ctx, nickname); err != nil {
			return "", fmt.Errorf("user create: %w", err)
		}
	}
	return user.ID, nil
}
