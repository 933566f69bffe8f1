package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records logged-out token ids until their natural expiry.
// Tokens are otherwise stateless, so logout needs a server-side denylist.
type RevocationStore struct {
	client *redis.Client
	prefix string
}

func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: "revoked:",
	}
}

func (r *RevocationStore) Revoke(ctx context.Context, tok *Token) error {
	if tok.ID == "" {
		return fmt.Errorf("session: token has no id")
	}
	ttl := time.Until(tok.Expires)
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}
	return r.client.Set(ctx, r.prefix+tok.ID, "1", ttl).Err()
}

func (r *RevocationStore) Revoked(ctx context.Context, tok *Token) (bool, error) {
	if tok.ID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.prefix+tok.ID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
