package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"secops-service/internal/client"
	"secops-service/internal/models"
	"secops-service/internal/util"
)

const (
	identityPrefix   = "identity:"
	userTokensPrefix = "user_tokens:"
)

// TokenCache keeps resolved bearer identities hot so the middleware does not
// hit Scylla on every request. The per-user token set exists so a forced
// logout can purge every cached token for that subject at once.
type TokenCache struct {
	client *client.RedisClient
}

func NewTokenCache(client *client.RedisClient) *TokenCache {
	return &TokenCache{client: client}
}

func (c *TokenCache) SetIdentity(sessionToken string, identity *models.Identity, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	pipe := c.client.Pipeline()
	identityKey := identityPrefix + sessionToken
	pipe.Set(ctx, identityKey, string(data), ttl)

	userTokensKey := userTokensPrefix + identity.AdminID
	pipe.SAdd(ctx, userTokensKey, sessionToken)
	pipe.Expire(ctx, userTokensKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to cache identity",
			zap.String("admin_id", identity.AdminID),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to cache identity: %w", err)
	}

	util.Debug("Identity cached",
		zap.String("admin_id", identity.AdminID),
		zap.Duration("ttl", ttl))
	return nil
}

func (c *TokenCache) GetIdentity(sessionToken string) (*models.Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := identityPrefix + sessionToken

	data, err := c.client.Get(ctx, key)
	if err != nil {
		if err.Error() == fmt.Sprintf("key not found: %s", key) {
			return nil, fmt.Errorf("no cached identity for token")
		}
		util.Error("Failed to get cached identity", zap.Error(err))
		return nil, fmt.Errorf("failed to get cached identity: %w", err)
	}

	identity := &models.Identity{}
	if err := json.Unmarshal([]byte(data), identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached identity: %w", err)
	}
	identity.SessionToken = sessionToken

	return identity, nil
}

func (c *TokenCache) InvalidateToken(sessionToken, adminID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pipe := c.client.Pipeline()
	pipe.Del(ctx, identityPrefix+sessionToken)
	if adminID != "" {
		pipe.SRem(ctx, userTokensPrefix+adminID, sessionToken)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to invalidate cached token",
			zap.String("admin_id", adminID),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate cached token: %w", err)
	}

	return nil
}

// InvalidateUserTokens purges every cached token for the subject. Used by the
// forced-logout path so stale identities cannot outlive their sessions.
func (c *TokenCache) InvalidateUserTokens(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userTokensKey := userTokensPrefix + userID

	tokens, err := c.client.SMembers(ctx, userTokensKey)
	if err != nil {
		util.Error("Failed to load user token set",
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to load user token set: %w", err)
	}

	if len(tokens) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, token := range tokens {
		pipe.Del(ctx, identityPrefix+token)
	}
	pipe.Del(ctx, userTokensKey)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to purge user tokens",
			zap.String("user_id", userID),
			zap.Int("token_count", len(tokens)),
			zap.Error(err))
		return fmt.Errorf("failed to purge user tokens: %w", err)
	}

	util.Info("Cached tokens purged for subject",
		zap.String("user_id", userID),
		zap.Int("token_count", len(tokens)))
	return nil
}
