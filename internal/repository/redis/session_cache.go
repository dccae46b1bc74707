package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/client"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

const (
	sessionDataPrefix = "registration_session:"
	sessionPurpose    = "registration-session"
)

// Sealer encrypts session payloads at rest. encryption.EncryptionManager
// satisfies it.
type Sealer interface {
	Seal(ctx context.Context, plaintext []byte, keyPurpose string) ([]byte, error)
	Open(ctx context.Context, envelope []byte, keyPurpose string) ([]byte, error)
}

// SessionCache stores registration wizard sessions. Every save refreshes the
// inactivity TTL; a nil sealer stores plain JSON.
type SessionCache struct {
	client *client.RedisClient
	sealer Sealer
	ttl    time.Duration
}

func NewSessionCache(client *client.RedisClient, sealer Sealer, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, sealer: sealer, ttl: ttl}
}

// Load returns the stored session, or a fresh one when none exists or the
// stored payload can no longer be read.
func (c *SessionCache) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, sessionDataPrefix+sessionID)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return models.NewSession(sessionID), nil
		}
		util.Error("Failed to get session data",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get session data: %w", err)
	}

	data := []byte(raw)
	if c.sealer != nil {
		data, err = c.sealer.Open(ctx, data, sessionPurpose)
		if err != nil {
			util.Warn("Discarding unreadable session",
				zap.String("session_id", sessionID),
				zap.Error(err))
			return models.NewSession(sessionID), nil
		}
	}

	sess := models.NewSession(sessionID)
	if err := json.Unmarshal(data, sess); err != nil {
		util.Warn("Discarding malformed session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return models.NewSession(sessionID), nil
	}
	return sess, nil
}

// Save persists sess. An empty session is deleted instead.
func (c *SessionCache) Save(ctx context.Context, sess *models.Session) error {
	if sess.IsEmpty() {
		return c.Delete(ctx, sess.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if c.sealer != nil {
		data, err = c.sealer.Seal(ctx, data, sessionPurpose)
		if err != nil {
			return fmt.Errorf("failed to encrypt session data: %w", err)
		}
	}

	if err := c.client.Set(ctx, sessionDataPrefix+sess.ID, data, c.ttl); err != nil {
		util.Error("Failed to set session data",
			zap.String("session_id", sess.ID),
			zap.Duration("ttl", c.ttl),
			zap.Error(err))
		return fmt.Errorf("failed to set session data: %w", err)
	}
	return nil
}

func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, sessionDataPrefix+sessionID); err != nil {
		util.Error("Failed to delete session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
