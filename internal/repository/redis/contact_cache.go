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
	contactPrefix = "contact:"

	// ContactCacheTTL bounds how stale a cached directory lookup may be.
	ContactCacheTTL = 600 * time.Second
)

// ContactCache keeps RapidPro contact lookups keyed by MSISDN.
type ContactCache struct {
	client *client.RedisClient
	ttl    time.Duration
}

func NewContactCache(client *client.RedisClient) *ContactCache {
	return &ContactCache{client: client, ttl: ContactCacheTTL}
}

// GetContact returns the cached contact and true, or nil and false on a miss.
func (c *ContactCache) GetContact(ctx context.Context, msisdn string) (*models.Contact, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, contactPrefix+msisdn)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, false, nil
		}
		util.Error("Failed to get contact from cache",
			util.MSISDN("msisdn", msisdn),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to get contact from cache: %w", err)
	}

	var contact models.Contact
	if err := json.Unmarshal([]byte(raw), &contact); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached contact: %w", err)
	}
	return &contact, true, nil
}

func (c *ContactCache) SetContact(ctx context.Context, msisdn string, contact *models.Contact) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(contact)
	if err != nil {
		return fmt.Errorf("failed to encode contact: %w", err)
	}

	if err := c.client.Set(ctx, contactPrefix+msisdn, data, c.ttl); err != nil {
		util.Error("Failed to set contact in cache",
			util.MSISDN("msisdn", msisdn),
			zap.Duration("ttl", c.ttl),
			zap.Error(err))
		return fmt.Errorf("failed to set contact in cache: %w", err)
	}
	util.Debug("Contact cached", util.MSISDN("msisdn", msisdn), zap.Duration("ttl", c.ttl))
	return nil
}
