// Package contacts looks up registrants in the RapidPro contact directory.
package contacts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

// Directory group names.
const (
	GroupSMS      = "nurseconnect-sms"
	GroupWhatsApp = "nurseconnect-whatsapp"
	GroupOptedOut = "opted-out"
)

// DeliveryGroups are the groups of an already registered contact.
var DeliveryGroups = []string{GroupSMS, GroupWhatsApp}

var ErrContactLookupFailed = errors.New("contact lookup failed")

// Directory is the remote lookup. rapidpro.Client satisfies it.
type Directory interface {
	GetContactByURN(ctx context.Context, urn string) (*models.Contact, error)
}

// Cache is an optional short-lived lookup cache keyed by MSISDN.
type Cache interface {
	GetContact(ctx context.Context, msisdn string) (*models.Contact, bool, error)
	SetContact(ctx context.Context, msisdn string, contact *models.Contact) error
}

type Service struct {
	directory Directory
	cache     Cache
	metrics   *metrics.Metrics
}

// NewService builds the lookup service. cache may be nil.
func NewService(directory Directory, cache Cache, m *metrics.Metrics) *Service {
	return &Service{directory: directory, cache: cache, metrics: m}
}

// Lookup returns the contact with URN tel:<msisdn>, or nil when there is none.
func (s *Service) Lookup(ctx context.Context, msisdn string) (*models.Contact, error) {
	if s.cache != nil {
		contact, ok, err := s.cache.GetContact(ctx, msisdn)
		if err == nil && ok {
			return contact, nil
		}
	}

	contact, err := s.directory.GetContactByURN(ctx, "tel:"+msisdn)
	if err != nil {
		s.metrics.IncrementRemoteCallErrors("rapidpro")
		util.Error("Contact lookup failed",
			util.MSISDN("msisdn", msisdn),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrContactLookupFailed, err)
	}

	if contact != nil && s.cache != nil {
		_ = s.cache.SetContact(ctx, msisdn, contact)
	}
	return contact, nil
}

// InGroups reports whether contact belongs to any of the named groups. A nil
// contact belongs to none.
func InGroups(contact *models.Contact, names ...string) bool {
	if contact == nil {
		return false
	}
	for _, g := range contact.Groups {
		for _, name := range names {
			if g.Name == name {
				return true
			}
		}
	}
	return false
}

func IsRegistered(contact *models.Contact) bool {
	return InGroups(contact, DeliveryGroups...)
}

func IsOptedOut(contact *models.Contact) bool {
	return InGroups(contact, GroupOptedOut)
}
