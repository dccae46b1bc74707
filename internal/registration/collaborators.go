package registration

import (
	"context"

	"nurseconnect-registration/internal/alerting"
	"nurseconnect-registration/internal/analytics"
	"nurseconnect-registration/internal/facility"
	"nurseconnect-registration/internal/models"
)

// ContactLookup finds the directory contact for an MSISDN.
type ContactLookup interface {
	Lookup(ctx context.Context, msisdn string) (*models.Contact, error)
}

// FacilityVerifier checks a clinic code against the facility registry.
type FacilityVerifier interface {
	Verify(ctx context.Context, code string) (*facility.Facility, error)
}

// ChannelProber picks WhatsApp or SMS for an MSISDN.
type ChannelProber interface {
	Channel(ctx context.Context, msisdn string) (string, error)
}

// ReferralRegistry resolves incoming referral codes and issues links.
type ReferralRegistry interface {
	Resolve(ctx context.Context, code string) (*models.ReferralLink, error)
	CreateOrGet(ctx context.Context, msisdn string) (*models.ReferralLink, error)
	BuildLink(baseURL string, link *models.ReferralLink) (string, error)
}

// Dispatcher hands a confirmed registration to the background jobs. It
// returns once the work is queued, not when it is done.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *models.RegistrationPayload) error
}

type Alerter interface {
	Alert(ctx context.Context, alert alerting.Alert)
}

type EventRecorder interface {
	Record(ctx context.Context, e analytics.Event)
}

// Store persists sessions between requests.
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Delete(ctx context.Context, sessionID string) error
}
