package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/openhim"
	"nurseconnect-registration/internal/util"
)

var ErrFlowNotFound = errors.New("post registration flow not found")

// Handler runs one job attempt and returns the payload for the next stage.
type Handler interface {
	Handle(ctx context.Context, p *models.RegistrationPayload) (*models.RegistrationPayload, error)
}

// ContactDirectory is the part of rapidpro.Client the upsert needs.
type ContactDirectory interface {
	GetContactByURN(ctx context.Context, urn string) (*models.Contact, error)
	CreateContact(ctx context.Context, urns []string, fields map[string]string) (*models.Contact, error)
	UpdateContact(ctx context.Context, uuid string, fields map[string]string) (*models.Contact, error)
	ListFlows(ctx context.Context) ([]models.Flow, error)
	StartFlow(ctx context.Context, flowUUID string, contactUUIDs []string) error
}

// ExchangeNotifier is the part of openhim.Client the notification needs.
type ExchangeNotifier interface {
	NotifyRegistration(ctx context.Context, sub openhim.Subscription) error
}

// DirectoryUpsert creates or updates the registrant's directory contact and
// starts the post registration flow. It looks the contact up again on every
// attempt so reruns update rather than duplicate.
type DirectoryUpsert struct {
	directory ContactDirectory
	flowName  string
	regSource string
}

func NewDirectoryUpsert(directory ContactDirectory, flowName, regSource string) *DirectoryUpsert {
	return &DirectoryUpsert{directory: directory, flowName: flowName, regSource: regSource}
}

// ContactFields are the directory fields written for a registration.
func (h *DirectoryUpsert) ContactFields(p *models.RegistrationPayload) map[string]string {
	return map[string]string{
		"preferred_channel": p.Channel,
		"registered_by":     p.RegisteredBy(),
		"facility_code":     p.ClinicCode,
		"registration_date": p.Timestamp.UTC().Format(time.RFC3339),
		"reg_source":        h.regSource,
	}
}

// ContactURNs are the URNs of a newly created contact.
func ContactURNs(p *models.RegistrationPayload) []string {
	urns := []string{"tel:" + p.MSISDN}
	if p.Channel == models.ChannelWhatsApp {
		urns = append(urns, "whatsapp:"+strings.TrimPrefix(p.MSISDN, "+"))
	}
	return urns
}

func (h *DirectoryUpsert) Handle(ctx context.Context, p *models.RegistrationPayload) (*models.RegistrationPayload, error) {
	fields := h.ContactFields(p)

	contact, err := h.directory.GetContactByURN(ctx, "tel:"+p.MSISDN)
	if err != nil {
		return nil, fmt.Errorf("failed to look up contact: %w", err)
	}

	if contact != nil {
		contact, err = h.directory.UpdateContact(ctx, contact.UUID, fields)
		if err != nil {
			return nil, fmt.Errorf("failed to update contact: %w", err)
		}
	} else {
		contact, err = h.directory.CreateContact(ctx, ContactURNs(p), fields)
		if err != nil {
			return nil, fmt.Errorf("failed to create contact: %w", err)
		}
	}

	flow, err := h.findFlow(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.directory.StartFlow(ctx, flow.UUID, []string{contact.UUID}); err != nil {
		return nil, fmt.Errorf("failed to start flow: %w", err)
	}

	util.Info("Directory contact upserted",
		zap.String("registration_id", p.ID),
		zap.String("contact_uuid", contact.UUID))

	next := *p
	next.ContactUUID = contact.UUID
	return &next, nil
}

func (h *DirectoryUpsert) findFlow(ctx context.Context) (*models.Flow, error) {
	flows, err := h.directory.ListFlows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	for i := range flows {
		if strings.EqualFold(flows[i].Name, h.flowName) {
			return &flows[i], nil
		}
	}
	return nil, Permanent(fmt.Errorf("%w: %q", ErrFlowNotFound, h.flowName))
}

// ExchangeNotification posts the registration to the health-information
// exchange. Any non-2xx is a failed attempt.
type ExchangeNotification struct {
	exchange ExchangeNotifier
}

func NewExchangeNotification(exchange ExchangeNotifier) *ExchangeNotification {
	return &ExchangeNotification{exchange: exchange}
}

func (h *ExchangeNotification) Handle(ctx context.Context, p *models.RegistrationPayload) (*models.RegistrationPayload, error) {
	if err := h.exchange.NotifyRegistration(ctx, openhim.NewSubscription(p)); err != nil {
		return nil, fmt.Errorf("failed to notify exchange: %w", err)
	}
	util.Info("Exchange notified", zap.String("registration_id", p.ID))
	return p, nil
}
