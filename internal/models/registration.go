package models

import "time"

const (
	ChannelWhatsApp = "WhatsApp"
	ChannelSMS      = "SMS"
)

// RegistrationPayload carries a confirmed registration through the
// downstream jobs. ContactUUID is empty until the directory upsert has run.
type RegistrationPayload struct {
	ID             string    `json:"id"`
	MSISDN         string    `json:"msisdn"`
	ReferralMSISDN *string   `json:"referral_msisdn"`
	Channel        string    `json:"channel"`
	ClinicCode     string    `json:"clinic_code"`
	Persal         *string   `json:"persal"`
	Sanc           *string   `json:"sanc"`
	Timestamp      time.Time `json:"timestamp"`
	ContactUUID    string    `json:"contact_uuid,omitempty"`
}

// RegisteredBy is the referring MSISDN, or the registrant's own number when
// nobody referred them.
func (p *RegistrationPayload) RegisteredBy() string {
	if p.ReferralMSISDN != nil && *p.ReferralMSISDN != "" {
		return *p.ReferralMSISDN
	}
	return p.MSISDN
}
