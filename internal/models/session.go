package models

// RegistrationDetails is the validated first page of the wizard.
type RegistrationDetails struct {
	MSISDN        string `json:"msisdn"`
	ClinicCode    string `json:"clinic_code"`
	Consent       bool   `json:"consent"`
	TermsAccepted bool   `json:"terms_accepted"`
}

// FlashMessage is shown once on the next render of the page owning Field.
type FlashMessage struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

// Session is the server-side state of one registration wizard.
type Session struct {
	ID string `json:"-"`

	ReferredBy          string               `json:"referred_by,omitempty"`
	RegistrationDetails *RegistrationDetails `json:"registration_details,omitempty"`
	Contact             *Contact             `json:"contact,omitempty"`
	ClinicName          string               `json:"clinic_name,omitempty"`
	ClinicCode          string               `json:"clinic_code,omitempty"`
	Channel             string               `json:"channel,omitempty"`
	WhatsAppAPIErrors   int                  `json:"whatsapp_api_errors,omitempty"`
	JembiAPIErrors      int                  `json:"jembi_api_errors,omitempty"`
	Messages            []FlashMessage       `json:"messages,omitempty"`
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// MSISDN returns the registrant's number once the details page has passed.
func (s *Session) MSISDN() string {
	if s.RegistrationDetails == nil {
		return ""
	}
	return s.RegistrationDetails.MSISDN
}

func (s *Session) HasMSISDN() bool {
	return s.MSISDN() != ""
}

func (s *Session) HasClinicName() bool {
	return s.ClinicName != ""
}

func (s *Session) HasChannel() bool {
	return s.Channel != ""
}

func (s *Session) AddMessage(field, text string) {
	s.Messages = append(s.Messages, FlashMessage{Field: field, Text: text})
}

// PopMessages returns and removes every queued message.
func (s *Session) PopMessages() []FlashMessage {
	msgs := s.Messages
	s.Messages = nil
	return msgs
}

// Clear drops every field but keeps the session id.
func (s *Session) Clear() {
	*s = Session{ID: s.ID}
}

// IsEmpty reports whether the session carries no state worth persisting.
func (s *Session) IsEmpty() bool {
	return s.ReferredBy == "" &&
		s.RegistrationDetails == nil &&
		s.Contact == nil &&
		s.ClinicName == "" &&
		s.ClinicCode == "" &&
		s.Channel == "" &&
		s.WhatsAppAPIErrors == 0 &&
		s.JembiAPIErrors == 0 &&
		len(s.Messages) == 0
}
