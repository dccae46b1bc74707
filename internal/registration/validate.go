package registration

import (
	"strings"

	"nurseconnect-registration/internal/facility"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/msisdn"
)

// Form fields. NonFieldErrors holds messages not tied to one input.
const (
	FieldMSISDN         = "msisdn"
	FieldClinicCode     = "clinic_code"
	FieldConsent        = "consent"
	FieldTerms          = "terms_and_conditions"
	FieldNonFieldErrors = "non_field_errors"
)

const (
	MsgInvalidPhoneNumber = "Sorry, the number you entered is invalid. Please enter a valid 10-digit cellphone number, eg. 0762564722"
	MsgAlreadyRegistered  = "Sorry, but this phone number is already registered. Please enter a new cellphone number."
	MsgUnknownClinicCode  = "Sorry we don't recognise that code. Please enter the 6-digit facility code again, eg. 535970"
	MsgBlockedClinicCode  = "Sorry, but you can’t sign up for NurseConnect with this clinic code. It’s blocked due to fraudulent activity. You can register using a different clinic code."
	MsgConsentRequired    = `We can't send NurseConnect messages to this number unless "Yes" is selected`
	MsgTermsRequired      = "You must agree to the terms and conditions before registering"
	MsgCheckFailed        = "There was an error checking your details. Please try again."
	MsgRegistrationFailed = "There was an error creating your registration. Please try again."
)

// DetailsInput is the raw details form.
type DetailsInput struct {
	MSISDN        string
	ClinicCode    string
	Consent       bool
	TermsAccepted bool
}

// FieldErrors maps a form field to its messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// ValidateDetails checks the shape of the details form without any I/O and
// returns the normalized details.
func ValidateDetails(in DetailsInput) (*models.RegistrationDetails, FieldErrors) {
	errs := FieldErrors{}
	details := &models.RegistrationDetails{
		ClinicCode:    strings.TrimSpace(in.ClinicCode),
		Consent:       in.Consent,
		TermsAccepted: in.TermsAccepted,
	}

	if normalized, err := msisdn.Normalize(in.MSISDN); err != nil {
		errs.Add(FieldMSISDN, MsgInvalidPhoneNumber)
	} else {
		details.MSISDN = normalized
	}

	if err := facility.ValidateCode(details.ClinicCode); err != nil {
		errs.Add(FieldClinicCode, MsgUnknownClinicCode)
	}
	if !in.Consent {
		errs.Add(FieldConsent, MsgConsentRequired)
	}
	if !in.TermsAccepted {
		errs.Add(FieldTerms, MsgTermsRequired)
	}

	return details, errs
}
