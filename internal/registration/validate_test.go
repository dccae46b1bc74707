package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDetails(t *testing.T) {
	details, errs := ValidateDetails(DetailsInput{
		MSISDN: "0820001001", ClinicCode: " 123456 ", Consent: true, TermsAccepted: true,
	})
	assert.True(t, errs.Empty())
	assert.Equal(t, "+27820001001", details.MSISDN)
	assert.Equal(t, "123456", details.ClinicCode)
}

func TestValidateDetailsErrors(t *testing.T) {
	cases := []struct {
		name  string
		in    DetailsInput
		field string
		msg   string
	}{
		{"empty msisdn", DetailsInput{ClinicCode: "123456", Consent: true, TermsAccepted: true}, FieldMSISDN, MsgInvalidPhoneNumber},
		{"short msisdn", DetailsInput{MSISDN: "08200", ClinicCode: "123456", Consent: true, TermsAccepted: true}, FieldMSISDN, MsgInvalidPhoneNumber},
		{"short code", DetailsInput{MSISDN: "0820001001", ClinicCode: "12345", Consent: true, TermsAccepted: true}, FieldClinicCode, MsgUnknownClinicCode},
		{"letters in code", DetailsInput{MSISDN: "0820001001", ClinicCode: "12345a", Consent: true, TermsAccepted: true}, FieldClinicCode, MsgUnknownClinicCode},
		{"no consent", DetailsInput{MSISDN: "0820001001", ClinicCode: "123456", TermsAccepted: true}, FieldConsent, MsgConsentRequired},
		{"no terms", DetailsInput{MSISDN: "0820001001", ClinicCode: "123456", Consent: true}, FieldTerms, MsgTermsRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := ValidateDetails(tc.in)
			assert.Len(t, errs, 1)
			assert.Equal(t, []string{tc.msg}, errs[tc.field])
		})
	}
}
