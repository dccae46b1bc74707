// Package msisdn parses user-entered phone numbers into E.164 form.
package msisdn

import (
	"errors"
	"regexp"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers entered without a country code.
const DefaultRegion = "ZA"

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrInvalidURN         = errors.New("invalid urn")
)

var urnPattern = regexp.MustCompile(`^(.+):(.+)$`)

// Normalize parses raw in the ZA region and returns it in E.164, e.g.
// "0820001001" becomes "+27820001001".
func Normalize(raw string) (string, error) {
	num, err := parse(raw)
	if err != nil {
		return "", err
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Validate reports whether raw is a possible and valid number.
func Validate(raw string) error {
	_, err := parse(raw)
	return err
}

// FromURN extracts the path of a "scheme:path" URN and normalizes it.
func FromURN(urn string) (string, error) {
	m := urnPattern.FindStringSubmatch(urn)
	if m == nil {
		return "", ErrInvalidURN
	}
	return Normalize(m[2])
}

func parse(raw string) (*phonenumbers.PhoneNumber, error) {
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return nil, ErrInvalidPhoneNumber
	}
	if !phonenumbers.IsPossibleNumber(num) || !phonenumbers.IsValidNumber(num) {
		return nil, ErrInvalidPhoneNumber
	}
	return num, nil
}
