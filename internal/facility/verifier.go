// Package facility verifies 6-digit clinic codes against the facility registry.
package facility

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/openhim"
	"nurseconnect-registration/internal/util"
)

const codeLength = 6

var (
	ErrInvalidFacilityCode      = errors.New("facility code must be 6 digits")
	ErrFacilityCodeBlocked      = errors.New("facility code is blocked")
	ErrFacilityCodeNotFound     = errors.New("facility code not found")
	ErrFacilityCodeLookupFailed = errors.New("facility code lookup failed")
)

// Registry is the remote facility lookup. openhim.Client satisfies it.
type Registry interface {
	CheckFacility(ctx context.Context, code string) (*openhim.FacilityCheck, error)
}

type Facility struct {
	Code string
	Name string
}

type Verifier struct {
	registry  Registry
	blacklist map[string]struct{}
	metrics   *metrics.Metrics
}

func NewVerifier(registry Registry, blacklist []string, m *metrics.Metrics) *Verifier {
	bl := make(map[string]struct{}, len(blacklist))
	for _, code := range blacklist {
		bl[code] = struct{}{}
	}
	return &Verifier{registry: registry, blacklist: bl, metrics: m}
}

// ValidateCode checks the shape of a facility code without any I/O.
func ValidateCode(code string) error {
	if len(code) != codeLength {
		return ErrInvalidFacilityCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidFacilityCode
		}
	}
	return nil
}

// Blocked reports whether code is on the configured blacklist.
func (v *Verifier) Blocked(code string) bool {
	_, ok := v.blacklist[code]
	return ok
}

// Verify checks shape and blacklist locally, then asks the registry. Only a
// registry failure yields ErrFacilityCodeLookupFailed; zero or several rows
// yield ErrFacilityCodeNotFound.
func (v *Verifier) Verify(ctx context.Context, code string) (*Facility, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if v.Blocked(code) {
		return nil, ErrFacilityCodeBlocked
	}

	check, err := v.registry.CheckFacility(ctx, code)
	if err != nil {
		v.metrics.IncrementRemoteCallErrors("openhim")
		util.Warn("Facility lookup failed",
			zap.String("clinic_code", code),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFacilityCodeLookupFailed, err)
	}

	name, ok := check.FacilityName()
	if !ok {
		util.Debug("Facility code not found",
			zap.String("clinic_code", code),
			zap.Int("height", check.Height))
		return nil, ErrFacilityCodeNotFound
	}

	return &Facility{Code: code, Name: name}, nil
}
