// Package referral manages referral links: one per MSISDN, addressed by a
// short hashids code.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

var (
	ErrNotFound    = errors.New("referral link not found")
	ErrDuplicate   = errors.New("referral link already exists for msisdn")
	ErrInvalidCode = errors.New("invalid referral code")
)

// Repository persists referral links. Create must return ErrDuplicate when
// the MSISDN already has a link.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.ReferralLink, error)
	GetByMSISDN(ctx context.Context, msisdn string) (*models.ReferralLink, error)
	Create(ctx context.Context, msisdn string) (*models.ReferralLink, error)
	HealthCheck(ctx context.Context) error
}

type Service struct {
	repo    Repository
	codec   *Codec
	metrics *metrics.Metrics
}

func NewService(repo Repository, codec *Codec, m *metrics.Metrics) *Service {
	return &Service{repo: repo, codec: codec, metrics: m}
}

// CreateOrGet returns the link for msisdn, creating it if needed. A
// concurrent create for the same MSISDN is resolved by reading the winner.
func (s *Service) CreateOrGet(ctx context.Context, msisdn string) (*models.ReferralLink, error) {
	link, err := s.repo.GetByMSISDN(ctx, msisdn)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}

	link, err = s.repo.Create(ctx, msisdn)
	if errors.Is(err, ErrDuplicate) {
		link, err = s.repo.GetByMSISDN(ctx, msisdn)
		if err != nil {
			return nil, fmt.Errorf("failed to get referral link after conflict: %w", err)
		}
		return link, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create referral link: %w", err)
	}

	s.metrics.IncrementReferralLinksCreated()
	util.Info("Referral link created",
		util.MSISDN("msisdn", msisdn),
		zap.Int64("id", link.ID))
	return link, nil
}

// Resolve maps a code back to its link. Any code that does not decode, or
// decodes to an unknown id, yields ErrNotFound.
func (s *Service) Resolve(ctx context.Context, code string) (*models.ReferralLink, error) {
	id, err := s.codec.Decode(code)
	if err != nil {
		return nil, ErrNotFound
	}
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	return link, nil
}

func (s *Service) Code(link *models.ReferralLink) (string, error) {
	return s.codec.Encode(link.ID)
}

// BuildLink returns the shareable URL "<baseURL>/<code>".
func (s *Service) BuildLink(baseURL string, link *models.ReferralLink) (string, error) {
	code, err := s.Code(link)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(baseURL, "/") + "/" + code, nil
}

// Describe renders a link as "<msisdn> <<code>>" for logs and admin output.
func (s *Service) Describe(link *models.ReferralLink) string {
	code, err := s.Code(link)
	if err != nil {
		code = "?"
	}
	return fmt.Sprintf("%s <%s>", link.MSISDN, code)
}

func (s *Service) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
