package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

var ErrChannelProbeFailed = errors.New("channel probe failed")

// Prober picks the delivery channel for an MSISDN.
type Prober struct {
	client  Client
	metrics *metrics.Metrics
}

func NewProber(client Client, m *metrics.Metrics) *Prober {
	return &Prober{client: client, metrics: m}
}

// Channel returns models.ChannelWhatsApp when the number is on WhatsApp and
// models.ChannelSMS when it is not. Only a failed check returns an error.
func (p *Prober) Channel(ctx context.Context, msisdn string) (string, error) {
	_, err := p.client.GetAddress(ctx, msisdn)
	switch {
	case err == nil:
		return models.ChannelWhatsApp, nil
	case errors.Is(err, ErrAddressNotFound):
		return models.ChannelSMS, nil
	default:
		p.metrics.IncrementRemoteCallErrors("whatsapp")
		util.Warn("WhatsApp contact check failed",
			util.MSISDN("msisdn", msisdn),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrChannelProbeFailed, err)
	}
}
