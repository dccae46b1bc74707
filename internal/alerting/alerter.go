// Package alerting raises operator-facing alerts. Users never see these.
package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/util"
)

const (
	KindJembiErrorLimit    = "jembi_api_error_limit"
	KindWhatsAppErrorLimit = "whatsapp_api_error_limit"
	KindJobFailed          = "job_permanently_failed"
)

var messages = map[string]string{
	KindJembiErrorLimit:    "Jembi API error limit reached",
	KindWhatsAppErrorLimit: "WhatsApp API error limit reached",
	KindJobFailed:          "Registration job permanently failed",
}

type Alert struct {
	Kind      string
	SessionID string
	MSISDN    string
	Err       error
	Details   map[string]interface{}
}

// Indexer stores alert documents. *client.ESClient satisfies it.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, document interface{}) error
}

type document struct {
	Timestamp time.Time              `json:"@timestamp"`
	Kind      string                 `json:"kind"`
	Message   string                 `json:"message"`
	SessionID string                 `json:"session_id,omitempty"`
	MSISDN    string                 `json:"msisdn,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type Alerter struct {
	indexer Indexer
	index   string
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAlerter builds an alerter. A nil indexer skips Elasticsearch.
func NewAlerter(indexer Indexer, index string, m *metrics.Metrics) *Alerter {
	return &Alerter{indexer: indexer, index: index, metrics: m, now: time.Now}
}

// Message returns the log message used for kind.
func Message(kind string) string {
	if msg, ok := messages[kind]; ok {
		return msg
	}
	return kind
}

// Alert logs at error level, counts the alert and indexes it. Indexing
// failures are logged and otherwise ignored.
func (a *Alerter) Alert(ctx context.Context, alert Alert) {
	msg := Message(alert.Kind)

	fields := []zap.Field{zap.String("alert_kind", alert.Kind)}
	if alert.SessionID != "" {
		fields = append(fields, zap.String("session_id", alert.SessionID))
	}
	if alert.MSISDN != "" {
		fields = append(fields, util.MSISDN("msisdn", alert.MSISDN))
	}
	if alert.Err != nil {
		fields = append(fields, zap.Error(alert.Err))
	}
	if len(alert.Details) > 0 {
		fields = append(fields, zap.Any("details", alert.Details))
	}
	util.Error(msg, fields...)

	a.metrics.IncrementAlerts(alert.Kind)

	if a.indexer == nil {
		return
	}

	doc := document{
		Timestamp: a.now().UTC(),
		Kind:      alert.Kind,
		Message:   msg,
		SessionID: alert.SessionID,
		Details:   alert.Details,
	}
	if alert.MSISDN != "" {
		doc.MSISDN = util.MaskMSISDN(alert.MSISDN)
	}
	if alert.Err != nil {
		doc.Error = alert.Err.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.indexer.IndexDocument(ctx, a.index, uuid.NewString(), doc); err != nil {
		util.Warn("Failed to index alert", zap.String("alert_kind", alert.Kind), zap.Error(err))
	}
}
