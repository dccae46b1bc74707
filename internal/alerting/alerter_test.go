package alerting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nurseconnect-registration/internal/util"
)

type recordingIndexer struct {
	index string
	docs  []interface{}
	err   error
}

func (r *recordingIndexer) IndexDocument(ctx context.Context, index, id string, document interface{}) error {
	r.index = index
	r.docs = append(r.docs, document)
	return r.err
}

func TestAlertLogsAndIndexes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	util.SetLogger(zap.New(core))
	util.SetRedactPII(true)
	defer util.SetRedactPII(false)

	idx := &recordingIndexer{}
	a := NewAlerter(idx, "nurseconnect-alerts", nil)

	a.Alert(context.Background(), Alert{
		Kind:      KindJembiErrorLimit,
		SessionID: "sid",
		MSISDN:    "+27820001001",
		Err:       errors.New("boom"),
	})

	entries := logs.FilterMessage("Jembi API error limit reached").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "+278*****001", entries[0].ContextMap()["msisdn"])

	require.Len(t, idx.docs, 1)
	assert.Equal(t, "nurseconnect-alerts", idx.index)
	doc := idx.docs[0].(document)
	assert.Equal(t, KindJembiErrorLimit, doc.Kind)
	assert.Equal(t, "boom", doc.Error)
	assert.Equal(t, "+278*****001", doc.MSISDN)
}

func TestAlertWithoutIndexer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	util.SetLogger(zap.New(core))

	NewAlerter(nil, "", nil).Alert(context.Background(), Alert{Kind: KindWhatsAppErrorLimit})
	assert.Equal(t, 1, logs.FilterMessage("WhatsApp API error limit reached").Len())
}

func TestIndexFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	util.SetLogger(zap.New(core))

	NewAlerter(&recordingIndexer{err: errors.New("es down")}, "idx", nil).
		Alert(context.Background(), Alert{Kind: KindJobFailed})
	assert.Equal(t, 1, logs.FilterMessage("Failed to index alert").Len())
}
