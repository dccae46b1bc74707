// Package analytics records registration funnel events in ClickHouse.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/bucketing"
	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/util"
)

// Funnel events.
const (
	EventDetailsSubmitted    = "details_submitted"
	EventDetailsRejected     = "details_rejected"
	EventOptInConfirmed      = "optin_confirmed"
	EventOptInRejected       = "optin_rejected"
	EventClinicConfirmed     = "clinic_confirmed"
	EventClinicRejected      = "clinic_rejected"
	EventRegistrationQueued  = "registration_queued"
	EventRegistrationSuccess = "registration_success"
	EventJobFailed           = "job_failed"
)

// Schema is the ClickHouse table the recorder writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS registration_events (
    event_time  DateTime64(3, 'UTC'),
    event_date  Date,
    event       LowCardinality(String),
    session_id  String,
    msisdn_hash UInt64,
    detail      String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(event_date)
ORDER BY (event, event_time)`

const insertQuery = `INSERT INTO registration_events (event_time, event_date, event, session_id, msisdn_hash, detail)`

type Event struct {
	Time      time.Time
	Name      string
	SessionID string
	MSISDN    string
	Detail    string
}

// BatchInserter is satisfied by *client.ClickHouseClient.
type BatchInserter interface {
	BatchInsert(ctx context.Context, query string, data [][]interface{}) error
}

// Recorder buffers events and writes them in batches. MSISDNs leave the
// process only as murmur3 hashes.
type Recorder struct {
	inserter  BatchInserter
	bucketing *bucketing.BucketingManager
	batchSize int
	interval  time.Duration

	mu      sync.Mutex
	pending [][]interface{}
	dropped int

	flush chan struct{}
	stop  chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewRecorder builds a recorder. A nil inserter makes every call a no-op.
func NewRecorder(inserter BatchInserter, bm *bucketing.BucketingManager, cfg config.ClickhouseConfig) *Recorder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Recorder{
		inserter:  inserter,
		bucketing: bm,
		batchSize: batchSize,
		interval:  interval,
		flush:     make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.inserter != nil
}

// maxPendingBatches bounds the buffer while ClickHouse is slow or down.
const maxPendingBatches = 10

// Record queues e and wakes the flush loop when the batch is full. It never
// waits on ClickHouse.
func (r *Recorder) Record(_ context.Context, e Event) {
	if !r.Enabled() {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	var hash uint64
	if e.MSISDN != "" {
		hash = r.bucketing.HashMSISDN(e.MSISDN)
	}

	r.mu.Lock()
	if len(r.pending) >= r.batchSize*maxPendingBatches {
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		if dropped == 1 || dropped%r.batchSize == 0 {
			util.Warn("Analytics buffer full, dropping events", zap.Int("dropped", dropped))
		}
		return
	}
	r.pending = append(r.pending, []interface{}{
		e.Time.UTC(), e.Time.UTC(), e.Name, e.SessionID, hash, e.Detail,
	})
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if full {
		select {
		case r.flush <- struct{}{}:
		default:
		}
	}
}

// Flush writes every pending event. On failure the batch is dropped.
func (r *Recorder) Flush(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}

	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.dropped = 0
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.inserter.BatchInsert(ctx, insertQuery, batch); err != nil {
		return err
	}
	util.Debug("Analytics events flushed", zap.Int("count", len(batch)))
	return nil
}

// Start flushes on the configured interval, and whenever a batch fills up,
// until Close.
func (r *Recorder) Start() {
	if !r.Enabled() {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-r.flush:
			case <-r.stop:
				return
			}
			if err := r.Flush(context.Background()); err != nil {
				util.Warn("Failed to flush analytics events", zap.Error(err))
			}
		}
	}()
}

// Close stops the flush loop and writes what is left.
func (r *Recorder) Close(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
	return r.Flush(ctx)
}
