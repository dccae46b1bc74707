// Package jobs runs the background registration jobs over Kafka. A
// registration first upserts the directory contact, then notifies the
// health-information exchange. Delivery is at least once.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"nurseconnect-registration/internal/models"
)

const (
	TaskDirectoryUpsert = "directory_upsert"
	TaskExchangeNotify  = "exchange_notify"
)

// Envelope is one job message. Attempt counts retries already made.
type Envelope struct {
	ID        string                     `json:"id"`
	Task      string                     `json:"task"`
	Attempt   int                        `json:"attempt"`
	NotBefore time.Time                  `json:"not_before,omitempty"`
	Payload   models.RegistrationPayload `json:"payload"`
}

func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", e.ID, err)
	}
	return data, nil
}

func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	if env.Task == "" {
		return nil, fmt.Errorf("failed to decode job %s: missing task", env.ID)
	}
	return &env, nil
}
