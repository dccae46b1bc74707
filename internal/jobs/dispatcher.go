package jobs

import (
	"context"

	"github.com/google/uuid"

	"nurseconnect-registration/internal/models"
)

// Dispatcher starts the job chain for a confirmed registration.
type Dispatcher struct {
	queue Queue
}

func NewDispatcher(queue Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Dispatch queues the directory upsert. The exchange notification follows
// once it succeeds.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *models.RegistrationPayload) error {
	return d.queue.Enqueue(ctx, &Envelope{
		ID:      uuid.NewString(),
		Task:    TaskDirectoryUpsert,
		Payload: *payload,
	})
}
