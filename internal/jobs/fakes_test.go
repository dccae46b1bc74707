package jobs

import (
	"context"
	"strings"
	"sync"

	"nurseconnect-registration/internal/models"
)

type memoryQueue struct {
	mu   sync.Mutex
	jobs []*Envelope
	err  error
}

func (q *memoryQueue) Enqueue(ctx context.Context, env *Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	cp := *env
	q.jobs = append(q.jobs, &cp)
	return nil
}

// memoryDirectory keeps contacts keyed by uuid and matches on URNs.
type memoryDirectory struct {
	mu       sync.Mutex
	contacts map[string]*models.Contact
	flows    []models.Flow
	started  map[string]int
	nextID   int
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{
		contacts: make(map[string]*models.Contact),
		flows:    []models.Flow{{UUID: "flow-1", Name: "Post Registration"}, {UUID: "flow-2", Name: "Other"}},
		started:  make(map[string]int),
	}
}

func (d *memoryDirectory) GetContactByURN(ctx context.Context, urn string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.contacts {
		for _, u := range c.URNs {
			if u == urn {
				cp := *c
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (d *memoryDirectory) CreateContact(ctx context.Context, urns []string, fields map[string]string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	c := &models.Contact{UUID: "contact-" + strings.Repeat("x", d.nextID), URNs: urns, Fields: copyFields(fields)}
	d.contacts[c.UUID] = c
	cp := *c
	return &cp, nil
}

func (d *memoryDirectory) UpdateContact(ctx context.Context, uuid string, fields map[string]string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.contacts[uuid]
	for k, v := range fields {
		c.Fields[k] = v
	}
	cp := *c
	return &cp, nil
}

func (d *memoryDirectory) ListFlows(ctx context.Context) ([]models.Flow, error) {
	return d.flows, nil
}

func (d *memoryDirectory) StartFlow(ctx context.Context, flowUUID string, contactUUIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range contactUUIDs {
		d.started[flowUUID+"/"+id]++
	}
	return nil
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
