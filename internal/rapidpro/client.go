// Package rapidpro is a minimal client for the RapidPro v2 REST API.
package rapidpro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/util"
)

// ErrRequestFailed wraps transport errors, non-2xx responses and bodies that
// do not decode.
var ErrRequestFailed = errors.New("rapidpro request failed")

// maxPages bounds flow listing so a misbehaving "next" link cannot loop forever.
const maxPages = 50

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client defines the RapidPro calls used by registration.
type Client interface {
	GetContactByURN(ctx context.Context, urn string) (*models.Contact, error)
	CreateContact(ctx context.Context, urns []string, fields map[string]string) (*models.Contact, error)
	UpdateContact(ctx context.Context, uuid string, fields map[string]string) (*models.Contact, error)
	ListFlows(ctx context.Context) ([]models.Flow, error)
	StartFlow(ctx context.Context, flowUUID string, contactUUIDs []string) error
}

type clientImpl struct {
	baseURL string
	token   string
	timeout time.Duration
	http    HTTPDoer
}

func NewClient(cfg config.RapidProConfig, doer HTTPDoer) Client {
	if doer == nil {
		doer = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &clientImpl{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http:    doer,
	}
}

type page[T any] struct {
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

type contactWrite struct {
	URNs   []string          `json:"urns,omitempty"`
	Fields map[string]string `json:"fields"`
}

func (c *clientImpl) GetContactByURN(ctx context.Context, urn string) (*models.Contact, error) {
	q := url.Values{}
	q.Set("urn", urn)

	var res page[models.Contact]
	if err := c.call(ctx, http.MethodGet, c.baseURL+"/api/v2/contacts.json?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	return &res.Results[0], nil
}

func (c *clientImpl) CreateContact(ctx context.Context, urns []string, fields map[string]string) (*models.Contact, error) {
	var contact models.Contact
	body := contactWrite{URNs: urns, Fields: fields}
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/api/v2/contacts.json", body, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (c *clientImpl) UpdateContact(ctx context.Context, uuid string, fields map[string]string) (*models.Contact, error) {
	q := url.Values{}
	q.Set("uuid", uuid)

	var contact models.Contact
	body := contactWrite{Fields: fields}
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/api/v2/contacts.json?"+q.Encode(), body, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (c *clientImpl) ListFlows(ctx context.Context) ([]models.Flow, error) {
	var flows []models.Flow
	next := c.baseURL + "/api/v2/flows.json"
	for i := 0; next != "" && i < maxPages; i++ {
		var res page[models.Flow]
		if err := c.call(ctx, http.MethodGet, next, nil, &res); err != nil {
			return nil, err
		}
		flows = append(flows, res.Results...)
		next = ""
		if res.Next != nil {
			next = *res.Next
		}
	}
	return flows, nil
}

func (c *clientImpl) StartFlow(ctx context.Context, flowUUID string, contactUUIDs []string) error {
	body := map[string]interface{}{
		"flow":     flowUUID,
		"contacts": contactUUIDs,
	}
	return c.call(ctx, http.MethodPost, c.baseURL+"/api/v2/flow_starts.json", body, nil)
}

func (c *clientImpl) call(ctx context.Context, method, endpoint string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: error reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		util.Warn("RapidPro returned an error status",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s %s returned %d", ErrRequestFailed, method, req.URL.Path, resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: error parsing response: %v", ErrRequestFailed, err)
	}
	return nil
}
