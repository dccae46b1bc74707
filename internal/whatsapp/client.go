// Package whatsapp checks whether an MSISDN can receive WhatsApp messages via
// the WhatsApp Business API contacts endpoint.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nurseconnect-registration/internal/config"
)

var (
	// ErrAddressNotFound means the number is not on WhatsApp. It is a normal
	// negative answer, not a failure.
	ErrAddressNotFound = errors.New("whatsapp address not found")
	ErrRequestFailed   = errors.New("whatsapp request failed")
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client resolves an MSISDN to its WhatsApp id.
type Client interface {
	GetAddress(ctx context.Context, msisdn string) (string, error)
}

type clientImpl struct {
	baseURL string
	token   string
	timeout time.Duration
	http    HTTPDoer
}

func NewClient(cfg config.WhatsAppConfig, doer HTTPDoer) Client {
	if doer == nil {
		doer = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &clientImpl{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http:    doer,
	}
}

type contactsRequest struct {
	Blocking string   `json:"blocking"`
	Contacts []string `json:"contacts"`
}

type contactsResponse struct {
	Contacts []struct {
		Input  string `json:"input"`
		Status string `json:"status"`
		WAID   string `json:"wa_id"`
	} `json:"contacts"`
}

func (c *clientImpl) GetAddress(ctx context.Context, msisdn string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(contactsRequest{Blocking: "wait", Contacts: []string{msisdn}})
	if err != nil {
		return "", fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/contacts", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: error reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var res contactsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("%w: error parsing response: %v", ErrRequestFailed, err)
	}

	for _, contact := range res.Contacts {
		if contact.Status == "valid" && contact.WAID != "" {
			return contact.WAID, nil
		}
	}
	return "", ErrAddressNotFound
}
