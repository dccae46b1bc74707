// Package openhim talks to the health information exchange (OpenHIM/Jembi):
// the facility registry lookup and the NurseConnect subscription endpoint.
package openhim

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

const userAgent = "NurseConnectRegistration"

var (
	ErrRequestFailed     = errors.New("openhim request failed")
	ErrMalformedResponse = errors.New("openhim returned a malformed response")
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client defines the calls made against the exchange.
type Client interface {
	CheckFacility(ctx context.Context, code string) (*FacilityCheck, error)
	NotifyRegistration(ctx context.Context, sub Subscription) error
}

// FacilityCheck is the NCfacilityCheck response. Height is the row count and
// the third column of each row holds the facility name.
type FacilityCheck struct {
	Height int             `json:"height"`
	Rows   [][]interface{} `json:"rows"`
}

// FacilityName returns the name in the single matching row, if there is
// exactly one.
func (f *FacilityCheck) FacilityName() (string, bool) {
	if f.Height != 1 || len(f.Rows) < 1 || len(f.Rows[0]) < 3 {
		return "", false
	}
	name, ok := f.Rows[0][2].(string)
	return name, ok
}

type clientImpl struct {
	baseURL  *url.URL
	username string
	password string
	timeout  time.Duration
	http     HTTPDoer
}

// NewClient builds a client for cfg. A nil doer uses a plain http.Client; the
// per-call timeout comes from cfg.Timeout.
func NewClient(cfg config.OpenHIMConfig, doer HTTPDoer) (Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid OPENHIM_URL: %w", err)
	}
	if doer == nil {
		doer = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &clientImpl{
		baseURL:  base,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  timeout,
		http:     doer,
	}, nil
}

func (c *clientImpl) endpoint(path string) *url.URL {
	return c.baseURL.ResolveReference(&url.URL{Path: path})
}

func (c *clientImpl) CheckFacility(ctx context.Context, code string) (*FacilityCheck, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.endpoint("NCfacilityCheck")
	q := u.Query()
	q.Set("criteria", "value:"+code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var check FacilityCheck
	if err := json.Unmarshal(body, &check); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &check, nil
}

func (c *clientImpl) NotifyRegistration(ctx context.Context, sub Subscription) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("error encoding subscription: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("nc/subscription").String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return err
	}

	util.Info("Registration sent to exchange",
		util.MSISDN("msisdn", sub.CMSISDN),
		util.String("faccode", sub.FacCode),
		util.String("eid", sub.EID))
	return nil
}

func (c *clientImpl) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		util.Warn("OpenHIM returned an error status",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrRequestFailed, req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}

// Subscription is the fixed-shape record posted to nc/subscription.
type Subscription struct {
	MHA     int     `json:"mha"`
	SWT     int     `json:"swt"`
	Type    int     `json:"type"`
	DMSISDN string  `json:"dmsisdn"`
	CMSISDN string  `json:"cmsisdn"`
	RMSISDN *string `json:"rmsisdn"`
	FacCode string  `json:"faccode"`
	ID      string  `json:"id"`
	DOB     *string `json:"dob"`
	Persal  *string `json:"persal"`
	SANC    *string `json:"sanc"`
	EncDate string  `json:"encdate"`
	SID     string  `json:"sid,omitempty"`
	EID     string  `json:"eid,omitempty"`
}

// EncDateFormat is YYYYMMDDHHMMSS in UTC.
const EncDateFormat = "20060102150405"

// NewSubscription maps a registration onto the exchange record.
func NewSubscription(p *models.RegistrationPayload) Subscription {
	swt := 1
	if p.Channel == models.ChannelWhatsApp {
		swt = 7
	}
	return Subscription{
		MHA:     1,
		SWT:     swt,
		Type:    7,
		DMSISDN: p.RegisteredBy(),
		CMSISDN: p.MSISDN,
		FacCode: p.ClinicCode,
		ID:      strings.TrimPrefix(p.MSISDN, "+") + "^^^ZAF^TEL",
		Persal:  p.Persal,
		SANC:    p.Sanc,
		EncDate: p.Timestamp.UTC().Format(EncDateFormat),
		SID:     p.ContactUUID,
		EID:     p.ID,
	}
}
