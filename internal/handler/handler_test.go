package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/alerting"
	"nurseconnect-registration/internal/auth"
	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/facility"
	"nurseconnect-registration/internal/hashing"
	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/registration"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func (s *memoryStore) Load(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.sessions[id]
	if !ok {
		return models.NewSession(id), nil
	}
	sess := models.NewSession(id)
	if err := json.Unmarshal(data, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *memoryStore) Save(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.IsEmpty() {
		delete(s.sessions, sess.ID)
		return nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.sessions[sess.ID] = data
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memoryStore) get(t *testing.T, id string) *models.Session {
	sess, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	return sess
}

type fakeContacts struct{}

func (fakeContacts) Lookup(ctx context.Context, msisdn string) (*models.Contact, error) {
	return nil, nil
}

type fakeFacilities struct{}

func (fakeFacilities) Verify(ctx context.Context, code string) (*facility.Facility, error) {
	if code == "123456" {
		return &facility.Facility{Code: code, Name: "Test Clinic"}, nil
	}
	return nil, facility.ErrFacilityCodeNotFound
}

type fakeProber struct{}

func (fakeProber) Channel(ctx context.Context, msisdn string) (string, error) {
	return models.ChannelWhatsApp, nil
}

type fakeReferrals struct {
	fail bool
}

func (f *fakeReferrals) Resolve(ctx context.Context, code string) (*models.ReferralLink, error) {
	if code == "known1" {
		return &models.ReferralLink{ID: 1, MSISDN: "+27820001002"}, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeReferrals) CreateOrGet(ctx context.Context, msisdn string) (*models.ReferralLink, error) {
	if f.fail {
		return nil, errors.New("db down")
	}
	return &models.ReferralLink{ID: 9, MSISDN: msisdn}, nil
}

func (f *fakeReferrals) BuildLink(baseURL string, link *models.ReferralLink) (string, error) {
	return baseURL + "/code09", nil
}

type recordingDispatcher struct {
	payloads []*models.RegistrationPayload
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, p *models.RegistrationPayload) error {
	d.payloads = append(d.payloads, p)
	return nil
}

type testServer struct {
	router     chi.Router
	store      *memoryStore
	dispatcher *recordingDispatcher
	referrals  *fakeReferrals
}

func newTestServer(t *testing.T, opts ...func(*RouterConfig)) *testServer {
	cfg := &config.Config{
		Environment: "development",
		SecretKey:   "test-secret",
		Server:      config.ServerConfig{BaseURL: "https://nurseconnect.example"},
		Session:     config.SessionConfig{CookieName: "sessionid", TTL: time.Hour},
		Hashing:     config.HashingConfig{Argon2MemoryCost: 1024, Argon2TimeCost: 1, Argon2Parallelism: 1},
	}

	store := &memoryStore{sessions: make(map[string][]byte)}
	dispatcher := &recordingDispatcher{}
	referrals := &fakeReferrals{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	wizard := registration.NewWizard(fakeContacts{}, fakeFacilities{}, fakeProber{}, referrals, dispatcher,
		alerting.NewAlerter(nil, "", m), registration.WithMetrics(m))
	renderer, err := NewRenderer()
	require.NoError(t, err)

	hasher := hashing.NewHasher(cfg)
	full, err := hasher.HashToken("full-token")
	require.NoError(t, err)
	limited, err := hasher.HashToken("limited-token")
	require.NoError(t, err)
	authn, err := auth.NewAuthenticator(hasher, []string{
		"rapidpro:" + full.Encode() + ":" + auth.PermAddReferralLink,
		"other:" + limited.Encode(),
	})
	require.NoError(t, err)

	routerCfg := RouterConfig{
		Wizard:         NewWizardHandler(wizard, store, renderer, cfg),
		Referral:       NewReferralHandler(referrals, cfg.Server.BaseURL),
		Auth:           authn,
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: []string{"*"},
		HealthChecks: []HealthCheck{
			{Name: "redis", Check: func(ctx context.Context) error { return nil }},
		},
	}
	for _, opt := range opts {
		opt(&routerCfg)
	}
	router := NewRouter(routerCfg)
	return &testServer{router: router, store: store, dispatcher: dispatcher, referrals: referrals}
}

func (s *testServer) do(t *testing.T, method, target, sessionID string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: sessionID})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sessionid" {
			return c
		}
	}
	return nil
}

const testSessionID = "0b5b6c6e-2f3a-4c55-9d53-7f1f2d4f7a10"

func validDetails() url.Values {
	return url.Values{
		"msisdn":               {"0820001001"},
		"clinic_code":          {"123456"},
		"consent":              {"True"},
		"terms_and_conditions": {"True"},
	}
}

func TestGuardRedirects(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/confirm_clinic", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/confirm_optin", "", nil)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sess := models.NewSession(testSessionID)
	sess.RegistrationDetails = &models.RegistrationDetails{MSISDN: "+27820001001"}
	sess.ClinicName = "Test Clinic"
	require.NoError(t, s.store.Save(context.Background(), sess))

	rec = s.do(t, http.MethodGet, "/success", testSessionID, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/confirm_clinic", rec.Header().Get("Location"))
}

func TestDetailsPageSetsReferral(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/known1", testSessionID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+27820001002", s.store.get(t, testSessionID).ReferredBy)

	rec = s.do(t, http.MethodGet, "/unknown", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="msisdn"`)
}

func TestSubmitDetailsInvalid(t *testing.T) {
	s := newTestServer(t)
	form := validDetails()
	form.Set("msisdn", "abc")
	form.Del("consent")

	rec := s.do(t, http.MethodPost, "/", testSessionID, form)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Sorry, the number you entered is invalid.")
	assert.Contains(t, body, "unless &#34;Yes&#34; is selected")
}

func TestRegistrationFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/", testSessionID, validDetails())
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/confirm_clinic", rec.Header().Get("Location"))

	sess := s.store.get(t, testSessionID)
	assert.Equal(t, "+27820001001", sess.MSISDN())
	assert.Equal(t, "Test Clinic", sess.ClinicName)

	rec = s.do(t, http.MethodGet, "/confirm_clinic", testSessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Test Clinic")

	rec = s.do(t, http.MethodPost, "/confirm_clinic", testSessionID, url.Values{"yes": {"yes"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/success", rec.Header().Get("Location"))
	require.Len(t, s.dispatcher.payloads, 1)
	assert.Equal(t, models.ChannelWhatsApp, s.dispatcher.payloads[0].Channel)

	rec = s.do(t, http.MethodGet, "/success", testSessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://nurseconnect.example/code09")
	assert.Contains(t, rec.Body.String(), "on WhatsApp")

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.MaxAge < 0)
	assert.True(t, s.store.get(t, testSessionID).IsEmpty())
}

func TestRejectClinicReturnsToDetails(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusFound, s.do(t, http.MethodPost, "/", testSessionID, validDetails()).Code)

	rec := s.do(t, http.MethodPost, "/confirm_clinic", testSessionID, url.Values{"no": {"no"}})
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/", testSessionID, nil)
	body := rec.Body.String()
	assert.Contains(t, body, "Sorry we don&#39;t recognise that code.")
	assert.Contains(t, body, `value="+27820001001"`)
}

func TestSuccessFailureKeepsSession(t *testing.T) {
	s := newTestServer(t)
	s.referrals.fail = true
	sess := models.NewSession(testSessionID)
	sess.RegistrationDetails = &models.RegistrationDetails{MSISDN: "+27820001001"}
	sess.ClinicName = "Test Clinic"
	sess.Channel = models.ChannelSMS
	require.NoError(t, s.store.Save(context.Background(), sess))

	rec := s.do(t, http.MethodGet, "/success", testSessionID, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, models.ChannelSMS, s.store.get(t, testSessionID).Channel)
}

func TestReferralLinkAPI(t *testing.T) {
	s := newTestServer(t)

	post := func(token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/referral_link/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	valid := `{"contact":{"urn":"tel:27820001001"}}`
	assert.Equal(t, http.StatusUnauthorized, post("", valid).Code)
	assert.Equal(t, http.StatusForbidden, post("limited-token", valid).Code)
	assert.Equal(t, http.StatusBadRequest, post("full-token", `{"contact":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, post("full-token", `{"contact":{"urn":"nourn"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, post("full-token", `{"contact":{"urn":"tel:123"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, post("full-token", `not json`).Code)

	rec := post("full-token", valid)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://nurseconnect.example/code09", body["referral_link"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nurseconnect_http_request_duration_seconds")
}

func TestHealthReportsFailure(t *testing.T) {
	h := HealthHandler([]HealthCheck{{Name: "db", Check: func(ctx context.Context) error { return errors.New("down") }}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type countingLimiter struct {
	counts map[string]int
	err    error
}

func (l *countingLimiter) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.counts[scope+"|"+key]++
	return l.counts[scope+"|"+key] <= limit, nil
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &countingLimiter{counts: make(map[string]int)}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RateLimitMiddleware(limiter, "site", 2)(ok)

	serve := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, serve("10.0.0.1:1234"))
	assert.Equal(t, http.StatusNoContent, serve("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:9999"))
	assert.Equal(t, http.StatusNoContent, serve("10.0.0.2:1234"))

	limiter.err = errors.New("redis down")
	assert.Equal(t, http.StatusNoContent, serve("10.0.0.1:1234"))

	unlimited := RateLimitMiddleware(nil, "site", 2)(ok)
	rec := httptest.NewRecorder()
	unlimited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReferralLinkAPIWithoutBaseURL(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) {
		c.Referral = NewReferralHandler(&fakeReferrals{}, "")
	})

	req := httptest.NewRequest(http.MethodPost, "http://reg.example/api/v1/referral_link/",
		strings.NewReader(`{"contact":{"urn":"tel:27820001001"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token full-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "http://reg.example/code09", body["referral_link"])

	req = httptest.NewRequest(http.MethodPost, "http://reg.example/api/v1/referral_link/",
		strings.NewReader(`{"contact":{"urn":"tel:27820001001"}}`))
	req.Header.Set("Authorization", "Token full-token")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://reg.example/code09", body["referral_link"])
}

func TestMetricsInternalAccess(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsExternalAccessBlocked(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 4.3.2.1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	limiter := &countingLimiter{counts: make(map[string]int)}
	s := newTestServer(t, func(c *RouterConfig) {
		c.RateLimiter = limiter
		c.SiteLimit = 2
	})

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"9.9.9.1", "9.9.9.2", "9.9.9.3"} {
		req := httptest.NewRequest(http.MethodGet, "/terms_and_conditions/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestProxyRealIPUsesLastHop(t *testing.T) {
	var seen string
	h := ProxyRealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.254:4000"
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 41.0.0.7")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "41.0.0.7", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.254:4000"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.254:4000", seen)
}
