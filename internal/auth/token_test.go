package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/hashing"
)

func newHasher() *hashing.Hasher {
	return hashing.NewHasher(&config.Config{
		SecretKey: "test-secret",
		Hashing:   config.HashingConfig{Argon2MemoryCost: 1024, Argon2TimeCost: 1, Argon2Parallelism: 1},
	})
}

func newAuthenticator(t *testing.T) *Authenticator {
	h := newHasher()
	rp, err := h.HashToken("rapidpro-token")
	require.NoError(t, err)
	ro, err := h.HashToken("readonly-token")
	require.NoError(t, err)

	a, err := NewAuthenticator(h, []string{
		"rapidpro:" + rp.Encode() + ":" + PermAddReferralLink,
		"readonly:" + ro.Encode() + ":",
	})
	require.NoError(t, err)
	return a
}

func TestAuthenticate(t *testing.T) {
	a := newAuthenticator(t)

	p, err := a.Authenticate("rapidpro-token")
	require.NoError(t, err)
	assert.Equal(t, "rapidpro", p.Username)
	assert.True(t, p.Has(PermAddReferralLink))

	again, err := a.Authenticate("rapidpro-token")
	require.NoError(t, err)
	assert.Same(t, p, again)

	_, err = a.Authenticate("wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Authenticate("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewAuthenticatorRejectsBadEntries(t *testing.T) {
	_, err := NewAuthenticator(newHasher(), []string{"nohash"})
	assert.Error(t, err)
	_, err = NewAuthenticator(newHasher(), []string{"user:not-a-hash:perm"})
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	a := newAuthenticator(t)
	var seen *Principal
	h := a.Require(PermAddReferralLink)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Bearer rapidpro-token", http.StatusUnauthorized},
		{"bad token", "Token nope", http.StatusUnauthorized},
		{"missing permission", "Token readonly-token", http.StatusForbidden},
		{"allowed", "Token rapidpro-token", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/referral_link/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, "rapidpro", seen.Username)
}

func TestRejectedTokensSkipHashing(t *testing.T) {
	a := newAuthenticator(t)
	verify := a.verify
	calls := 0
	a.verify = func(token string, hash *hashing.HashResult) (bool, error) {
		calls++
		return verify(token, hash)
	}
	now := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return now }

	_, err := a.Authenticate("wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 2, calls, "one check per configured credential")

	_, err = a.Authenticate("wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 2, calls, "a recently rejected token is not hashed again")

	now = now.Add(rejectedTTL + time.Second)
	_, err = a.Authenticate("wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 4, calls)

	_, err = a.Authenticate("rapidpro-token")
	assert.NoError(t, err)
}
