// Package auth authenticates callers of the referral link API with static
// API tokens configured as argon2 hashes.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/hashing"
	"nurseconnect-registration/internal/util"
)

// PermAddReferralLink allows creating referral links through the API.
const PermAddReferralLink = "registrations.add_referrallink"

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrInvalidToken    = errors.New("invalid token")
	ErrForbidden       = errors.New("permission denied")
)

type Principal struct {
	Username    string
	Permissions map[string]struct{}
}

func (p *Principal) Has(perm string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Permissions[perm]
	return ok
}

type credential struct {
	principal *Principal
	hash      *hashing.HashResult
}

const (
	rejectedTTL = time.Minute
	maxRejected = 10000
)

// Authenticator checks "Authorization: Token <token>" headers. Verified
// tokens are remembered by digest so argon2 runs once per token. Rejected
// tokens are remembered for a minute so repeating a bad token costs no
// hashing.
type Authenticator struct {
	credentials []credential
	verify      func(token string, hash *hashing.HashResult) (bool, error)
	now         func() time.Time

	mu       sync.RWMutex
	verified map[[32]byte]*Principal
	rejected map[[32]byte]time.Time
}

// NewAuthenticator parses entries of the form "username:<hash>:perm1|perm2".
func NewAuthenticator(hasher *hashing.Hasher, entries []string) (*Authenticator, error) {
	a := &Authenticator{
		verify:   hasher.VerifyToken,
		now:      time.Now,
		verified: make(map[[32]byte]*Principal),
		rejected: make(map[[32]byte]time.Time),
	}
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid api token entry for %q", parts[0])
		}
		hash, err := hashing.ParseHash(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid api token hash for %s: %w", parts[0], err)
		}
		perms := make(map[string]struct{})
		if len(parts) == 3 {
			for _, perm := range strings.Split(parts[2], "|") {
				if perm = strings.TrimSpace(perm); perm != "" {
					perms[perm] = struct{}{}
				}
			}
		}
		a.credentials = append(a.credentials, credential{
			principal: &Principal{Username: parts[0], Permissions: perms},
			hash:      hash,
		})
	}
	return a, nil
}

// Authenticate returns the principal owning token.
func (a *Authenticator) Authenticate(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	digest := sha256.Sum256([]byte(token))
	a.mu.RLock()
	p, ok := a.verified[digest]
	rejectedUntil, rejected := a.rejected[digest]
	a.mu.RUnlock()
	if ok {
		return p, nil
	}
	if rejected && a.now().Before(rejectedUntil) {
		return nil, ErrInvalidToken
	}

	for _, c := range a.credentials {
		match, err := a.verify(token, c.hash)
		if err != nil {
			util.Warn("Skipping unusable api token", zap.String("username", c.principal.Username), zap.Error(err))
			continue
		}
		if match {
			a.mu.Lock()
			a.verified[digest] = c.principal
			a.mu.Unlock()
			return c.principal, nil
		}
	}

	a.mu.Lock()
	if len(a.rejected) >= maxRejected {
		a.rejected = make(map[[32]byte]time.Time)
	}
	a.rejected[digest] = a.now().Add(rejectedTTL)
	a.mu.Unlock()
	return nil, ErrInvalidToken
}

type principalKey struct{}

func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Require rejects requests without a valid token with 401 and requests whose
// token lacks perm with 403.
func (a *Authenticator) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(tokenFromHeader(r.Header.Get("Authorization")))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Token")
				writeDetail(w, http.StatusUnauthorized, err)
				return
			}
			if !p.Has(perm) {
				util.Warn("API permission denied",
					zap.String("username", p.Username),
					zap.String("permission", perm))
				writeDetail(w, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}

func tokenFromHeader(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Token") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeDetail(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
}
