// FILE: logpulse/src/internal/auth/authenticator.go
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"logpulse/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Prevent unbounded map growth
const maxAuthTrackedIPs = 10000

var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many authentication attempts")
)

// Authenticator gates access by client IP and credentials.
type Authenticator struct {
	logger *log.Logger

	mu         sync.RWMutex
	enabled    bool
	bypassIP   bool
	allowedIPs map[string]struct{}
	username   string
	password   string // plain text or bcrypt hash
	realm      string
	jwtParser  *jwt.Parser
	jwtKey     []byte

	// Brute-force protection
	ipAuthAttempts map[string]*ipAuthState
	authMu         sync.Mutex
	failureDelay   time.Duration
	clock          func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type ipAuthState struct {
	limiter      *rate.Limiter
	failCount    int
	lastAttempt  time.Time
	blockedUntil time.Time
}

type Option func(*Authenticator)

// WithFailureDelay sets the pause applied after a failed credential check
func WithFailureDelay(d time.Duration) Option {
	return func(a *Authenticator) {
		a.failureDelay = d
	}
}

// New creates an authenticator from the server configuration.
func New(cfg config.ServerConfig, logger *log.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{
		logger:         logger,
		ipAuthAttempts: make(map[string]*ipAuthState),
		failureDelay:   500 * time.Millisecond,
		clock:          time.Now,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Update(cfg)

	go a.authAttemptCleanup()
	return a
}

// Update swaps the access settings in place.
func (a *Authenticator) Update(cfg config.ServerConfig) {
	allowed := make(map[string]struct{}, len(cfg.AllowedIPs))
	for _, ip := range cfg.AllowedIPs {
		allowed[ip] = struct{}{}
	}

	var parser *jwt.Parser
	var key []byte
	if cfg.JWTSigningKey != "" {
		parser = jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithLeeway(5*time.Second),
			jwt.WithExpirationRequired(),
		)
		key = []byte(cfg.JWTSigningKey)
	}

	realm := cfg.Realm
	if realm == "" {
		realm = "logpulse"
	}

	a.mu.Lock()
	a.enabled = cfg.AuthEnabled
	a.bypassIP = cfg.BypassIPCheck
	a.allowedIPs = allowed
	a.username = cfg.Auth.User
	a.password = cfg.Auth.Pass
	a.realm = realm
	a.jwtParser = parser
	a.jwtKey = key
	a.mu.Unlock()
}

func (a *Authenticator) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Realm is the Basic challenge realm
func (a *Authenticator) Realm() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.realm
}

// Challenge returns the WWW-Authenticate header value.
func (a *Authenticator) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", a.Realm())
}

// CheckIP applies the allow-list. Matching is an exact string comparison.
func (a *Authenticator) CheckIP(ip string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.enabled || a.bypassIP {
		return nil
	}
	if _, ok := a.allowedIPs[ip]; ok {
		return nil
	}
	return ErrForbidden
}

// AllowsIP reports whether a raw connection from ip may proceed.
func (a *Authenticator) AllowsIP(ip string) bool {
	return a.CheckIP(ip) == nil
}

// Authenticate validates the Authorization header and returns the username.
func (a *Authenticator) Authenticate(authHeader, remoteAddr string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}

	if err := a.checkRateLimit(remoteAddr); err != nil {
		return "", err
	}

	var (
		username string
		err      error
	)
	switch {
	case strings.HasPrefix(authHeader, "Basic "):
		username, err = a.authenticateBasic(authHeader[6:])
	case strings.HasPrefix(authHeader, "Bearer "):
		username, err = a.authenticateBearer(authHeader[7:])
	default:
		// A missing header is the normal first leg of the Basic challenge
		return "", fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	}

	if err != nil {
		a.recordFailure(remoteAddr)
		if a.failureDelay > 0 {
			time.Sleep(a.failureDelay)
		}
		return "", err
	}

	a.recordSuccess(remoteAddr)
	return username, nil
}

func (a *Authenticator) authenticateBasic(encoded string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64 encoding", ErrUnauthorized)
	}

	parts := strings.SplitN(string(payload), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid credentials format", ErrUnauthorized)
	}

	a.mu.RLock()
	expectedUser, expectedPass := a.username, a.password
	a.mu.RUnlock()

	userOK := subtle.ConstantTimeCompare([]byte(parts[0]), []byte(expectedUser)) == 1
	if !checkPassword(expectedPass, parts[1]) || !userOK {
		return "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return parts[0], nil
}

// checkPassword accepts a bcrypt hash or a plain text secret
func checkPassword(expected, given string) bool {
	if IsBcryptHash(expected) {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2")
}

func (a *Authenticator) authenticateBearer(token string) (string, error) {
	a.mu.RLock()
	parser, key, expectedUser := a.jwtParser, a.jwtKey, a.username
	a.mu.RUnlock()

	if parser == nil {
		return "", fmt.Errorf("%w: bearer tokens not configured", ErrUnauthorized)
	}

	claims := jwt.MapClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: JWT validation failed", ErrUnauthorized)
	}

	sub, _ := claims.GetSubject()
	if sub == "" || sub != expectedUser {
		return "", fmt.Errorf("%w: token subject mismatch", ErrUnauthorized)
	}
	return sub, nil
}

// checkRateLimit rejects addresses currently blocked for repeated failures
func (a *Authenticator) checkRateLimit(remoteAddr string) error {
	ip := hostOnly(remoteAddr)
	now := a.clock()

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	if !exists || !now.Before(state.blockedUntil) {
		return nil
	}

	remaining := state.blockedUntil.Sub(now)
	a.logger.Warn("msg", "IP temporarily blocked",
		"component", "auth",
		"ip", ip,
		"remaining", remaining)
	return fmt.Errorf("%w: try again in %v", ErrRateLimited, remaining.Round(time.Second))
}

// recordFailure spends a limiter token; an exhausted limiter blocks the address
func (a *Authenticator) recordFailure(remoteAddr string) {
	ip := hostOnly(remoteAddr)
	now := a.clock()

	a.authMu.Lock()
	defer a.authMu.Unlock()

	state, exists := a.ipAuthAttempts[ip]
	if !exists {
		if len(a.ipAuthAttempts) >= maxAuthTrackedIPs {
			a.evictOldestLocked(now)
		}
		// 5 failures per minute, burst of 3
		state = &ipAuthState{
			limiter: rate.NewLimiter(rate.Every(12*time.Second), 3),
		}
		a.ipAuthAttempts[ip] = state
	}
	state.lastAttempt = now

	if state.limiter.AllowN(now, 1) {
		return
	}

	state.failCount++
	// Progressive blocking: 2^failCount minutes, capped at 64
	blockMinutes := 1 << min(state.failCount, 6)
	state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)

	a.logger.Warn("msg", "Authentication failures exceeded, blocking IP",
		"component", "auth",
		"ip", ip,
		"fail_count", state.failCount,
		"block_duration", time.Duration(blockMinutes)*time.Minute)
}

// Sample a bounded number of entries and evict the oldest
func (a *Authenticator) evictOldestLocked(now time.Time) {
	const sampleSize = 20
	var oldestIP string
	oldestTime := now

	sampled := 0
	for ip, st := range a.ipAuthAttempts {
		if st.lastAttempt.Before(oldestTime) {
			oldestIP = ip
			oldestTime = st.lastAttempt
		}
		sampled++
		if sampled >= sampleSize {
			break
		}
	}
	if oldestIP != "" {
		delete(a.ipAuthAttempts, oldestIP)
	}
}

// Reset failure count on success
func (a *Authenticator) recordSuccess(remoteAddr string) {
	ip := hostOnly(remoteAddr)

	a.authMu.Lock()
	defer a.authMu.Unlock()

	if state, exists := a.ipAuthAttempts[ip]; exists {
		state.failCount = 0
	}
}

// Cleanup old auth attempts
func (a *Authenticator) authAttemptCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.authMu.Lock()
			now := a.clock()
			for ip, state := range a.ipAuthAttempts {
				if now.Sub(state.lastAttempt) > time.Hour && now.After(state.blockedUntil) {
					delete(a.ipAuthAttempts, ip)
				}
			}
			a.authMu.Unlock()
		}
	}
}

func (a *Authenticator) Close() {
	a.closeOnce.Do(func() { close(a.done) })
}

// GetStats returns authentication statistics
func (a *Authenticator) GetStats() map[string]any {
	a.authMu.Lock()
	tracked := len(a.ipAuthAttempts)
	blocked := 0
	now := a.clock()
	for _, st := range a.ipAuthAttempts {
		if now.Before(st.blockedUntil) {
			blocked++
		}
	}
	a.authMu.Unlock()

	a.mu.RLock()
	defer a.mu.RUnlock()
	return map[string]any{
		"enabled":     a.enabled,
		"bypass_ip":   a.bypassIP,
		"allowed_ips": len(a.allowedIPs),
		"jwt_enabled": a.jwtParser != nil,
		"tracked_ips": tracked,
		"blocked_ips": blocked,
	}
}

func hostOnly(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}
