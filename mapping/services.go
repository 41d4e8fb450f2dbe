package mapping

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/crypto/blake2b"
)

// DefaultKeyPattern matches browser/mobile style API keys.
const DefaultKeyPattern = `^AIza[0-9A-Za-z_\-]{35}$`

const keyMatchTimeout = 100 * time.Millisecond

// Services is the mapping service's global configuration. It accepts one API
// key per process; providing the same key again is a no-op.
type Services struct {
	mu      sync.RWMutex
	pattern *regexp2.Regexp
	key     string
}

// NewServices creates a configuration entry point validating keys against
// pattern. An empty pattern selects DefaultKeyPattern.
func NewServices(pattern string) (*Services, error) {
	if pattern == "" {
		pattern = DefaultKeyPattern
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid key pattern: %w", err)
	}
	re.MatchTimeout = keyMatchTimeout
	return &Services{pattern: re}, nil
}

// ProvideAPIKey configures the service. It reports false if the key is
// malformed or a different key was already provided.
func (s *Services) ProvideAPIKey(key string) bool {
	return s.provide(key) == nil
}

func (s *Services) provide(key string) error {
	ok, err := s.pattern.MatchString(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	}
	if !ok {
		return ErrInvalidAPIKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.key {
	case "":
		s.key = key
		return nil
	case key:
		return nil
	default:
		return ErrAlreadyConfigured
	}
}

// Configured reports whether an API key has been accepted.
func (s *Services) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != ""
}

// Fingerprint returns a short, non-reversible identifier of the configured
// key, or "" when unconfigured.
func (s *Services) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Fingerprint(s.key)
}

// Fingerprint hashes key for logging.
func Fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

// Provider adapts Services to an error-returning configuration call.
type Provider struct {
	Services *Services
}

// NewProvider wraps svc.
func NewProvider(svc *Services) *Provider {
	return &Provider{Services: svc}
}

// ProvideAPIKey configures the wrapped service.
func (p *Provider) ProvideAPIKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Services.provide(key)
}
