package backend

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Credentials hold what a provider needs to be reachable. Key-based
// providers need APIKey; ollama only needs a base URL.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// Config configures the selector: per-provider credentials and the per-call
// timeout applied to every live backend.
type Config struct {
	Timeout     time.Duration
	Credentials map[string]Credentials
}

// Resolution is the outcome of resolving a backend name. When Fallback is
// true the engine owns writing the fallback trace entry; the selector itself
// never touches session state.
type Resolution struct {
	Backend  Backend
	Fallback bool
	Reason   string
}

// Selector resolves a configured backend name and parameters into a usable
// Backend, falling back to the deterministic stub whenever the live provider
// cannot be had. Resolution is a pure function of (name, params,
// credential-presence); instances are cached and shared across sessions.
type Selector struct {
	cfg  Config
	stub *StubBackend

	mu    sync.RWMutex
	cache map[string]Backend
}

// NewSelector creates a selector with the given provider configuration.
func NewSelector(cfg Config) *Selector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Selector{
		cfg:   cfg,
		stub:  NewStubBackend(),
		cache: make(map[string]Backend),
	}
}

// Fallback returns the shared stub backend.
func (s *Selector) Fallback() Backend { return s.stub }

// Resolve returns a backend for (name, params). It never fails: any missing
// credential, unknown name, or construction error resolves to the stub with
// Fallback set, and the caller decides how to record that.
func (s *Selector) Resolve(ctx context.Context, name string, params Params) Resolution {
	if name == "" || name == StubName {
		return Resolution{Backend: s.stub}
	}

	creds, reason := s.credentials(name)
	if reason != "" {
		log.Debug().Str("backend", name).Str("reason", reason).Msg("resolving to stub backend")
		return Resolution{Backend: s.stub, Fallback: true, Reason: reason}
	}

	key := cacheKey(name, params)
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return Resolution{Backend: cached}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[key]; ok {
		return Resolution{Backend: cached}
	}
	chatModel, err := newChatModel(ctx, name, creds, params)
	if err != nil {
		log.Warn().Err(err).Str("backend", name).Msg("backend construction failed, resolving to stub")
		return Resolution{Backend: s.stub, Fallback: true, Reason: fmt.Sprintf("construction failed: %v", err)}
	}
	live := &liveBackend{name: name, model: chatModel, timeout: s.cfg.Timeout}
	s.cache[key] = live
	return Resolution{Backend: live}
}

// credentials returns the effective credentials for a provider, falling back
// to environment variables, and a non-empty reason when they are absent.
func (s *Selector) credentials(name string) (Credentials, string) {
	creds := s.cfg.Credentials[name]
	switch name {
	case "openai":
		if creds.APIKey == "" {
			creds.APIKey = firstEnv("OPENROUTER_API_KEY", "OPENAI_API_KEY")
		}
		if creds.APIKey == "" {
			return creds, "no API key configured for openai"
		}
	case "ark":
		if creds.APIKey == "" {
			creds.APIKey = os.Getenv("ARK_API_KEY")
		}
		if creds.APIKey == "" {
			return creds, "no API key configured for ark"
		}
	case "deepseek":
		if creds.APIKey == "" {
			creds.APIKey = os.Getenv("DEEPSEEK_API_KEY")
		}
		if creds.APIKey == "" {
			return creds, "no API key configured for deepseek"
		}
	case "ollama":
		if creds.BaseURL == "" {
			creds.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		if creds.BaseURL == "" {
			return creds, "no base URL configured for ollama"
		}
	default:
		return creds, fmt.Sprintf("unknown backend: %s", name)
	}
	return creds, ""
}

func cacheKey(name string, params Params) string {
	return fmt.Sprintf("%s|%s|%g|%d", name, params.Model, params.Temperature, params.MaxTokens)
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
