package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heyztb/go-mcauth/internal/transport"
	"golang.org/x/time/rate"
)

const (
	// LookupURL resolves up to LookupPageSize names per request.
	LookupURL      = "https://api.mojang.com/profiles/minecraft"
	LookupPageSize = 100

	maxLookupFailures   = 3
	defaultPageDelay    = 100 * time.Millisecond
	defaultFailureDelay = 750 * time.Millisecond
)

// LookupCallback receives the outcome for every requested name.
type LookupCallback interface {
	ProfileFound(p *GameProfile)
	ProfileNotFound(name string, err error)
}

// LookupFuncs adapts a pair of functions to LookupCallback.
type LookupFuncs struct {
	Found    func(p *GameProfile)
	NotFound func(name string, err error)
}

func (f LookupFuncs) ProfileFound(p *GameProfile) {
	if f.Found != nil {
		f.Found(p)
	}
}

func (f LookupFuncs) ProfileNotFound(name string, err error) {
	if f.NotFound != nil {
		f.NotFound(name, err)
	}
}

type LookupConfig struct {
	URL       string
	Transport *transport.Client
	Logger    *slog.Logger

	// PageDelay is the minimum spacing between page requests.
	PageDelay time.Duration
	// FailureDelay is the wait before retrying a failed page.
	FailureDelay time.Duration
}

// Lookup resolves player names to profiles in pages.
type Lookup struct {
	url          string
	transport    *transport.Client
	logger       *slog.Logger
	limiter      *rate.Limiter
	failureDelay time.Duration
}

func NewLookup(cfg LookupConfig) *Lookup {
	if cfg.URL == "" {
		cfg.URL = LookupURL
	}
	if cfg.Transport == nil {
		cfg.Transport = transport.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if cfg.FailureDelay <= 0 {
		cfg.FailureDelay = defaultFailureDelay
	}
	return &Lookup{
		url:          cfg.URL,
		transport:    cfg.Transport,
		logger:       cfg.Logger,
		limiter:      rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
		failureDelay: cfg.FailureDelay,
	}
}

// FindProfilesByName looks up names (case-insensitive, blanks and duplicates
// dropped) and reports each one to cb exactly once. A page is retried after
// a failure until it fails maxLookupFailures times in a row, at which point
// every name in it is reported with the last error. The returned error is
// non-nil only when ctx ends early.
func (l *Lookup) FindProfilesByName(ctx context.Context, names []string, cb LookupCallback) error {
	criteria := normalizeNames(names)
	for start := 0; start < len(criteria); start += LookupPageSize {
		end := min(start+LookupPageSize, len(criteria))
		if err := l.lookupPage(ctx, criteria[start:end], cb); err != nil {
			for _, name := range criteria[start:] {
				cb.ProfileNotFound(name, err)
			}
			return err
		}
	}
	return nil
}

// FindProfilesByNameAsync runs FindProfilesByName on its own goroutine. The
// returned channel yields its result and is then closed.
func (l *Lookup) FindProfilesByNameAsync(ctx context.Context, names []string, cb LookupCallback) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- l.FindProfilesByName(ctx, names, cb)
	}()
	return done
}

// lookupPage only returns an error for context cancellation; upstream
// failures are reported through cb.
func (l *Lookup) lookupPage(ctx context.Context, page []string, cb LookupCallback) error {
	failures := 0
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}

		var found []*GameProfile
		err := l.transport.PostJSON(ctx, l.url, page, &found, nil)
		if err == nil {
			seen := make(map[string]bool, len(found))
			for _, p := range found {
				if p == nil {
					continue
				}
				seen[strings.ToLower(p.Name())] = true
				cb.ProfileFound(p)
			}
			for _, name := range page {
				if !seen[name] {
					cb.ProfileNotFound(name, fmt.Errorf("%w: %s", ErrProfileNotFound, name))
				}
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		l.logger.Debug("profile lookup page failed", "attempt", failures, "names", len(page), "error", err)
		if failures >= maxLookupFailures {
			for _, name := range page {
				cb.ProfileNotFound(name, err)
			}
			return nil
		}

		select {
		case <-time.After(l.failureDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func normalizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
