// Package review implements the credential-rotating client for the
// governance reviewer. One logical invocation walks the eligible
// credentials in order, retrying, rotating, or disabling per failure
// category, and always comes back as a structured Outcome.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/infra/llm"
	"github.com/vietddude/governor/internal/infra/storage"
	"github.com/vietddude/governor/internal/metrics"
)

// ErrDisallowedTier is returned at construction when the configured model
// tier is outside the allow-listed families. Fail closed: no client, no
// network activity.
var ErrDisallowedTier = errors.New("model tier not allow-listed")

// Service is the transport to the reviewer. Implemented by llm.HTTPClient;
// tests substitute a fake.
type Service interface {
	Generate(ctx context.Context, cred domain.Credential, tier, system, content string) (*llm.Reply, error)
}

// Config holds rotation and backoff settings for the client.
type Config struct {
	Tier                     string
	MaxAttemptsPerCredential int
	InitialDelay             time.Duration
	MaxDelay                 time.Duration
	QuotaCooldown            time.Duration
}

// Client issues reviewer calls with credential rotation. Retries are
// intentionally sequential: never two in-flight calls for one logical
// request, so quota is never double-spent.
type Client struct {
	cfg     Config
	store   storage.CredentialRepository
	service Service
	log     *slog.Logger
	now     func() time.Time
}

// NewClient creates a rotating client. It fails immediately if the
// configured tier is not in an allow-listed family.
func NewClient(cfg Config, store storage.CredentialRepository, service Service) (*Client, error) {
	if !domain.TierAllowed(cfg.Tier) {
		return nil, fmt.Errorf("%w: %q", ErrDisallowedTier, cfg.Tier)
	}
	if cfg.MaxAttemptsPerCredential <= 0 {
		cfg.MaxAttemptsPerCredential = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.QuotaCooldown <= 0 {
		cfg.QuotaCooldown = 6 * time.Hour
	}
	return &Client{
		cfg:     cfg,
		store:   store,
		service: service,
		log:     slog.Default().With("component", "review"),
		now:     time.Now,
	}, nil
}

// Invoke performs one logical reviewer call. Operational failures
// (exhausted quota, overload, bad credentials, malformed replies) are
// absorbed into the Outcome; only infrastructure errors (unreachable
// credential store, caller cancellation) surface as errors.
func (c *Client) Invoke(ctx context.Context, system, content string) (*domain.Outcome, error) {
	start := c.now()

	creds, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].Name < creds[j].Name })

	outcome := &domain.Outcome{}

	// The nominal primary is the first credential still in the pool
	// (enabled). A temporarily exhausted primary still counts: using
	// anything else is a rotation.
	initial := ""
	var candidates []domain.Credential
	for _, cred := range creds {
		if cred.Enabled && initial == "" {
			initial = cred.Name
		}
		if cred.Eligible(start) {
			candidates = append(candidates, cred)
			continue
		}
		outcome.Skips = append(outcome.Skips, ineligibleSkip(cred, start))
	}

	if len(candidates) == 0 {
		// No network call is made.
		c.log.Warn("No eligible credentials", "total", len(creds))
		outcome.Duration = c.now().Sub(start)
		return outcome, nil
	}

	var lastTried string

candidates:
	for _, cred := range candidates {
		lastTried = cred.Name
		backoff := retry.WithCappedDuration(c.cfg.MaxDelay, retry.NewExponential(c.cfg.InitialDelay))

		for attempt := 1; attempt <= c.cfg.MaxAttemptsPerCredential; attempt++ {
			callStart := c.now()
			reply, callErr := c.service.Generate(ctx, cred, c.cfg.Tier, system, content)
			latency := c.now().Sub(callStart)
			metrics.CallLatency.WithLabelValues(cred.Name).Observe(latency.Seconds())
			outcome.Attempts++

			if callErr == nil {
				used := domain.NormalizeTier(reply.ModelUsed)
				if used != c.cfg.Tier {
					// Never trust an unverified downgrade: the call
					// "succeeded", but not on the tier the governance
					// guarantee requires.
					c.log.Warn("Model tier mismatch",
						"credential", cred, "requested", c.cfg.Tier, "reported", used)
					metrics.ReviewCallsTotal.WithLabelValues(cred.Name, "tier_mismatch").Inc()
					outcome.ErrorCategory = domain.CategoryUnknown
					outcome.Skips = append(outcome.Skips, domain.CredentialSkip{
						Credential: cred.Name,
						Category:   domain.CategoryUnknown,
						Reason:     fmt.Sprintf("model tier mismatch: reported %q", used),
					})
					c.recordRotation(domain.CategoryUnknown)
					continue candidates
				}

				metrics.ReviewCallsTotal.WithLabelValues(cred.Name, "success").Inc()
				outcome.Success = true
				outcome.ErrorCategory = ""
				outcome.CredentialUsed = cred.Name
				outcome.Rotated = cred.Name != initial
				outcome.Text = reply.Text
				outcome.ModelUsed = used
				outcome.Duration = c.now().Sub(start)
				return outcome, nil
			}

			category := llm.Classify(callErr)
			outcome.ErrorCategory = category
			metrics.ReviewCallsTotal.WithLabelValues(cred.Name, string(category)).Inc()
			c.log.Warn("Reviewer call failed",
				"credential", cred, "category", category, "attempt", attempt, "error", callErr)

			switch category {
			case domain.CategoryCapacity:
				if attempt == c.cfg.MaxAttemptsPerCredential {
					outcome.Skips = append(outcome.Skips, domain.CredentialSkip{
						Credential: cred.Name,
						Category:   category,
						Reason:     fmt.Sprintf("capacity retries exhausted: %v", callErr),
					})
					c.recordRotation(category)
					continue candidates
				}
				delay, _ := backoff.Next()
				if err := c.sleep(ctx, delay); err != nil {
					return nil, err
				}

			case domain.CategoryQuota:
				until := c.now().Add(c.cfg.QuotaCooldown)
				if err := c.store.MarkExhausted(ctx, cred.Name, until); err != nil {
					c.log.Error("Failed to persist quota exhaustion", "credential", cred, "error", err)
				}
				outcome.Skips = append(outcome.Skips, domain.CredentialSkip{
					Credential: cred.Name,
					Category:   category,
					Reason:     fmt.Sprintf("quota exhausted, cooling down until %s", until.Format(time.RFC3339)),
				})
				c.recordRotation(category)
				continue candidates

			case domain.CategoryAuth:
				if err := c.store.Disable(ctx, cred.Name); err != nil {
					c.log.Error("Failed to persist credential disable", "credential", cred, "error", err)
				}
				outcome.Skips = append(outcome.Skips, domain.CredentialSkip{
					Credential: cred.Name,
					Category:   category,
					Reason:     fmt.Sprintf("credential invalid, disabled: %v", callErr),
				})
				c.recordRotation(category)
				continue candidates

			default: // parse, unknown: advance without penalizing the credential
				outcome.Skips = append(outcome.Skips, domain.CredentialSkip{
					Credential: cred.Name,
					Category:   category,
					Reason:     callErr.Error(),
				})
				c.recordRotation(category)
				continue candidates
			}
		}
	}

	// Every candidate exhausted. An expected, first-class result.
	outcome.CredentialUsed = lastTried
	outcome.Rotated = lastTried != initial
	outcome.Duration = c.now().Sub(start)
	c.log.Warn("All credentials exhausted", "attempts", outcome.Attempts, "skips", len(outcome.Skips))
	return outcome, nil
}

// sleep blocks for the backoff delay, honoring caller cancellation.
func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	metrics.BackoffSeconds.Add(delay.Seconds())
	c.log.Debug("Backing off", "delay", delay)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (c *Client) recordRotation(category domain.ErrorCategory) {
	metrics.RotationsTotal.WithLabelValues(string(category)).Inc()
}

func ineligibleSkip(cred domain.Credential, now time.Time) domain.CredentialSkip {
	if !cred.Enabled {
		return domain.CredentialSkip{
			Credential: cred.Name,
			Category:   domain.CategoryAuth,
			Reason:     "disabled",
		}
	}
	return domain.CredentialSkip{
		Credential: cred.Name,
		Category:   domain.CategoryQuota,
		Reason:     fmt.Sprintf("exhausted until %s", cred.ExhaustedUntil.Format(time.RFC3339)),
	}
}
