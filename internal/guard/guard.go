// Package guard tracks failed logins per client IP and bans clients that
// keep failing.
//
// A client is Clean until its first failure, Warned(n) while it has n
// failures inside the window, and Banned once n reaches the threshold. A
// ban lasts for its TTL and is not lifted by a later success. Success
// while Warned resets the client to Clean.
package guard

import (
	"context"
	"fmt"
	"time"

	"portfolio-server/internal/interfaces"
	"portfolio-server/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_login_failures_total",
		Help: "Failed login attempts recorded by the abuse guard.",
	})
	bansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_bans_total",
		Help: "Client IPs banned after too many failed logins.",
	})
	rejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_rejected_requests_total",
		Help: "Requests rejected because the client IP is banned.",
	})
)

// Defaults used when Config fields are zero.
const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
	DefaultBanTTL    = time.Hour
)

// Config tunes a Guard.
type Config struct {
	Threshold int
	Window    time.Duration
	BanTTL    time.Duration
}

// Status is a client's state after a recorded failure.
type Status struct {
	Failures int64
	Banned   bool
}

// Guard applies the failed-login policy on top of a GuardStore.
type Guard struct {
	store  interfaces.GuardStore
	cfg    Config
	logger *zap.Logger
}

// New returns a Guard. Zero Config fields take the package defaults.
func New(store interfaces.GuardStore, cfg Config, logger *zap.Logger) *Guard {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.BanTTL <= 0 {
		cfg.BanTTL = DefaultBanTTL
	}
	return &Guard{store: store, cfg: cfg, logger: logger.Named("Guard")}
}

func clientKey(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}

// Check returns models.ErrIPBanned when ip is banned. Store errors are
// returned as is and the caller must fail the request.
func (g *Guard) Check(ctx context.Context, ip string) error {
	banned, err := g.store.IsBanned(ctx, clientKey(ip))
	if err != nil {
		g.logger.Error("Failed to read ban state", zap.String("ip", ip), zap.Error(err))
		return fmt.Errorf("guard check: %w", err)
	}
	if banned {
		rejectedTotal.Inc()
		return models.ErrIPBanned
	}
	return nil
}

// RecordFailure counts a failed login from ip and bans it once the
// threshold is reached. The counter is cleared when the ban is set.
func (g *Guard) RecordFailure(ctx context.Context, ip string) (Status, error) {
	key := clientKey(ip)
	n, err := g.store.IncrementFailures(ctx, key, g.cfg.Window)
	if err != nil {
		g.logger.Error("Failed to record login failure", zap.String("ip", ip), zap.Error(err))
		return Status{}, fmt.Errorf("guard record failure: %w", err)
	}
	failuresTotal.Inc()

	if n < int64(g.cfg.Threshold) {
		g.logger.Info("Failed login recorded",
			zap.String("ip", ip),
			zap.Int64("failures", n),
			zap.Int("threshold", g.cfg.Threshold),
		)
		return Status{Failures: n}, nil
	}

	if err := g.store.SetBan(ctx, key, g.cfg.BanTTL); err != nil {
		g.logger.Error("Failed to ban client", zap.String("ip", ip), zap.Error(err))
		return Status{Failures: n}, fmt.Errorf("guard set ban: %w", err)
	}
	if err := g.store.ResetFailures(ctx, key); err != nil {
		// The ban is in place; a stale counter only expires with its window.
		g.logger.Warn("Failed to clear failure counter after ban", zap.String("ip", ip), zap.Error(err))
	}
	bansTotal.Inc()
	g.logger.Warn("Client banned after repeated login failures",
		zap.String("ip", ip),
		zap.Int64("failures", n),
		zap.Duration("ban_ttl", g.cfg.BanTTL),
	)
	return Status{Failures: n, Banned: true}, nil
}

// RecordSuccess clears the failure counter for ip.
func (g *Guard) RecordSuccess(ctx context.Context, ip string) error {
	if err := g.store.ResetFailures(ctx, clientKey(ip)); err != nil {
		g.logger.Error("Failed to reset login failures", zap.String("ip", ip), zap.Error(err))
		return fmt.Errorf("guard reset: %w", err)
	}
	return nil
}

// Config returns the effective policy.
func (g *Guard) Config() Config {
	return g.cfg
}
