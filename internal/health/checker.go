// Package health provides liveness/readiness checking for the service's
// dependencies: the primary datastore and the configured ledger backend.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
}

// Pinger reports the primary datastore's availability. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

// Checker runs periodic dependency probes and caches the latest result for
// the readiness endpoint, so probes from the orchestrator never hit the
// database directly.
type Checker struct {
	db        Pinger
	cfg       Config
	logger    *zap.Logger
	onMetrics MetricsRecordFunc

	mu      sync.RWMutex
	lastErr error
	checked bool
}

// New creates a Checker.
func New(db Pinger, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	return &Checker{db: db, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (c *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	c.onMetrics = fn
}

// Start runs the probe loop until stop is closed. It must not share a signal
// channel with the caller: signals are delivered to a single receiver, and
// consuming one here would swallow a shutdown request.
func (c *Checker) Start(stop <-chan struct{}) {
	c.Check(context.Background())

	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Check(context.Background())
		case <-stop:
			return
		}
	}
}

// Check probes the datastore once and records the outcome.
func (c *Checker) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	err := c.db.Ping(ctx)

	c.mu.Lock()
	c.lastErr = err
	c.checked = true
	c.mu.Unlock()

	if c.onMetrics != nil {
		c.onMetrics(err == nil)
	}
	if err != nil {
		c.logger.Warn("readiness probe failed", zap.Error(err))
	}
}

// Ready returns nil when the last probe succeeded. Before the first probe
// completes the service is not ready.
func (c *Checker) Ready() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.checked {
		return errNotProbed
	}
	return c.lastErr
}

var errNotProbed = &notProbedError{}

type notProbedError struct{}

func (*notProbedError) Error() string { return "no readiness probe completed yet" }
